package domain

import "time"

type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleTechnician UserRole = "technician"
	RoleAdmin      UserRole = "admin"
)

type AuthProvider string

const (
	ProviderKakao  AuthProvider = "kakao"
	ProviderGoogle AuthProvider = "google"
	ProviderApple  AuthProvider = "apple"
	ProviderEmail  AuthProvider = "email"
)

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email,omitempty"`
	PasswordHash string       `json:"-"`
	Role         UserRole     `json:"role"`
	Provider     AuthProvider `json:"provider"`
	DisplayName  string       `json:"display_name"`
	Phone        string       `json:"phone,omitempty"`
	PhotoURL     string       `json:"photo_url,omitempty"`

	// Provider identities. At most one is set for social accounts.
	KakaoID  string `json:"-"`
	GoogleID string `json:"-"`
	AppleID  string `json:"-"`

	IsGuest     bool       `json:"is_guest,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
