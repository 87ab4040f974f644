package repository

import (
	"context"
	"strings"
	"time"

	"charzing/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID           string     `gorm:"column:id;primaryKey;type:varchar(64)"`
	Email        *string    `gorm:"column:email;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash"`
	Role         string     `gorm:"column:role"`
	Provider     string     `gorm:"column:provider"`
	DisplayName  string     `gorm:"column:display_name"`
	Phone        *string    `gorm:"column:phone"`
	PhotoURL     *string    `gorm:"column:photo_url"`
	KakaoID      *string    `gorm:"column:kakao_id;uniqueIndex"`
	GoogleID     *string    `gorm:"column:google_id;uniqueIndex"`
	AppleID      *string    `gorm:"column:apple_id;uniqueIndex"`
	IsGuest      bool       `gorm:"column:is_guest"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func strOrEmpty(p *string) string {
	if p != nil {
		return *p
	}
	return ""
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:           m.ID,
		Email:        strOrEmpty(m.Email),
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Provider:     domain.AuthProvider(m.Provider),
		DisplayName:  m.DisplayName,
		Phone:        strOrEmpty(m.Phone),
		PhotoURL:     strOrEmpty(m.PhotoURL),
		KakaoID:      strOrEmpty(m.KakaoID),
		GoogleID:     strOrEmpty(m.GoogleID),
		AppleID:      strOrEmpty(m.AppleID),
		IsGuest:      m.IsGuest,
		LastLoginAt:  m.LastLoginAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	email := strings.TrimSpace(strings.ToLower(u.Email))

	return userModel{
		ID:           u.ID,
		Email:        strOrNil(email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Provider:     string(u.Provider),
		DisplayName:  u.DisplayName,
		Phone:        strOrNil(u.Phone),
		PhotoURL:     strOrNil(u.PhotoURL),
		KakaoID:      strOrNil(u.KakaoID),
		GoogleID:     strOrNil(u.GoogleID),
		AppleID:      strOrNil(u.AppleID),
		IsGuest:      u.IsGuest,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).Where("id = ?", id).First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

// GetByProviderID resolves a user by the social identity column matching the
// given provider.
func (r *UserRepository) GetByProviderID(ctx context.Context, provider domain.AuthProvider, providerUID string) (*domain.User, error) {
	var column string
	switch provider {
	case domain.ProviderKakao:
		column = "kakao_id"
	case domain.ProviderGoogle:
		column = "google_id"
	case domain.ProviderApple:
		column = "apple_id"
	default:
		return nil, gorm.ErrRecordNotFound
	}

	var m userModel
	tx := r.db.WithContext(ctx).Where(column+" = ?", providerUID).First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, displayName, phone, photoURL string) error {
	updates := map[string]interface{}{}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if phone != "" {
		updates["phone"] = phone
	}
	if photoURL != "" {
		updates["photo_url"] = photoURL
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(updates).Error
}
