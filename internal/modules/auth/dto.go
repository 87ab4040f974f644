package auth

type KakaoLoginRequest struct {
	KakaoAccessToken string `json:"kakaoAccessToken" binding:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type AppleLoginRequest struct {
	IdentityToken string `json:"identityToken" binding:"required"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the editable profile fields. Empty fields
// stay untouched.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,krphone"`
	PhotoURL    string `json:"photoURL"`
}

// UserInfo is the profile block of a successful token exchange.
type UserInfo struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Provider    string `json:"provider"`
	Role        string `json:"role"`
}

type LoginResponse struct {
	Success        bool      `json:"success"`
	CustomToken    string    `json:"customToken"`
	UserInfo       *UserInfo `json:"userInfo"`
	IsExistingUser bool      `json:"isExistingUser"`
}
