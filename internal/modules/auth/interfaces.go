package auth

import (
	"context"
	"time"

	"charzing/internal/domain"
	"charzing/internal/oauth"
)

// UserRepositoryInterface lists only the methods the auth service uses.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByProviderID(ctx context.Context, provider domain.AuthProvider, providerUID string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, displayName, phone, photoURL string) error
}

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*oauth.Profile, error)
}

type jwtService interface {
	GenerateToken(userID, role, provider string) (string, error)
}
