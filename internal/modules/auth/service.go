package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charzing/internal/domain"
	"charzing/internal/oauth"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service exchanges verified provider identities for our own access tokens.
type Service struct {
	users  UserRepositoryInterface
	kakao  tokenVerifier
	google tokenVerifier
	apple  tokenVerifier
	jwt    jwtService
}

type LoginResult struct {
	User           *domain.User
	CustomToken    string
	IsExistingUser bool
}

func NewService(users UserRepositoryInterface, kakao, google, apple tokenVerifier, jwt jwtService) *Service {
	return &Service{
		users:  users,
		kakao:  kakao,
		google: google,
		apple:  apple,
		jwt:    jwt,
	}
}

func (s *Service) LoginWithKakao(ctx context.Context, accessToken string) (*LoginResult, error) {
	return s.socialLogin(ctx, s.kakao, domain.ProviderKakao, accessToken)
}

func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	return s.socialLogin(ctx, s.google, domain.ProviderGoogle, idToken)
}

func (s *Service) LoginWithApple(ctx context.Context, identityToken string) (*LoginResult, error) {
	return s.socialLogin(ctx, s.apple, domain.ProviderApple, identityToken)
}

func (s *Service) socialLogin(ctx context.Context, verifier tokenVerifier, provider domain.AuthProvider, token string) (*LoginResult, error) {
	profile, err := verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidToken) {
			return nil, ErrInvalidProviderToken
		}
		return nil, fmt.Errorf("verify %s token: %w", provider, err)
	}

	user, existing, err := s.findOrCreate(ctx, provider, profile)
	if err != nil {
		return nil, err
	}

	// last_login_at is advisory; login still succeeds if this fails
	_ = s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC())

	tokenStr, err := s.jwt.GenerateToken(user.ID, string(user.Role), string(provider))
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}

	return &LoginResult{User: user, CustomToken: tokenStr, IsExistingUser: existing}, nil
}

// findOrCreate resolves the account for a verified provider profile: first by
// the provider identity, then by email (account linking), otherwise a new
// customer account with a provider-prefixed id.
func (s *Service) findOrCreate(ctx context.Context, provider domain.AuthProvider, profile *oauth.Profile) (*domain.User, bool, error) {
	user, err := s.users.GetByProviderID(ctx, provider, profile.UID)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if profile.Email != "" {
		user, err = s.users.GetByEmail(ctx, profile.Email)
		if err == nil {
			return user, true, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	user = &domain.User{
		ID:          fmt.Sprintf("%s_%s", provider, profile.UID),
		Email:       profile.Email,
		Role:        domain.RoleCustomer,
		Provider:    provider,
		DisplayName: profile.Name,
		PhotoURL:    profile.PhotoURL,
	}
	switch provider {
	case domain.ProviderKakao:
		user.KakaoID = profile.UID
	case domain.ProviderGoogle:
		user.GoogleID = profile.UID
	case domain.ProviderApple:
		user.AppleID = profile.UID
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, false, nil
}

// AdminLogin is the email+password path for the management surface. Only
// admin accounts carry a password hash.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Role != domain.RoleAdmin || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokenStr, err := s.jwt.GenerateToken(user.ID, string(user.Role), string(domain.ProviderEmail))
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	_ = s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC())

	return &LoginResult{User: user, CustomToken: tokenStr, IsExistingUser: true}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies the fields the client actually sent and returns the
// refreshed account.
func (s *Service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*domain.User, error) {
	if err := s.users.UpdateProfile(ctx, id, req.DisplayName, req.PhoneNumber, req.PhotoURL); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}
