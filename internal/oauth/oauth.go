// Package oauth verifies social-login tokens against the identity providers
// and normalizes the result into a single profile shape.
package oauth

import (
	"context"
	"errors"
)

// Profile is the provider-agnostic identity extracted from a verified token.
// UID is the provider's stable user id, not yet prefixed.
type Profile struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
}

// Verifier checks a provider token and returns the profile it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Profile, error)
}

// ErrInvalidToken means the provider rejected the token or the token failed
// local validation. Handlers map this to a 401.
var ErrInvalidToken = errors.New("oauth: invalid token")
