package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	appleKeysURL  = "https://appleid.apple.com/auth/keys"
	appleIssuer   = "https://appleid.apple.com"
	appleKeyCache = 6 * time.Hour
)

// AppleVerifier validates a Sign in with Apple identity token locally:
// RS256 signature against Apple's published JWKS, plus issuer and audience
// checks. The key set is cached and refetched on unknown kid.
type AppleVerifier struct {
	keysURL  string
	clientID string
	http     *http.Client
	logger   *zap.Logger

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewAppleVerifier(clientID string, logger *zap.Logger) *AppleVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppleVerifier{
		keysURL:  appleKeysURL,
		clientID: clientID,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

type appleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *AppleVerifier) Verify(ctx context.Context, identityToken string) (*Profile, error) {
	claims := jwtlib.MapClaims{}
	token, err := jwtlib.ParseWithClaims(identityToken, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("apple: unexpected signing method %s", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("apple: token has no kid")
		}
		return v.publicKey(ctx, kid)
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if iss, _ := claims["iss"].(string); iss != appleIssuer {
		return nil, ErrInvalidToken
	}
	if v.clientID != "" {
		if aud, _ := claims["aud"].(string); aud != v.clientID {
			v.logger.Warn("apple identity token audience mismatch")
			return nil, ErrInvalidToken
		}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)

	// Apple does not put a display name in the token.
	return &Profile{UID: sub, Email: email}, nil
}

func (v *AppleVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < appleKeyCache {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, nil)
	if err != nil {
		return nil, fmt.Errorf("apple: build keys request: %w", err)
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apple: fetch keys: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Keys []appleJWK `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("apple: parse keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, jwk := range body.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		key, err := jwkToRSA(jwk)
		if err != nil {
			v.logger.Warn("apple jwk skipped", zap.String("kid", jwk.Kid), zap.Error(err))
			continue
		}
		keys[jwk.Kid] = key
	}
	v.keys = keys
	v.fetchedAt = time.Now()

	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("apple: unknown signing key %s", kid)
	}
	return key, nil
}

func jwkToRSA(jwk appleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
