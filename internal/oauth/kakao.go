package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

// KakaoVerifier validates a Kakao access token by calling the user-info API.
// Kakao has no local verification path: a token is valid iff the API accepts
// it.
type KakaoVerifier struct {
	userInfoURL string
	http        *http.Client
	logger      *zap.Logger
}

func NewKakaoVerifier(logger *zap.Logger) *KakaoVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KakaoVerifier{
		userInfoURL: kakaoUserInfoURL,
		http:        &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

type kakaoUserResponse struct {
	ID         int64 `json:"id"`
	Properties struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (v *KakaoVerifier) Verify(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kakao: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kakao: user info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("kakao user info unexpected status", zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("kakao: user info status %d", resp.StatusCode)
	}

	var body kakaoUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("kakao: parse user info: %w", err)
	}
	if body.ID == 0 {
		return nil, ErrInvalidToken
	}

	name := body.KakaoAccount.Profile.Nickname
	if name == "" {
		name = body.Properties.Nickname
	}
	photo := body.KakaoAccount.Profile.ProfileImageURL
	if photo == "" {
		photo = body.Properties.ProfileImage
	}

	return &Profile{
		UID:      strconv.FormatInt(body.ID, 10),
		Email:    body.KakaoAccount.Email,
		Name:     name,
		PhotoURL: photo,
	}, nil
}
