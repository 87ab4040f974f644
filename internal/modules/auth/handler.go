package auth

import (
	"errors"
	"net/http"

	"charzing/internal/domain"
	"charzing/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/kakao", h.KakaoLogin)
	rg.POST("/auth/google", h.GoogleLogin)
	rg.POST("/auth/apple", h.AppleLogin)
	rg.POST("/auth/admin/login", h.AdminLogin)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/me", h.Me)
	rg.PATCH("/auth/me", h.UpdateMe)
}

// KakaoLogin godoc
// @Summary      Exchange a Kakao access token for an app token
// @Description  Verifies the token against Kakao user-info API and upserts the account
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body KakaoLoginRequest true "Kakao access token"
// @Success      200 {object} LoginResponse
// @Router       /auth/kakao [post]
func (h *Handler) KakaoLogin(c *gin.Context) {
	var req KakaoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "카카오 액세스 토큰이 필요합니다.")
		return
	}
	h.finishSocialLogin(c, func() (*LoginResult, error) {
		return h.service.LoginWithKakao(c.Request.Context(), req.KakaoAccessToken)
	}, "유효하지 않은 카카오 토큰입니다.")
}

// GoogleLogin godoc
// @Summary      Exchange a Google ID token for an app token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body GoogleLoginRequest true "Google ID token"
// @Success      200 {object} LoginResponse
// @Router       /auth/google [post]
func (h *Handler) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "구글 ID 토큰이 필요합니다.")
		return
	}
	h.finishSocialLogin(c, func() (*LoginResult, error) {
		return h.service.LoginWithGoogle(c.Request.Context(), req.IDToken)
	}, "유효하지 않은 구글 토큰입니다.")
}

// AppleLogin godoc
// @Summary      Exchange an Apple identity token for an app token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body AppleLoginRequest true "Apple identity token"
// @Success      200 {object} LoginResponse
// @Router       /auth/apple [post]
func (h *Handler) AppleLogin(c *gin.Context) {
	var req AppleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "애플 ID 토큰이 필요합니다.")
		return
	}
	h.finishSocialLogin(c, func() (*LoginResult, error) {
		return h.service.LoginWithApple(c.Request.Context(), req.IdentityToken)
	}, "유효하지 않은 애플 토큰입니다.")
}

func (h *Handler) finishSocialLogin(c *gin.Context, login func() (*LoginResult, error), invalidMsg string) {
	result, err := login()
	if err != nil {
		if errors.Is(err, ErrInvalidProviderToken) {
			response.Fail(c, http.StatusBadRequest, invalidMsg)
			return
		}
		response.Fail(c, http.StatusInternalServerError, "로그인 처리 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Success:        true,
		CustomToken:    result.CustomToken,
		UserInfo:       toUserInfo(result.User),
		IsExistingUser: result.IsExistingUser,
	})
}

// AdminLogin godoc
// @Summary      Email+password login for the management surface
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body AdminLoginRequest true "Credentials"
// @Success      200 {object} LoginResponse
// @Router       /auth/admin/login [post]
func (h *Handler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	result, err := h.service.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "이메일 또는 비밀번호가 올바르지 않습니다.")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Success:        true,
		CustomToken:    result.CustomToken,
		UserInfo:       toUserInfo(result.User),
		IsExistingUser: true,
	})
}

// Me godoc
// @Summary      Current account profile
// @Tags         Auth
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} UserInfo
// @Router       /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID := c.GetString("user_id")
	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	response.Success(c, http.StatusOK, toUserInfo(user))
}

// UpdateMe godoc
// @Summary      Update the current account profile
// @Tags         Auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} UserInfo
// @Router       /auth/me [patch]
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	userID := c.GetString("user_id")
	user, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "프로필 업데이트에 실패했습니다.")
		return
	}
	response.Success(c, http.StatusOK, toUserInfo(user))
}

func toUserInfo(u *domain.User) *UserInfo {
	return &UserInfo{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Provider:    string(u.Provider),
		Role:        string(u.Role),
	}
}
