package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"anoa.com/sparkvest/internal/flow"
	"anoa.com/sparkvest/internal/middleware"
	"anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/internal/modules/user/service"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/response"
	"anoa.com/sparkvest/pkg/validator"
	"github.com/gin-gonic/gin"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService service.AuthService
	frontendURL string
	secure      bool
}

func NewAuthHandler(authService service.AuthService, frontendURL string, secure bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		frontendURL: frontendURL,
		secure:      secure,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if res.Flow != nil {
		c.JSON(http.StatusAccepted, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	var input dto.VerifyOtpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.VerifyOtp(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) ResendOtp(c *gin.Context) {
	var input dto.ResendOtpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.ResendOtp(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var input dto.ForgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.ForgotPassword(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) VerifyPasswordOtp(c *gin.Context) {
	var input dto.VerifyOtpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.authService.VerifyPasswordOtp(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var input dto.ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), input); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Your password has been reset. You can now log in."})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID, exp := middleware.TokenInfo(c)
	if err := h.authService.Logout(c.Request.Context(), tokenID, exp); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "You have been logged out."})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := flow.NewToken(24)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.secure, true)
	c.Redirect(http.StatusTemporaryRedirect, h.authService.GoogleLogin(state))
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	expected, _ := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secure, true)

	if expected == "" || !flow.CodesMatch(expected, c.Query("state")) {
		h.redirectLoginError(c, errors.New("invalid oauth state"))
		return
	}

	code := c.Query("code")
	if code == "" {
		h.redirectLoginError(c, errors.New("code not found"))
		return
	}

	res, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		if apperror.MapErrorToStatus(err) == http.StatusInternalServerError {
			response.ResponseError(c, err)
			return
		}
		h.redirectLoginError(c, apperror.ErrFederation)
		return
	}

	redirectURL := fmt.Sprintf("%s/auth/google/callback?token=%s", h.frontendURL, url.QueryEscape(res.AccessToken))
	c.Redirect(http.StatusTemporaryRedirect, redirectURL)
}

func (h *AuthHandler) redirectLoginError(c *gin.Context, err error) {
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?error="+url.QueryEscape(err.Error()))
}

type DirectoryHandler struct {
	directory service.DirectoryService
}

func NewDirectoryHandler(directory service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

func (h *DirectoryHandler) SearchUsers(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.SearchUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	users, err := h.directory.SearchUsers(c.Request.Context(), userID, query.Query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}
