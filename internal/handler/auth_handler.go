package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string, userID string, client models.ClientInfo) error
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
	VerifyPasswordResetLink(ctx context.Context, uid, token string) error
	ResetPassword(ctx context.Context, uid, token string, req models.ResetPasswordRequest, client models.ClientInfo) error
}

// AuthHandler serves the session endpoints under /auth.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login godoc
// @Summary Sign in to the admin
// @Description Issues an access and refresh token pair. Only staff and superusers may sign in.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	req.ClientInfo = clientInfo(c)
	res, err := h.service.Login(c.Request.Context(), req)
	respond(c, http.StatusOK, res, err)
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Revokes the presented refresh token and returns a fresh token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if !bindJSON(c, &req, "invalid refresh payload") {
		return
	}
	req.ClientInfo = clientInfo(c)
	pair, err := h.service.RefreshToken(c.Request.Context(), req)
	respond(c, http.StatusOK, pair, err)
}

// Logout godoc
// @Summary End the current session
// @Description Revokes a refresh token owned by the caller
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Refresh token"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req logoutRequest
	if !bindJSON(c, &req, "refresh token required") {
		return
	}
	if err := h.service.Logout(c.Request.Context(), req.RefreshToken, claims.UserID, clientInfo(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Description Every refresh token of the user is revoked afterwards
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Old and new password"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req, "invalid payload") {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current user
// @Description Profile of the authenticated user with its permission codenames
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	info, err := h.service.Me(c.Request.Context(), claims.UserID)
	respond(c, http.StatusOK, info, err)
}

// VerifyPasswordReset godoc
// @Summary Check a password reset link
// @Tags Authentication
// @Produce json
// @Param uid path string true "Encoded user id"
// @Param token path string true "Reset token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/password-reset/{uid}/{token} [get]
func (h *AuthHandler) VerifyPasswordReset(c *gin.Context) {
	if err := h.service.VerifyPasswordResetLink(c.Request.Context(), c.Param("uid"), c.Param("token")); err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Status >= http.StatusInternalServerError {
			response.Error(c, err)
			return
		}
		response.Message(c, http.StatusBadRequest, appErr.Message, gin.H{"valid": false})
		return
	}
	response.Message(c, http.StatusOK, "Token is valid.", gin.H{"valid": true})
}

// ResetPassword godoc
// @Summary Set a new password through a reset link
// @Description The link stops working once the password changes. Every session is revoked.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param uid path string true "Encoded user id"
// @Param token path string true "Reset token"
// @Param payload body models.ResetPasswordRequest true "New password"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/password-reset/{uid}/{token} [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, &req, "Invalid request") {
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), c.Param("uid"), c.Param("token"), req, clientInfo(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Successfully updated password", gin.H{"success": true})
}

// bindJSON decodes the request body into dest, answering 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// requireClaims answers 401 when the request carries no JWT claims.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// respond writes err when set, otherwise data with status.
func respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, data, nil)
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
}
