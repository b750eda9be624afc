package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/middleware"
	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/pkg/response"
)

type tokenVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type documentationService interface {
	List(ctx context.Context) ([]models.ModelDocumentation, bool, error)
	ForModel(ctx context.Context, app, model string) (*models.ModelDocumentation, error)
}

// SiteHandler serves admin-wide endpoints that are not bound to one model.
type SiteHandler struct {
	verifier tokenVerifier
	docs     documentationService
	logger   *zap.Logger
}

// NewSiteHandler constructs the handler.
func NewSiteHandler(verifier tokenVerifier, docs documentationService, logger *zap.Logger) *SiteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteHandler{verifier: verifier, docs: docs, logger: logger}
}

type verifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyToken godoc
// @Summary Verify a bot-protection token
// @Description Upstream failures report valid=false
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body verifyTokenRequest true "Token"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/verify-token [post]
func (h *SiteHandler) VerifyToken(c *gin.Context) {
	var req verifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, http.StatusBadRequest, gin.H{"valid": false}, nil)
		return
	}
	valid, err := h.verifier.Verify(c.Request.Context(), req.Token, clientIP(c))
	if err != nil {
		h.logger.Error("verify turnstile token", zap.Error(err))
		response.JSON(c, http.StatusBadRequest, gin.H{"valid": false}, nil)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"valid": valid}, nil)
}

// ModelDocs godoc
// @Summary List model documentation
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/model-docs [get]
func (h *SiteHandler) ModelDocs(c *gin.Context) {
	docs, hit, err := h.docs.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, docs, nil, middleware.ExtractMeta(c))
}

// ModelDoc godoc
// @Summary Documentation of one model
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/model-docs/{app}/{model} [get]
func (h *SiteHandler) ModelDoc(c *gin.Context) {
	doc, err := h.docs.ForModel(c.Request.Context(), c.Param("app"), c.Param("model"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
