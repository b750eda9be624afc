package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/internal/middleware"
	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/response"
)

type savedQueryService interface {
	List(ctx context.Context) ([]models.SavedQuery, bool, error)
	Get(ctx context.Context, id string) (*models.SavedQuery, error)
	Create(ctx context.Context, req models.SavedQueryRequest) (*models.SavedQuery, error)
	Update(ctx context.Context, id string, req models.SavedQueryRequest) (*models.SavedQuery, error)
	Delete(ctx context.Context, id string) error
	Run(ctx context.Context, def models.QueryDefinition) (*models.QueryResult, error)
	Builder(ctx context.Context, modelID string) (models.FieldDescriptors, error)
}

// SavedQueryHandler exposes the query builder.
type SavedQueryHandler struct {
	service savedQueryService
}

// NewSavedQueryHandler constructs the handler.
func NewSavedQueryHandler(svc savedQueryService) *SavedQueryHandler {
	return &SavedQueryHandler{service: svc}
}

// List godoc
// @Summary List saved queries
// @Tags Query Builder
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/saved-queries [get]
func (h *SavedQueryHandler) List(c *gin.Context) {
	queries, hit, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, queries, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a saved query
// @Tags Query Builder
// @Produce json
// @Param id path string true "Saved query ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/saved-queries/{id} [get]
func (h *SavedQueryHandler) Get(c *gin.Context) {
	q, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, q, nil)
}

// Create godoc
// @Summary Create a saved query
// @Tags Query Builder
// @Accept json
// @Produce json
// @Param payload body models.SavedQueryRequest true "Saved query"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/saved-queries [post]
func (h *SavedQueryHandler) Create(c *gin.Context) {
	var req models.SavedQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid saved query payload"))
		return
	}
	q, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, q)
}

// Update godoc
// @Summary Update a saved query
// @Tags Query Builder
// @Accept json
// @Produce json
// @Param id path string true "Saved query ID"
// @Param payload body models.SavedQueryRequest true "Saved query"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/saved-queries/{id} [put]
func (h *SavedQueryHandler) Update(c *gin.Context) {
	var req models.SavedQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid saved query payload"))
		return
	}
	q, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, q, nil)
}

// Delete godoc
// @Summary Delete a saved query
// @Tags Query Builder
// @Param id path string true "Saved query ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/saved-queries/{id} [delete]
func (h *SavedQueryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Run godoc
// @Summary Run a query definition
// @Description Compiles the conditions against the model and returns matching records
// @Tags Query Builder
// @Accept json
// @Produce json
// @Param payload body models.QueryDefinition true "Query definition"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/saved-queries/run [post]
func (h *SavedQueryHandler) Run(c *gin.Context) {
	var def models.QueryDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query definition"))
		return
	}
	result, err := h.service.Run(c.Request.Context(), def)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Builder godoc
// @Summary Field descriptors for building conditions
// @Tags Query Builder
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Success 200 {object} response.Envelope
// @Router /admin/saved-queries/builder/{app}/{model} [get]
func (h *SavedQueryHandler) Builder(c *gin.Context) {
	fields, err := h.service.Builder(c.Request.Context(), modelIDParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fields, nil)
}
