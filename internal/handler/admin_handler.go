package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/service"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/export"
	"github.com/noah-isme/admin-api/pkg/response"
)

type schemaLookup interface {
	Model(modelID string) (*models.ModelSchema, error)
	Admin(modelID string) (*models.ModelAdmin, error)
}

type permissionGuard interface {
	Require(ctx context.Context, claims *models.JWTClaims, schema *models.ModelSchema, perm string) error
}

type descriptorExtractor interface {
	Extract(ctx context.Context, modelID string, mode models.FormMode, pk string) (models.FieldDescriptors, error)
}

type adminSettingsProvider interface {
	Settings(ctx context.Context, modelID string) (*models.AdminSettings, error)
	Apps(ctx context.Context, claims *models.JWTClaims) ([]models.AppEntry, error)
}

type recordManager interface {
	List(ctx context.Context, modelID string, params models.ListParams) (*service.RecordList, error)
	Get(ctx context.Context, modelID, pk string) (models.Record, error)
	Create(ctx context.Context, modelID string, payload map[string]interface{}) (*service.MutationResult, error)
	Update(ctx context.Context, modelID, pk string, payload map[string]interface{}) (*service.MutationResult, error)
	Delete(ctx context.Context, modelID, pk string) (*service.MutationResult, error)
	Inline(ctx context.Context, modelID, pk, name string, limit, offset int) (*service.RecordList, error)
	StoreUpload(ctx context.Context, modelID, fieldName, filename string, size int64, contentType string, r io.Reader) (string, error)
}

type recordGraphCopier interface {
	Copy(ctx context.Context, modelID string, pk string, overrides models.FieldOverrides) (*models.CopyResult, error)
}

type actionRunner interface {
	Run(ctx context.Context, name string, req service.ActionRequest) (*service.ActionResult, error)
}

type listExporter interface {
	Export(ctx context.Context, modelID string, params models.ListParams, format export.Format) (*service.ExportFile, int, error)
	Publish(ctx context.Context, modelID string, params models.ListParams, format export.Format) (*service.ExportResult, error)
}

// AdminHandlerDeps groups the collaborators of AdminHandler.
type AdminHandlerDeps struct {
	Schemas  schemaLookup
	Perms    permissionGuard
	Fields   descriptorExtractor
	Settings adminSettingsProvider
	Records  recordManager
	Copier   recordGraphCopier
	Actions  actionRunner
	Exports  listExporter
}

// AdminHandler serves the metadata and record endpoints of every registered model.
type AdminHandler struct {
	deps AdminHandlerDeps
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(deps AdminHandlerDeps) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// authorize loads the model named by the route and checks perm for the caller.
func (h *AdminHandler) authorize(c *gin.Context, perm string) (*models.ModelSchema, bool) {
	schema, err := h.deps.Schemas.Model(modelIDParam(c))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if err := h.deps.Perms.Require(c.Request.Context(), claimsFromContext(c), schema, perm); err != nil {
		response.Error(c, err)
		return nil, false
	}
	return schema, true
}

// Apps godoc
// @Summary List admin apps
// @Description Registered apps and the models the caller may see
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/apps [get]
func (h *AdminHandler) Apps(c *gin.Context) {
	apps, err := h.deps.Settings.Apps(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, nil)
}

// AddFields godoc
// @Summary Field descriptors of the add form
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/models/{app}/{model}/fields [get]
func (h *AdminHandler) AddFields(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermAdd)
	if !ok {
		return
	}
	fields, err := h.deps.Fields.Extract(c.Request.Context(), schema.ID(), models.FormAdd, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fields, nil)
}

// EditFields godoc
// @Summary Field descriptors of the edit form
// @Description Descriptors carry the initial value of each field for the record
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param pk path string true "Primary key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/models/{app}/{model}/{pk}/fields [get]
func (h *AdminHandler) EditFields(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermView)
	if !ok {
		return
	}
	fields, err := h.deps.Fields.Extract(c.Request.Context(), schema.ID(), models.FormEdit, c.Param("pk"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fields, nil)
}

// Settings godoc
// @Summary Admin settings of a model
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Success 200 {object} response.Envelope
// @Router /admin/models/{app}/{model}/settings [get]
func (h *AdminHandler) Settings(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermView)
	if !ok {
		return
	}
	settings, err := h.deps.Settings.Settings(c.Request.Context(), schema.ID())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// ListRecords godoc
// @Summary List view of a model
// @Description Query parameters other than limit, offset and custom_search are JSON array filters
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Param custom_search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /admin/models/{app}/{model}/records [get]
func (h *AdminHandler) ListRecords(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermView)
	if !ok {
		return
	}
	params, err := listParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.deps.Records.List(c.Request.Context(), schema.ID(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Records, list.Pagination)
}

// GetRecord godoc
// @Summary Get a record
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param pk path string true "Primary key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/models/{app}/{model}/records/{pk} [get]
func (h *AdminHandler) GetRecord(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermView)
	if !ok {
		return
	}
	rec, err := h.deps.Records.Get(c.Request.Context(), schema.ID(), c.Param("pk"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// CreateRecord godoc
// @Summary Create a record
// @Tags Admin
// @Accept json
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param payload body map[string]interface{} true "Field values"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/models/{app}/{model}/records [post]
func (h *AdminHandler) CreateRecord(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermAdd)
	if !ok {
		return
	}
	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	result, err := h.deps.Records.Create(c.Request.Context(), schema.ID(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, result.Message, result)
}

// UpdateRecord godoc
// @Summary Update a record
// @Tags Admin
// @Accept json
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param pk path string true "Primary key"
// @Param payload body map[string]interface{} true "Field values"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/models/{app}/{model}/records/{pk} [put]
func (h *AdminHandler) UpdateRecord(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermEdit)
	if !ok {
		return
	}
	payload, ok := bindPayload(c)
	if !ok {
		return
	}
	result, err := h.deps.Records.Update(c.Request.Context(), schema.ID(), c.Param("pk"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, result.Message, result)
}

// DeleteRecord godoc
// @Summary Delete a record
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param pk path string true "Primary key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/models/{app}/{model}/records/{pk} [delete]
func (h *AdminHandler) DeleteRecord(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermDelete)
	if !ok {
		return
	}
	result, err := h.deps.Records.Delete(c.Request.Context(), schema.ID(), c.Param("pk"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, result.Message, result)
}

// CopyRecord godoc
// @Summary Copy a record graph
// @Description Duplicates the record with its one-to-one and cascade-copied children
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param pk path string true "Primary key"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/models/{app}/{model}/records/{pk}/copy [post]
func (h *AdminHandler) CopyRecord(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermAdd)
	if !ok {
		return
	}
	admin, err := h.deps.Schemas.Admin(schema.ID())
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.deps.Copier.Copy(c.Request.Context(), schema.ID(), c.Param("pk"), admin.CopyOverrides)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.NewPK == nil {
		response.Error(c, appErrors.WithDetails(appErrors.ErrPartialFailure, strings.Join(result.Errors, "; "), result.Errors))
		return
	}
	message := fmt.Sprintf("Copied record with pk %s to pk %v", c.Param("pk"), result.NewPK)
	if n := len(result.Errors); n > 0 {
		message = fmt.Sprintf("%s with %d errors", message, n)
	}
	response.Message(c, http.StatusCreated, message, result)
}

type actionPayload struct {
	Payload interface{} `json:"payload"`
}

// RunAction godoc
// @Summary Run a bulk action
// @Description Payload is {"payload": [pk, ...]}
// @Tags Admin
// @Accept json
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param action path string true "Action name"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/models/{app}/{model}/actions/{action} [post]
func (h *AdminHandler) RunAction(c *gin.Context) {
	var body actionPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid payload"))
		return
	}
	pks, ok := body.Payload.([]interface{})
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid payload"))
		return
	}

	result, err := h.deps.Actions.Run(c.Request.Context(), c.Param("action"), service.ActionRequest{
		Claims:  claimsFromContext(c),
		ModelID: modelIDParam(c),
		PKs:     pks,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, result.Status, result.Message, nil)
}

// Inline godoc
// @Summary Inline list view beneath a record
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param pk path string true "Parent primary key"
// @Param inline path string true "Inline model name"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /admin/models/{app}/{model}/records/{pk}/inlines/{inline} [get]
func (h *AdminHandler) Inline(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermView)
	if !ok {
		return
	}
	limit, err := intQuery(c, paramLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	offset, err := intQuery(c, paramOffset)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.deps.Records.Inline(c.Request.Context(), schema.ID(), c.Param("pk"), c.Param("inline"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Records, list.Pagination)
}

// Export godoc
// @Summary Export the list view
// @Description Streams the file, or stores it and returns a signed url when publish=true
// @Tags Admin
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param format query string true "csv, pdf or xlsx"
// @Param publish query bool false "Store the export instead of streaming it"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/models/{app}/{model}/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermView)
	if !ok {
		return
	}
	params, err := listParams(c, paramFormat, "publish")
	if err != nil {
		response.Error(c, err)
		return
	}
	// Exports cover the whole filtered list, not one page.
	params.Limit, params.Offset = 0, 0
	format := export.Format(strings.ToLower(c.DefaultQuery(paramFormat, string(export.FormatCSV))))

	if c.Query("publish") == "true" {
		result, err := h.deps.Exports.Publish(c.Request.Context(), schema.ID(), params, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusCreated, result, nil)
		return
	}

	file, _, err := h.deps.Exports.Export(c.Request.Context(), schema.ID(), params, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// Upload godoc
// @Summary Upload a file for a file or image field
// @Description Returns the stored key to submit as the field value
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param app path string true "App label"
// @Param model path string true "Model name"
// @Param field path string true "Field name"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/models/{app}/{model}/upload/{field} [post]
func (h *AdminHandler) Upload(c *gin.Context) {
	schema, ok := h.authorize(c, models.PermAdd)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "file is required"),
			map[string][]string{"file": {"No file was submitted."}}))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	key, err := h.deps.Records.StoreUpload(c.Request.Context(), schema.ID(), c.Param("field"), header.Filename,
		header.Size, header.Header.Get("Content-Type"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"key": key})
}

func bindPayload(c *gin.Context) (map[string]interface{}, bool) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return nil, false
	}
	return payload, true
}
