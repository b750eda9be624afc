package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/service"
	"github.com/noah-isme/admin-api/pkg/response"
)

// usersModel is the registered model guarding account administration.
const usersModel = "users.user"

type modelCatalogue interface {
	Model(modelID string) (*models.ModelSchema, error)
	Models() []*models.ModelSchema
}

type permissionDirectory interface {
	permissionGuard
	Catalogue(schemas []*models.ModelSchema) []models.Permission
	Tree(user *models.UserInfo, schemas []*models.ModelSchema) models.PermissionTree
}

type accountService interface {
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
	SendPasswordResetLink(ctx context.Context, userID string, client models.ClientInfo) error
}

type logEntryLister interface {
	List(ctx context.Context, claims *models.JWTClaims, filter models.AuditLogFilter) (*service.LogEntryList, error)
}

// UserAdminHandler serves account administration: the permission catalogue, per-user
// permissions, reset links and the audit trail.
type UserAdminHandler struct {
	schemas  modelCatalogue
	perms    permissionDirectory
	accounts accountService
	logs     logEntryLister
}

// NewUserAdminHandler constructs the handler.
func NewUserAdminHandler(schemas modelCatalogue, perms permissionDirectory, accounts accountService, logs logEntryLister) *UserAdminHandler {
	return &UserAdminHandler{schemas: schemas, perms: perms, accounts: accounts, logs: logs}
}

// Permissions godoc
// @Summary Permission catalogue
// @Description Every grantable codename
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/permissions [get]
func (h *UserAdminHandler) Permissions(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"permissions": h.perms.Catalogue(h.schemas.Models())}, nil)
}

// UserPermissions godoc
// @Summary Permissions of one user
// @Description Grouped by app, model and verb. Superusers hold the whole catalogue.
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id}/permissions [get]
func (h *UserAdminHandler) UserPermissions(c *gin.Context) {
	info, err := h.accounts.Me(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"permissions": h.perms.Tree(info, h.schemas.Models())}, nil)
}

// SendPasswordResetLink godoc
// @Summary Email a password reset link
// @Description Requires the edit permission on users
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id}/password-reset-link [post]
func (h *UserAdminHandler) SendPasswordResetLink(c *gin.Context) {
	schema, err := h.schemas.Model(usersModel)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.perms.Require(c.Request.Context(), claimsFromContext(c), schema, models.PermEdit); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.accounts.SendPasswordResetLink(c.Request.Context(), c.Param("id"), clientInfo(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password reset link has been sent to the email of the user", gin.H{"success": true})
}

// LogEntries godoc
// @Summary Audit trail
// @Description Newest first. Requires the log entry view permission.
// @Tags Users
// @Produce json
// @Param user_id query string false "Acting user"
// @Param action query string false "Action"
// @Param resource query string false "app.model or subsystem"
// @Param resource_id query string false "Primary key"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/log-entries [get]
func (h *UserAdminHandler) LogEntries(c *gin.Context) {
	filter := models.AuditLogFilter{
		UserID:     c.Query("user_id"),
		Action:     c.Query("action"),
		Resource:   c.Query("resource"),
		ResourceID: c.Query("resource_id"),
	}
	var err error
	if filter.Limit, err = intQuery(c, paramLimit); err != nil {
		response.Error(c, err)
		return
	}
	if filter.Offset, err = intQuery(c, paramOffset); err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.logs.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Entries, list.Pagination)
}
