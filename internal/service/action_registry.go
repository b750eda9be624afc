package service

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// ActionRequest carries the caller and the selected primary keys of a bulk action.
type ActionRequest struct {
	Claims  *models.JWTClaims
	ModelID string
	PKs     []interface{}
}

// ActionResult is the response of a successful bulk action.
type ActionResult struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

// ActionFunc runs a bulk action.
type ActionFunc func(ctx context.Context, req ActionRequest) (*ActionResult, error)

// ActionRegistry maps action names to their implementation.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
	metrics *MetricsService
	logger  *zap.Logger
}

// NewActionRegistry constructs an empty registry.
func NewActionRegistry(metrics *MetricsService, logger *zap.Logger) *ActionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionRegistry{actions: make(map[string]ActionFunc), metrics: metrics, logger: logger}
}

// Register binds fn to name, replacing any earlier binding.
func (r *ActionRegistry) Register(name string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Names lists registered actions alphabetically.
func (r *ActionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for name := range r.actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run invokes the named action.
func (r *ActionRegistry) Run(ctx context.Context, name string, req ActionRequest) (*ActionResult, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		r.metrics.ObserveBulkAction(req.ModelID, name, http.StatusBadRequest)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("An error occurred while performing %s", name))
	}

	result, err := fn(ctx, req)
	if err != nil {
		r.metrics.ObserveBulkAction(req.ModelID, name, appErrors.FromError(err).Status)
		r.logger.Warn("bulk action failed", zap.String("action", name), zap.String("model", req.ModelID), zap.Error(err))
		return nil, err
	}
	r.metrics.ObserveBulkAction(req.ModelID, name, result.Status)
	return result, nil
}

type bulkDeleter interface {
	DeleteMany(ctx context.Context, modelID string, pks []interface{}) (int64, error)
}

type permissionChecker interface {
	Require(ctx context.Context, claims *models.JWTClaims, schema *models.ModelSchema, perm string) error
}

// DeleteAction removes the selected records. Requires the delete permission.
func DeleteAction(schemas SchemaProvider, perms permissionChecker, records bulkDeleter) ActionFunc {
	return func(ctx context.Context, req ActionRequest) (*ActionResult, error) {
		schema, err := schemas.Model(req.ModelID)
		if err != nil {
			return nil, err
		}
		if err := perms.Require(ctx, req.Claims, schema, models.PermDelete); err != nil {
			return nil, err
		}
		if _, err := records.DeleteMany(ctx, req.ModelID, req.PKs); err != nil {
			return nil, err
		}
		return &ActionResult{
			Status:  http.StatusAccepted,
			Message: fmt.Sprintf("Deleted %d record/s successfully", len(req.PKs)),
		}, nil
	}
}

type graphCopier interface {
	Copy(ctx context.Context, modelID string, pk string, overrides models.FieldOverrides) (*models.CopyResult, error)
}

// CopyAction duplicates each selected record graph using the model's copy overrides.
// Requires the add permission. Collected failures produce a PartialFailure whose message is
// an HTML list of every problem.
func CopyAction(schemas SchemaProvider, perms permissionChecker, copier graphCopier, metrics *MetricsService) ActionFunc {
	return func(ctx context.Context, req ActionRequest) (*ActionResult, error) {
		schema, err := schemas.Model(req.ModelID)
		if err != nil {
			return nil, err
		}
		admin, err := schemas.Admin(req.ModelID)
		if err != nil {
			return nil, err
		}
		if err := perms.Require(ctx, req.Claims, schema, models.PermAdd); err != nil {
			return nil, err
		}

		var problems []string
		for _, pk := range req.PKs {
			result, err := copier.Copy(ctx, req.ModelID, cast.ToString(pk), admin.CopyOverrides)
			if err != nil {
				problems = append(problems, appErrors.FromError(err).Message)
				continue
			}
			metrics.ObserveCopy(req.ModelID, result.Created, len(result.Errors))
			problems = append(problems, result.Errors...)
		}

		if len(problems) > 0 {
			return nil, appErrors.WithDetails(appErrors.ErrPartialFailure, htmlList(problems), problems)
		}
		return &ActionResult{
			Status:  http.StatusAccepted,
			Message: fmt.Sprintf("Copied %d record/s successfully", len(req.PKs)),
		}, nil
	}
}

func htmlList(items []string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(item))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// NewAdminActions builds the registry of built-in actions. The copy action is only offered when
// demoMode is set.
func NewAdminActions(schemas SchemaProvider, perms permissionChecker, records bulkDeleter, copier graphCopier, metrics *MetricsService, demoMode bool, logger *zap.Logger) *ActionRegistry {
	r := NewActionRegistry(metrics, logger)
	r.Register(models.ActionDelete, DeleteAction(schemas, perms, records))
	if demoMode {
		r.Register(models.ActionCopy, CopyAction(schemas, perms, copier, metrics))
	}
	return r
}
