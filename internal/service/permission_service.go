package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

var modelVerbs = []string{models.PermAdd, models.PermEdit, models.PermDelete, models.PermView}

type permissionLister interface {
	ListPermissions(ctx context.Context, userID string) ([]string, error)
}

// PermissionService answers per-model permission checks on top of the staff and superuser flags.
type PermissionService struct {
	repo   permissionLister
	logger *zap.Logger
}

// NewPermissionService constructs a permission service.
func NewPermissionService(repo permissionLister, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{repo: repo, logger: logger}
}

// Has reports whether the caller may apply perm to the model.
func (s *PermissionService) Has(ctx context.Context, claims *models.JWTClaims, schema *models.ModelSchema, perm string) (bool, error) {
	if claims == nil {
		return false, nil
	}
	if claims.IsSuperuser {
		return true, nil
	}
	if !claims.IsStaff {
		return false, nil
	}
	granted, err := s.repo.ListPermissions(ctx, claims.UserID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permissions")
	}
	want := models.PermissionCodename(schema.App, schema.Name, perm)
	for _, codename := range granted {
		if codename == want {
			return true, nil
		}
	}
	return false, nil
}

// Require returns a PermissionDenied error unless the caller holds perm on the model.
func (s *PermissionService) Require(ctx context.Context, claims *models.JWTClaims, schema *models.ModelSchema, perm string) error {
	ok, err := s.Has(ctx, claims, schema, perm)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.ErrForbidden
	}
	return nil
}

// ModelPerms returns the add/edit/delete/view flags of every model for one caller.
func (s *PermissionService) ModelPerms(ctx context.Context, claims *models.JWTClaims, schemas []*models.ModelSchema) (map[string]map[string]bool, error) {
	out := make(map[string]map[string]bool, len(schemas))
	granted := map[string]struct{}{}
	if claims != nil && !claims.IsSuperuser && claims.IsStaff {
		codenames, err := s.repo.ListPermissions(ctx, claims.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permissions")
		}
		for _, c := range codenames {
			granted[c] = struct{}{}
		}
	}
	for _, schema := range schemas {
		perms := make(map[string]bool, 4)
		for _, perm := range modelVerbs {
			if claims != nil && claims.IsSuperuser {
				perms[perm] = true
				continue
			}
			_, ok := granted[models.PermissionCodename(schema.App, schema.Name, perm)]
			perms[perm] = ok
		}
		out[schema.ID()] = perms
	}
	return out, nil
}

// Catalogue lists every grantable codename: the four verbs of each model plus view on the
// audit trail.
func (s *PermissionService) Catalogue(schemas []*models.ModelSchema) []models.Permission {
	out := make([]models.Permission, 0, len(schemas)*len(modelVerbs)+1)
	for _, schema := range schemas {
		for _, perm := range modelVerbs {
			out = append(out, permissionOf(schema, perm))
		}
	}
	return append(out, permissionOf(LogEntrySchema(), models.PermView))
}

// Tree organizes the permissions held by user. Superusers hold the whole catalogue and
// codenames outside it are dropped.
func (s *PermissionService) Tree(user *models.UserInfo, schemas []*models.ModelSchema) models.PermissionTree {
	held := make(map[string]struct{}, len(user.Permissions))
	for _, c := range user.Permissions {
		held[c] = struct{}{}
	}
	tree := models.PermissionTree{}
	for _, p := range s.Catalogue(schemas) {
		if _, ok := held[p.Codename]; ok || user.IsSuperuser {
			tree.Add(p)
		}
	}
	return tree
}

func permissionOf(schema *models.ModelSchema, perm string) models.Permission {
	return models.Permission{
		Codename: models.PermissionCodename(schema.App, schema.Name, perm),
		Name:     fmt.Sprintf("Can %s %s", perm, strings.ToLower(objectLabel(schema))),
		App:      schema.App,
		Model:    schema.Name,
		Perm:     perm,
	}
}
