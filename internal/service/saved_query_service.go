package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type savedQueryRepository interface {
	List(ctx context.Context) ([]models.SavedQuery, error)
	FindByID(ctx context.Context, id string) (*models.SavedQuery, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, q *models.SavedQuery) error
	Update(ctx context.Context, q *models.SavedQuery) error
	Delete(ctx context.Context, id string) error
}

type conditionRunner interface {
	Query(ctx context.Context, modelID string, where sq.Sqlizer, ordering []string, limit int) ([]models.Record, error)
}

type descriptorSource interface {
	Extract(ctx context.Context, modelID string, mode models.FormMode, pk string) (models.FieldDescriptors, error)
}

// SavedQueryService manages query builder definitions and runs them against model records.
type SavedQueryService struct {
	repo        savedQueryRepository
	schemas     SchemaProvider
	runner      conditionRunner
	descriptors descriptorSource
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSavedQueryService constructs the saved query service.
func NewSavedQueryService(repo savedQueryRepository, schemas SchemaProvider, runner conditionRunner, descriptors descriptorSource, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SavedQueryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SavedQueryService{
		repo:        repo,
		schemas:     schemas,
		runner:      runner,
		descriptors: descriptors,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// List returns every saved query. The boolean reports a cache hit.
func (s *SavedQueryService) List(ctx context.Context) ([]models.SavedQuery, bool, error) {
	return Remember(ctx, s.cache, models.CacheKeySavedQueries, 0, func(ctx context.Context) ([]models.SavedQuery, error) {
		queries, err := s.repo.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved queries")
		}
		if queries == nil {
			queries = []models.SavedQuery{}
		}
		return queries, nil
	})
}

// Get returns one saved query.
func (s *SavedQueryService) Get(ctx context.Context, id string) (*models.SavedQuery, error) {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "saved query not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load saved query")
	}
	return q, nil
}

// Create stores a new definition. Names are unique.
func (s *SavedQueryService) Create(ctx context.Context, req models.SavedQueryRequest) (*models.SavedQuery, error) {
	if err := s.check(ctx, req, ""); err != nil {
		return nil, err
	}
	q := &models.SavedQuery{Name: req.Name, Query: req.Query}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create saved query")
	}
	s.invalidate(ctx)
	return q, nil
}

// Update rewrites an existing definition.
func (s *SavedQueryService) Update(ctx context.Context, id string, req models.SavedQueryRequest) (*models.SavedQuery, error) {
	if err := s.check(ctx, req, id); err != nil {
		return nil, err
	}
	q := &models.SavedQuery{ID: id, Name: req.Name, Query: req.Query}
	if err := s.repo.Update(ctx, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "saved query not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update saved query")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a definition.
func (s *SavedQueryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "saved query not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete saved query")
	}
	s.invalidate(ctx)
	return nil
}

// Run compiles the conditions of def against its model and returns the matching records.
func (s *SavedQueryService) Run(ctx context.Context, def models.QueryDefinition) (*models.QueryResult, error) {
	if err := s.validator.Struct(def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query definition")
	}
	modelID := ModelID(def.AppName, def.ModelName)
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}

	conds, err := TransformConditions(def.Conditions, Describe(schema))
	if err != nil {
		return nil, err
	}
	where, err := CompileConditions(conds, ColumnMap(schema))
	if err != nil {
		return nil, err
	}

	limit := 0
	if def.QueryLimit != nil {
		limit = *def.QueryLimit
	}
	rows, err := s.runner.Query(ctx, modelID, where, def.Orderings, limit)
	if err != nil {
		return nil, err
	}
	return &models.QueryResult{ModelID: schema.ID(), Count: len(rows), Records: rows}, nil
}

// Builder returns the descriptors of a model for building conditions against it.
func (s *SavedQueryService) Builder(ctx context.Context, modelID string) (models.FieldDescriptors, error) {
	return s.descriptors.Extract(ctx, modelID, models.FormAdd, "")
}

func (s *SavedQueryService) check(ctx context.Context, req models.SavedQueryRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid saved query payload")
	}
	if _, err := s.schemas.Model(req.Query.ModelID()); err != nil {
		return err
	}
	exists, err := s.repo.ExistsByName(ctx, req.Name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check saved query name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("A record with %s already exists", req.Name))
	}
	return nil
}

func (s *SavedQueryService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, models.CacheKeySavedQueries); err != nil {
		s.logger.Warn("invalidate saved queries", zap.Error(err))
	}
}
