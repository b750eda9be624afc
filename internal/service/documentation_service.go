package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type documentationRepository interface {
	List(ctx context.Context) ([]models.ModelDocumentation, error)
	FindByModel(ctx context.Context, appModelName string) (*models.ModelDocumentation, error)
}

// DocumentationService serves admin-authored model documentation.
type DocumentationService struct {
	repo   documentationRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewDocumentationService constructs the documentation service.
func NewDocumentationService(repo documentationRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DocumentationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentationService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// List returns every documentation entry. The boolean reports a cache hit.
func (s *DocumentationService) List(ctx context.Context) ([]models.ModelDocumentation, bool, error) {
	return Remember(ctx, s.cache, models.CacheKeyModelDocs, s.ttl, func(ctx context.Context) ([]models.ModelDocumentation, error) {
		docs, err := s.repo.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list model documentation")
		}
		if docs == nil {
			docs = []models.ModelDocumentation{}
		}
		return docs, nil
	})
}

// ForModel returns the documentation of one model.
func (s *DocumentationService) ForModel(ctx context.Context, app, model string) (*models.ModelDocumentation, error) {
	doc, err := s.repo.FindByModel(ctx, app+" - "+model)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no documentation for "+ModelID(app, model))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load model documentation")
	}
	return doc, nil
}
