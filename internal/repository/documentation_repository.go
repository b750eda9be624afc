package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admin-api/internal/models"
)

// DocumentationRepository reads admin-authored model documentation.
type DocumentationRepository struct {
	db *sqlx.DB
}

// NewDocumentationRepository constructs a documentation repository.
func NewDocumentationRepository(db *sqlx.DB) *DocumentationRepository {
	return &DocumentationRepository{db: db}
}

// List returns every documentation entry ordered by model name.
func (r *DocumentationRepository) List(ctx context.Context) ([]models.ModelDocumentation, error) {
	const query = `SELECT id, app_model_name, content, created_at, updated_at FROM model_documentation ORDER BY app_model_name`
	var docs []models.ModelDocumentation
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, fmt.Errorf("list model documentation: %w", err)
	}
	return docs, nil
}

// FindByModel returns the documentation of one `app - model` entry or sql.ErrNoRows.
func (r *DocumentationRepository) FindByModel(ctx context.Context, appModelName string) (*models.ModelDocumentation, error) {
	const query = `SELECT id, app_model_name, content, created_at, updated_at FROM model_documentation WHERE app_model_name = $1`
	var doc models.ModelDocumentation
	if err := r.db.GetContext(ctx, &doc, query, appModelName); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find model documentation: %w", err)
	}
	return &doc, nil
}
