package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admin-api/internal/models"
)

// SavedQueryRepository persists query builder definitions.
type SavedQueryRepository struct {
	db *sqlx.DB
}

// NewSavedQueryRepository constructs a saved query repository.
func NewSavedQueryRepository(db *sqlx.DB) *SavedQueryRepository {
	return &SavedQueryRepository{db: db}
}

// List returns every saved query ordered by name.
func (r *SavedQueryRepository) List(ctx context.Context) ([]models.SavedQuery, error) {
	const query = `SELECT id, name, query, created_at, updated_at FROM saved_queries ORDER BY name`
	var out []models.SavedQuery
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list saved queries: %w", err)
	}
	return out, nil
}

// FindByID returns a saved query or sql.ErrNoRows.
func (r *SavedQueryRepository) FindByID(ctx context.Context, id string) (*models.SavedQuery, error) {
	const query = `SELECT id, name, query, created_at, updated_at FROM saved_queries WHERE id = $1`
	var q models.SavedQuery
	if err := r.db.GetContext(ctx, &q, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find saved query: %w", err)
	}
	return &q, nil
}

// ExistsByName reports whether another query already uses name.
func (r *SavedQueryRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM saved_queries WHERE name = $1 AND id::text <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, excludeID); err != nil {
		return false, fmt.Errorf("check saved query name: %w", err)
	}
	return exists, nil
}

// Create inserts a saved query.
func (r *SavedQueryRepository) Create(ctx context.Context, q *models.SavedQuery) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	const query = `INSERT INTO saved_queries (id, name, query, created_at, updated_at) VALUES (:id, :name, :query, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("create saved query: %w", err)
	}
	return nil
}

// Update rewrites name and definition. It returns sql.ErrNoRows when the query is missing.
func (r *SavedQueryRepository) Update(ctx context.Context, q *models.SavedQuery) error {
	q.UpdatedAt = time.Now().UTC()
	const query = `UPDATE saved_queries SET name = :name, query = :query, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, q)
	if err != nil {
		return fmt.Errorf("update saved query: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a saved query. It returns sql.ErrNoRows when the query is missing.
func (r *SavedQueryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM saved_queries WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete saved query: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
