package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cast"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/repository"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// SchemaProvider resolves registered models and their admin configuration.
type SchemaProvider interface {
	Model(modelID string) (*models.ModelSchema, error)
	Admin(modelID string) (*models.ModelAdmin, error)
	DescribeFields(modelID string) ([]models.FieldSchema, error)
	ReverseRelations(modelID string) []models.ReverseRelation
	Models() []*models.ModelSchema
}

type recordReader interface {
	List(ctx context.Context, schema *models.ModelSchema, q repository.RecordQuery) ([]models.Record, error)
	Count(ctx context.Context, schema *models.ModelSchema, where sq.Sqlizer) (int, error)
	Get(ctx context.Context, schema *models.ModelSchema, pk interface{}) (models.Record, error)
	CountExisting(ctx context.Context, schema *models.ModelSchema, pks []interface{}) (int, error)
	RelatedIDs(ctx context.Context, field models.FieldSchema, pk interface{}) ([]interface{}, error)
	Distinct(ctx context.Context, schema *models.ModelSchema, field models.FieldSchema) ([]interface{}, error)
	Max(ctx context.Context, schema *models.ModelSchema, field models.FieldSchema) (float64, error)
}

type recordWriter interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, schema *models.ModelSchema, values models.Record) (interface{}, error)
	Update(ctx context.Context, exec sqlx.ExtContext, schema *models.ModelSchema, pk interface{}, values models.Record) error
	Delete(ctx context.Context, exec sqlx.ExtContext, schema *models.ModelSchema, pks []interface{}) (int64, error)
	SetRelated(ctx context.Context, exec sqlx.ExtContext, field models.FieldSchema, pk interface{}, ids []interface{}) error
}

type recordStore interface {
	recordReader
	recordWriter
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func withTx(ctx context.Context, db txProvider, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

// ModelID joins app and model labels into the registry identifier.
func ModelID(app, model string) string {
	return strings.ToLower(app) + "." + strings.ToLower(model)
}

// convertPK parses a raw primary key according to the model's key type.
func convertPK(schema *models.ModelSchema, raw interface{}) (interface{}, error) {
	pkField := schema.PrimaryKey()
	if pkField.Type.IsInteger() {
		v, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record with pk "+cast.ToString(raw)+" does not exist")
		}
		return v, nil
	}
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record pk is required")
	}
	return s, nil
}

// loadRecord fetches a record translating a missing row into NotFound.
func loadRecord(ctx context.Context, store recordReader, schema *models.ModelSchema, pk interface{}) (models.Record, error) {
	rec, err := store.Get(ctx, schema, pk)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record with pk "+cast.ToString(pk)+" does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return rec, nil
}
