package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/repository"
)

// fakeRecordStore keeps rows in memory keyed by model id. It understands squirrel Eq, NotEq and And predicates; anything else matches every row.
type fakeRecordStore struct {
	mu         sync.Mutex
	rows       map[string][]models.Record
	related    map[string][]interface{}
	nextID     map[string]int64
	failInsert map[string]error
	listErr    error
	inserted   []string
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		rows:       map[string][]models.Record{},
		related:    map[string][]interface{}{},
		nextID:     map[string]int64{},
		failInsert: map[string]error{},
	}
}

func (f *fakeRecordStore) seed(schema *models.ModelSchema, rows ...models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := schema.PrimaryKey().Name
	for _, r := range rows {
		f.rows[schema.ID()] = append(f.rows[schema.ID()], r)
		if id, err := cast.ToInt64E(r[pk]); err == nil && id >= f.nextID[schema.ID()] {
			f.nextID[schema.ID()] = id
		}
	}
}

func (f *fakeRecordStore) relate(field models.FieldSchema, pk interface{}, ids ...interface{}) {
	f.related[field.Through.Table+":"+cast.ToString(pk)] = ids
}

func (f *fakeRecordStore) matching(schema *models.ModelSchema, where sq.Sqlizer) []models.Record {
	var out []models.Record
	for _, rec := range f.rows[schema.ID()] {
		if matches(schema, rec, where) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func matches(schema *models.ModelSchema, rec models.Record, where sq.Sqlizer) bool {
	switch w := where.(type) {
	case nil:
		return true
	case sq.Eq:
		for column, want := range w {
			if !matchesAny(rec[fieldForColumn(schema, column)], want) {
				return false
			}
		}
		return true
	case sq.NotEq:
		for column, want := range w {
			if matchesAny(rec[fieldForColumn(schema, column)], want) {
				return false
			}
		}
		return true
	case sq.And:
		for _, part := range w {
			if !matches(schema, rec, part) {
				return false
			}
		}
		return true
	}
	return true
}

func matchesAny(got, want interface{}) bool {
	if list, ok := want.([]interface{}); ok {
		for _, v := range list {
			if sameValue(got, v) {
				return true
			}
		}
		return false
	}
	return sameValue(got, want)
}

func fieldForColumn(schema *models.ModelSchema, column string) string {
	for _, f := range schema.Fields {
		if f.ColumnName() == column {
			return f.Name
		}
	}
	return column
}

func (f *fakeRecordStore) List(_ context.Context, schema *models.ModelSchema, q repository.RecordQuery) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	rows := f.matching(schema, q.Where)
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return []models.Record{}, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (f *fakeRecordStore) Count(_ context.Context, schema *models.ModelSchema, where sq.Sqlizer) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matching(schema, where)), nil
}

func (f *fakeRecordStore) Get(_ context.Context, schema *models.ModelSchema, pk interface{}) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.rows[schema.ID()] {
		if sameValue(rec[schema.PrimaryKey().Name], pk) {
			return rec.Clone(), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRecordStore) CountExisting(_ context.Context, schema *models.ModelSchema, pks []interface{}) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.rows[schema.ID()] {
		for _, pk := range pks {
			if sameValue(rec[schema.PrimaryKey().Name], pk) {
				n++
				break
			}
		}
	}
	return n, nil
}

func (f *fakeRecordStore) RelatedIDs(_ context.Context, field models.FieldSchema, pk interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.related[field.Through.Table+":"+cast.ToString(pk)]
	if ids == nil {
		return []interface{}{}, nil
	}
	return ids, nil
}

func (f *fakeRecordStore) Distinct(_ context.Context, schema *models.ModelSchema, field models.FieldSchema) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]struct{}{}
	var out []interface{}
	for _, rec := range f.rows[schema.ID()] {
		v := rec[field.Name]
		if _, ok := seen[cast.ToString(v)]; ok || v == nil {
			continue
		}
		seen[cast.ToString(v)] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeRecordStore) Max(_ context.Context, schema *models.ModelSchema, field models.FieldSchema) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var highest float64
	for _, rec := range f.rows[schema.ID()] {
		if v := cast.ToFloat64(rec[field.Name]); v > highest {
			highest = v
		}
	}
	return highest, nil
}

func (f *fakeRecordStore) Insert(_ context.Context, _ sqlx.ExtContext, schema *models.ModelSchema, values models.Record) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failInsert[schema.ID()]; err != nil {
		return nil, err
	}
	rec := values.Clone()
	pkField := schema.PrimaryKey()
	if pkField.Type.IsAutoKey() {
		f.nextID[schema.ID()]++
		rec[pkField.Name] = f.nextID[schema.ID()]
	}
	f.rows[schema.ID()] = append(f.rows[schema.ID()], rec)
	f.inserted = append(f.inserted, schema.ID())
	return rec[pkField.Name], nil
}

func (f *fakeRecordStore) Update(_ context.Context, _ sqlx.ExtContext, schema *models.ModelSchema, pk interface{}, values models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.rows[schema.ID()] {
		if sameValue(rec[schema.PrimaryKey().Name], pk) {
			for k, v := range values {
				rec[k] = v
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeRecordStore) Delete(_ context.Context, _ sqlx.ExtContext, schema *models.ModelSchema, pks []interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Record
	var deleted int64
	for _, rec := range f.rows[schema.ID()] {
		drop := false
		for _, pk := range pks {
			if sameValue(rec[schema.PrimaryKey().Name], pk) {
				drop = true
				break
			}
		}
		if drop {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	f.rows[schema.ID()] = kept
	return deleted, nil
}

func (f *fakeRecordStore) SetRelated(_ context.Context, _ sqlx.ExtContext, field models.FieldSchema, pk interface{}, ids []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if field.Through == nil {
		return errors.New("missing through table")
	}
	f.related[field.Through.Table+":"+cast.ToString(pk)] = ids
	return nil
}

// newTxDB returns a sqlmock backed database used only to open transactions.
func newTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}
