package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func widgetSchema() *models.ModelSchema {
	return &models.ModelSchema{
		App:   "shop",
		Name:  "widget",
		Table: "shop_widget",
		Fields: []models.FieldSchema{
			{Name: "id", Type: models.FieldBigAuto, PrimaryKey: true},
			{Name: "name", Type: models.FieldChar, MaxLength: 50},
			{Name: "kind", Type: models.FieldForeignKey, Target: "shop.kind"},
			{Name: "meta", Type: models.FieldJSON, Null: true},
			{Name: "tags", Type: models.FieldManyToMany, Target: "shop.tag", Through: &models.ThroughTable{
				Table: "shop_widget_tags", SourceColumn: "widget_id", TargetColumn: "tag_id",
			}},
		},
	}
}

func TestRecordListAppliesWhereOrderAndPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "kind_id", "meta"}).
		AddRow(int64(2), "beta", int64(1), []byte(`{"size":3}`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, kind_id, meta FROM shop_widget WHERE name = $1 ORDER BY name DESC, id ASC LIMIT 5 OFFSET 10")).
		WithArgs("beta").
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), widgetSchema(), RecordQuery{
		Where:   sq.Eq{"name": "beta"},
		OrderBy: []string{"-name", "pk"},
		Limit:   5,
		Offset:  10,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "beta", records[0]["name"])
	assert.Equal(t, int64(1), records[0]["kind"])
	assert.Equal(t, map[string]interface{}{"size": float64(3)}, records[0]["meta"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordListRejectsUnknownOrdering(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	_, err := repo.List(context.Background(), widgetSchema(), RecordQuery{OrderBy: []string{"missing"}})
	require.Error(t, err)
}

func TestRecordGetNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, kind_id, meta FROM shop_widget WHERE id = $1 LIMIT 1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "kind_id", "meta"}))

	_, err := repo.Get(context.Background(), widgetSchema(), int64(9))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordInsertReturnsPrimaryKey(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shop_widget (kind_id,meta,name) VALUES ($1,$2,$3) RETURNING id")).
		WithArgs(int64(1), `{"size":3}`, "gamma").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	pk, err := repo.Insert(context.Background(), db, widgetSchema(), models.Record{
		"name":    "gamma",
		"kind":    int64(1),
		"meta":    map[string]interface{}{"size": 3},
		"tags":    []interface{}{1},
		"unknown": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), pk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE shop_widget SET name = $1 WHERE id = $2")).
		WithArgs("delta", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), db, widgetSchema(), int64(3), models.Record{"name": "delta"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDeleteMany(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shop_widget WHERE id IN ($1,$2)")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.Delete(context.Background(), db, widgetSchema(), []interface{}{int64(1), int64(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSetRelatedReplacesLinks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)
	tags, _ := widgetSchema().Field("tags")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shop_widget_tags WHERE widget_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shop_widget_tags (widget_id,tag_id) VALUES ($1,$2),($3,$4)")).
		WithArgs(int64(5), int64(1), int64(5), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := repo.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.SetRelated(context.Background(), tx, tags, int64(5), []interface{}{int64(1), int64(3)}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRelatedIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)
	tags, _ := widgetSchema().Field("tags")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT tag_id FROM shop_widget_tags WHERE widget_id = $1 ORDER BY tag_id")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}).AddRow(int64(1)).AddRow(int64(3)))

	ids, err := repo.RelatedIDs(context.Background(), tags, int64(5))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(3)}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCountExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM shop_widget WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountExisting(context.Background(), widgetSchema(), []interface{}{int64(1), int64(99)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDistinctAndMax(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)
	schema := widgetSchema()
	name, _ := schema.Field("name")
	id, _ := schema.Field("id")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT name FROM shop_widget ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("alpha")).AddRow([]byte("beta")))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(id), 0) FROM shop_widget")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(float64(41)))

	values, err := repo.Distinct(context.Background(), schema, name)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"alpha", "beta"}, values)

	max, err := repo.Max(context.Background(), schema, id)
	require.NoError(t, err)
	assert.Equal(t, float64(41), max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeValueKeepsTimes(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now, normalizeValue(models.FieldSchema{Type: models.FieldDateTime}, now))
	assert.Equal(t, "12.50", normalizeValue(models.FieldSchema{Type: models.FieldDecimal}, []byte("12.50")))
}
