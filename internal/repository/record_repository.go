package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/pkg/tracing"
)

// RecordQuery narrows a record listing.
type RecordQuery struct {
	Where   sq.Sqlizer
	OrderBy []string
	Limit   int
	Offset  int
}

// RecordRepository reads and writes rows of registered models.
type RecordRepository struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

// NewRecordRepository constructs a record repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// BeginTxx starts a transaction on the underlying pool.
func (r *RecordRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// List returns records matching the query.
func (r *RecordRepository) List(ctx context.Context, schema *models.ModelSchema, q RecordQuery) (out []models.Record, err error) {
	span, ctx := tracing.StartSpan(ctx, "record_repository.List", schema.ID())
	defer func() { tracing.Finish(span, err) }()

	builder := r.psql.Select(selectColumns(schema)...).From(schema.Table)
	if q.Where != nil {
		builder = builder.Where(q.Where)
	}
	for _, entry := range q.OrderBy {
		clause, err := orderClause(schema, entry)
		if err != nil {
			return nil, err
		}
		builder = builder.OrderBy(clause)
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		builder = builder.Offset(uint64(q.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list query")
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", schema.ID())
	}
	defer rows.Close()
	return scanRecords(rows, schema)
}

// Count returns the number of rows matching where.
func (r *RecordRepository) Count(ctx context.Context, schema *models.ModelSchema, where sq.Sqlizer) (int, error) {
	builder := r.psql.Select("COUNT(*)").From(schema.Table)
	if where != nil {
		builder = builder.Where(where)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build count query")
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, errors.Wrapf(err, "count %s", schema.ID())
	}
	return total, nil
}

// Get returns a record by primary key or sql.ErrNoRows.
func (r *RecordRepository) Get(ctx context.Context, schema *models.ModelSchema, pk interface{}) (rec models.Record, err error) {
	span, ctx := tracing.StartSpan(ctx, "record_repository.Get", schema.ID())
	defer func() { tracing.Finish(span, err) }()

	query, args, err := r.psql.Select(selectColumns(schema)...).
		From(schema.Table).
		Where(sq.Eq{schema.PrimaryKey().ColumnName(): pk}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build get query")
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", schema.ID())
	}
	defer rows.Close()
	records, err := scanRecords(rows, schema)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sql.ErrNoRows
	}
	return records[0], nil
}

// CountExisting returns how many of pks exist in the model table.
func (r *RecordRepository) CountExisting(ctx context.Context, schema *models.ModelSchema, pks []interface{}) (int, error) {
	if len(pks) == 0 {
		return 0, nil
	}
	query, args, err := r.psql.Select("COUNT(*)").
		From(schema.Table).
		Where(sq.Expr(schema.PrimaryKey().ColumnName()+" = ANY(?)", pq.Array(pks))).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build exists query")
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, errors.Wrapf(err, "check %s existence", schema.ID())
	}
	return total, nil
}

// Insert stores a new row and returns its primary key.
func (r *RecordRepository) Insert(ctx context.Context, exec sqlx.ExtContext, schema *models.ModelSchema, values models.Record) (pk interface{}, err error) {
	span, ctx := tracing.StartSpan(ctx, "record_repository.Insert", schema.ID())
	defer func() { tracing.Finish(span, err) }()

	columns, err := columnValues(schema, values)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errors.Errorf("insert %s: no values", schema.ID())
	}
	query, args, err := r.psql.Insert(schema.Table).
		SetMap(columns).
		Suffix("RETURNING " + schema.PrimaryKey().ColumnName()).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build insert query")
	}
	if err := exec.QueryRowxContext(ctx, query, args...).Scan(&pk); err != nil {
		return nil, errors.Wrapf(err, "insert %s", schema.ID())
	}
	if b, ok := pk.([]byte); ok {
		pk = string(b)
	}
	return pk, nil
}

// Update writes values to the row identified by pk. It returns sql.ErrNoRows when nothing matched.
func (r *RecordRepository) Update(ctx context.Context, exec sqlx.ExtContext, schema *models.ModelSchema, pk interface{}, values models.Record) (err error) {
	span, ctx := tracing.StartSpan(ctx, "record_repository.Update", schema.ID())
	defer func() { tracing.Finish(span, err) }()

	columns, err := columnValues(schema, values)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}
	query, args, err := r.psql.Update(schema.Table).
		SetMap(columns).
		Where(sq.Eq{schema.PrimaryKey().ColumnName(): pk}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build update query")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "update %s", schema.ID())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the rows identified by pks and returns the number deleted.
func (r *RecordRepository) Delete(ctx context.Context, exec sqlx.ExtContext, schema *models.ModelSchema, pks []interface{}) (n int64, err error) {
	span, ctx := tracing.StartSpan(ctx, "record_repository.Delete", schema.ID())
	defer func() { tracing.Finish(span, err) }()

	if len(pks) == 0 {
		return 0, nil
	}
	query, args, err := r.psql.Delete(schema.Table).
		Where(sq.Eq{schema.PrimaryKey().ColumnName(): pks}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build delete query")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s", schema.ID())
	}
	return res.RowsAffected()
}

// RelatedIDs returns the target primary keys linked through a many-to-many field.
func (r *RecordRepository) RelatedIDs(ctx context.Context, field models.FieldSchema, pk interface{}) ([]interface{}, error) {
	if field.Through == nil {
		return nil, errors.Errorf("field %s has no through table", field.Name)
	}
	query, args, err := r.psql.Select(field.Through.TargetColumn).
		From(field.Through.Table).
		Where(sq.Eq{field.Through.SourceColumn: pk}).
		OrderBy(field.Through.TargetColumn).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build related query")
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list related %s", field.Name)
	}
	defer rows.Close()
	ids := make([]interface{}, 0)
	for rows.Next() {
		var id interface{}
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan related id")
		}
		if b, ok := id.([]byte); ok {
			id = string(b)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetRelated replaces the links of a many-to-many field.
func (r *RecordRepository) SetRelated(ctx context.Context, exec sqlx.ExtContext, field models.FieldSchema, pk interface{}, ids []interface{}) error {
	if field.Through == nil {
		return errors.Errorf("field %s has no through table", field.Name)
	}
	query, args, err := r.psql.Delete(field.Through.Table).
		Where(sq.Eq{field.Through.SourceColumn: pk}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build unlink query")
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "unlink %s", field.Name)
	}
	if len(ids) == 0 {
		return nil
	}
	insert := r.psql.Insert(field.Through.Table).Columns(field.Through.SourceColumn, field.Through.TargetColumn)
	for _, id := range ids {
		insert = insert.Values(pk, id)
	}
	query, args, err = insert.ToSql()
	if err != nil {
		return errors.Wrap(err, "build link query")
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "link %s", field.Name)
	}
	return nil
}

// Distinct returns the distinct values stored in a column.
func (r *RecordRepository) Distinct(ctx context.Context, schema *models.ModelSchema, field models.FieldSchema) ([]interface{}, error) {
	column := field.ColumnName()
	query, args, err := r.psql.Select("DISTINCT " + column).From(schema.Table).OrderBy(column).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build distinct query")
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "distinct %s", field.Name)
	}
	defer rows.Close()
	values := make([]interface{}, 0)
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan distinct value")
		}
		values = append(values, normalizeValue(field, v))
	}
	return values, rows.Err()
}

// Max returns the largest numeric value stored in a column, or 0 for an empty table.
func (r *RecordRepository) Max(ctx context.Context, schema *models.ModelSchema, field models.FieldSchema) (float64, error) {
	query, args, err := r.psql.Select("COALESCE(MAX(" + field.ColumnName() + "), 0)").From(schema.Table).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build max query")
	}
	var max float64
	if err := r.db.GetContext(ctx, &max, query, args...); err != nil {
		return 0, errors.Wrapf(err, "max %s", field.Name)
	}
	return max, nil
}

func selectColumns(schema *models.ModelSchema) []string {
	stored := schema.StoredFields()
	cols := make([]string, 0, len(stored))
	for _, f := range stored {
		cols = append(cols, f.ColumnName())
	}
	return cols
}

func orderClause(schema *models.ModelSchema, entry string) (string, error) {
	name := strings.TrimPrefix(entry, "-")
	direction := " ASC"
	if strings.HasPrefix(entry, "-") {
		direction = " DESC"
	}
	if name == "pk" {
		return schema.PrimaryKey().ColumnName() + direction, nil
	}
	field, ok := schema.Field(name)
	if !ok || !field.Stored() {
		return "", errors.Errorf("cannot order %s by %s", schema.ID(), name)
	}
	return field.ColumnName() + direction, nil
}

func columnValues(schema *models.ModelSchema, values models.Record) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(values))
	for name, value := range values {
		field, ok := schema.Field(name)
		if !ok || !field.Stored() {
			continue
		}
		if field.Type == models.FieldJSON && value != nil {
			switch v := value.(type) {
			case json.RawMessage:
				value = string(v)
			case []byte:
				value = string(v)
			default:
				raw, err := json.Marshal(v)
				if err != nil {
					return nil, errors.Wrapf(err, "encode %s", name)
				}
				value = string(raw)
			}
		}
		out[field.ColumnName()] = value
	}
	return out, nil
}

func scanRecords(rows *sqlx.Rows, schema *models.ModelSchema) ([]models.Record, error) {
	byColumn := make(map[string]models.FieldSchema)
	for _, f := range schema.StoredFields() {
		byColumn[f.ColumnName()] = f
	}
	out := make([]models.Record, 0)
	for rows.Next() {
		raw := make(map[string]interface{})
		if err := rows.MapScan(raw); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		rec := make(models.Record, len(raw))
		for col, v := range raw {
			if f, ok := byColumn[col]; ok {
				rec[f.Name] = normalizeValue(f, v)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate records")
	}
	return out, nil
}

func normalizeValue(field models.FieldSchema, v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if field.Type == models.FieldJSON {
		var decoded interface{}
		if err := json.Unmarshal(b, &decoded); err == nil {
			return decoded
		}
	}
	return string(b)
}
