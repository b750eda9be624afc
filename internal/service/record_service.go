package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/repository"
	"github.com/noah-isme/admin-api/pkg/database"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/filefield"
)

// Upload validation messages.
const (
	MsgInvalidFileType = "Invalid file type"
	MsgInvalidFileSize = "Invalid file size"
)

type recordFileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// RecordList is one page of records.
type RecordList struct {
	Records    []models.Record
	Pagination *models.Pagination
}

// MutationResult describes a successful write.
type MutationResult struct {
	PK      interface{}   `json:"pk"`
	Message string        `json:"message"`
	Record  models.Record `json:"record,omitempty"`
}

// RecordService implements list, detail and write operations for every registered model.
type RecordService struct {
	db      txProvider
	schemas SchemaProvider
	records recordStore
	files   recordFileStore
	cache   cacheInvalidator
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecordService constructs a record service. files and cache may be nil.
func NewRecordService(db txProvider, schemas SchemaProvider, records recordStore, files recordFileStore, cache cacheInvalidator, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{db: db, schemas: schemas, records: records, files: files, cache: cache, logger: logger, now: time.Now}
}

// List returns the list view page of a model applying filters, search and admin ordering.
func (s *RecordService) List(ctx context.Context, modelID string, params models.ListParams) (*RecordList, error) {
	schema, admin, err := s.model(modelID)
	if err != nil {
		return nil, err
	}
	where, err := listPredicate(schema, admin, params)
	if err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = admin.ListPerPage
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	total, err := s.records.Count(ctx, schema, where)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count records")
	}
	rows, err := s.records.List(ctx, schema, repository.RecordQuery{
		Where:   where,
		OrderBy: listOrdering(admin.Ordering),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return &RecordList{Records: s.presentAll(ctx, schema, rows), Pagination: models.NewPagination(limit, offset, total)}, nil
}

// All returns every record matching the list filters, unpaginated.
func (s *RecordService) All(ctx context.Context, modelID string, params models.ListParams) (*models.ModelSchema, []models.Record, error) {
	schema, admin, err := s.model(modelID)
	if err != nil {
		return nil, nil, err
	}
	where, err := listPredicate(schema, admin, params)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.records.List(ctx, schema, repository.RecordQuery{Where: where, OrderBy: listOrdering(admin.Ordering)})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return schema, s.presentAll(ctx, schema, rows), nil
}

// Query returns records matching a compiled predicate. A limit of zero returns every match.
func (s *RecordService) Query(ctx context.Context, modelID string, where sq.Sqlizer, ordering []string, limit int) ([]models.Record, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}
	for _, entry := range ordering {
		name := strings.TrimPrefix(entry, "-")
		if _, ok := schema.Field(name); !ok && name != "pk" {
			return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "invalid ordering "+entry),
				map[string][]string{"orderings": {"Unknown field " + name + "."}})
		}
	}
	rows, err := s.records.List(ctx, schema, repository.RecordQuery{Where: where, OrderBy: ordering, Limit: limit})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to run query")
	}
	return s.presentAll(ctx, schema, rows), nil
}

func listOrdering(ordering []string) []string {
	out := make([]string, 0, len(ordering)+1)
	out = append(out, ordering...)
	return append(out, "-pk")
}

func listPredicate(schema *models.ModelSchema, admin *models.ModelAdmin, params models.ListParams) (sq.Sqlizer, error) {
	and := sq.And{}
	for name, values := range params.Filters {
		field, ok := schema.Field(name)
		if !ok || !field.Stored() {
			return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "invalid filter field "+name),
				map[string][]string{name: {"Unknown field."}})
		}
		and = append(and, sq.Eq{field.ColumnName(): values})
	}
	if term := strings.TrimSpace(params.Search); term != "" && len(admin.SearchFields) > 0 {
		or := sq.Or{}
		for _, name := range admin.SearchFields {
			field, ok := schema.Field(name)
			if !ok || !field.Stored() || field.Type.IsRelation() {
				continue
			}
			or = append(or, sq.Expr(field.ColumnName()+"::text ILIKE ?", "%"+term+"%"))
		}
		if len(or) > 0 {
			and = append(and, or)
		}
	}
	if len(and) == 0 {
		return nil, nil
	}
	return and, nil
}

// Get returns one record with many-to-many ids attached.
func (s *RecordService) Get(ctx context.Context, modelID, pk string) (models.Record, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}
	key, err := convertPK(schema, pk)
	if err != nil {
		return nil, err
	}
	rec, err := loadRecord(ctx, s.records, schema, key)
	if err != nil {
		return nil, err
	}
	for _, field := range schema.Fields {
		if field.Type != models.FieldManyToMany {
			continue
		}
		ids, err := s.records.RelatedIDs(ctx, field, key)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load related records")
		}
		rec[field.Name] = ids
	}
	return s.present(ctx, schema, rec), nil
}

// Create validates payload and inserts a record in a single transaction.
func (s *RecordService) Create(ctx context.Context, modelID string, payload map[string]interface{}) (*MutationResult, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}
	values, related, err := s.prepare(ctx, schema, models.FormAdd, payload, nil)
	if err != nil {
		return nil, err
	}

	var pk interface{}
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		if pk, err = s.records.Insert(ctx, tx, schema, values); err != nil {
			return err
		}
		return s.setRelated(ctx, tx, schema, pk, related)
	})
	if err != nil {
		return nil, s.writeError(err, "failed to create record")
	}
	s.invalidate(ctx, schema)

	values[schema.PrimaryKey().Name] = pk
	return &MutationResult{
		PK:      pk,
		Message: fmt.Sprintf("Created record [%s] with pk %v successfully", schema.DisplayValue(values), pk),
		Record:  s.present(ctx, schema, values),
	}, nil
}

// Update validates payload and applies it to the stored record.
func (s *RecordService) Update(ctx context.Context, modelID, pk string, payload map[string]interface{}) (*MutationResult, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}
	key, err := convertPK(schema, pk)
	if err != nil {
		return nil, err
	}
	current, err := loadRecord(ctx, s.records, schema, key)
	if err != nil {
		return nil, err
	}
	values, related, err := s.prepare(ctx, schema, models.FormEdit, payload, current)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.records.Update(ctx, tx, schema, key, values); err != nil {
			return err
		}
		return s.setRelated(ctx, tx, schema, key, related)
	})
	if err != nil {
		return nil, s.writeError(err, "failed to update record")
	}
	s.invalidate(ctx, schema)

	merged := current.Clone()
	for k, v := range values {
		merged[k] = v
	}
	return &MutationResult{
		PK:      key,
		Message: fmt.Sprintf("Updated record [%s] with pk %v successfully", schema.DisplayValue(merged), key),
		Record:  s.present(ctx, schema, merged),
	}, nil
}

// Delete removes one record.
func (s *RecordService) Delete(ctx context.Context, modelID, pk string) (*MutationResult, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}
	key, err := convertPK(schema, pk)
	if err != nil {
		return nil, err
	}
	current, err := loadRecord(ctx, s.records, schema, key)
	if err != nil {
		return nil, err
	}
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := s.records.Delete(ctx, tx, schema, []interface{}{key})
		return err
	})
	if err != nil {
		return nil, s.writeError(err, "failed to delete record")
	}
	s.invalidate(ctx, schema)
	return &MutationResult{
		PK:      key,
		Message: fmt.Sprintf("Deleted record [%s] with pk %v successfully", schema.DisplayValue(current), key),
	}, nil
}

// DeleteMany removes every record whose pk is listed and reports how many rows went away.
func (s *RecordService) DeleteMany(ctx context.Context, modelID string, pks []interface{}) (int64, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return 0, err
	}
	keys := make([]interface{}, 0, len(pks))
	for _, raw := range pks {
		key, err := convertPK(schema, raw)
		if err != nil {
			return 0, appErrors.Clone(appErrors.ErrValidation, "Invalid payload")
		}
		keys = append(keys, key)
	}
	var deleted int64
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		deleted, err = s.records.Delete(ctx, tx, schema, keys)
		return err
	})
	if err != nil {
		return 0, s.writeError(err, "failed to delete records")
	}
	s.invalidate(ctx, schema)
	return deleted, nil
}

// Inline lists rows of a configured inline beneath the parent record pk.
func (s *RecordService) Inline(ctx context.Context, modelID, pk, name string, limit, offset int) (*RecordList, error) {
	parentSchema, admin, err := s.model(modelID)
	if err != nil {
		return nil, err
	}
	var inline *models.Inline
	for i := range admin.CustomInlines {
		if admin.CustomInlines[i].Name == name {
			inline = &admin.CustomInlines[i]
			break
		}
	}
	if inline == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "inline "+name+" is not configured for "+modelID)
	}
	schema, err := s.schemas.Model(inline.Model)
	if err != nil {
		return nil, err
	}
	key, err := convertPK(parentSchema, pk)
	if err != nil {
		return nil, err
	}
	parent, err := loadRecord(ctx, s.records, parentSchema, key)
	if err != nil {
		return nil, err
	}

	where := sq.And{}
	if fk, ok := inlineForeignKey(schema, parentSchema, inline); ok {
		value := interface{}(key)
		if inline.ParentField != "" {
			value = parent[inline.ParentField]
		}
		where = append(where, sq.Eq{fk.ColumnName(): value})
	}
	for fieldName, value := range inline.Filter {
		field, ok := schema.Field(fieldName)
		if !ok {
			continue
		}
		where = append(where, sq.Eq{field.ColumnName(): value})
	}

	if limit <= 0 {
		limit = inline.ListPerPage
	}
	if offset < 0 {
		offset = 0
	}
	total, err := s.records.Count(ctx, schema, where)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count inline records")
	}
	rows, err := s.records.List(ctx, schema, repository.RecordQuery{Where: where, OrderBy: []string{"pk"}, Limit: limit, Offset: offset})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inline records")
	}
	return &RecordList{Records: s.presentAll(ctx, schema, rows), Pagination: models.NewPagination(limit, offset, total)}, nil
}

func inlineForeignKey(schema, parent *models.ModelSchema, inline *models.Inline) (models.FieldSchema, bool) {
	if inline.ForeignKey != "" {
		return schema.Field(inline.ForeignKey)
	}
	for _, f := range schema.Fields {
		if f.Type.IsSingleRelation() && f.Target == parent.ID() {
			return f, true
		}
	}
	return models.FieldSchema{}, false
}

// StoreUpload checks an upload against the field's limits and saves it, returning the object key.
func (s *RecordService) StoreUpload(ctx context.Context, modelID, fieldName, filename string, size int64, contentType string, r io.Reader) (string, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return "", err
	}
	field, ok := schema.Field(fieldName)
	if !ok || !field.Type.IsFile() {
		return "", appErrors.Clone(appErrors.ErrNotFound, "file field "+fieldName+" does not exist on "+modelID)
	}
	check := filefield.Validate(field.HelpText, filename, size)
	fieldErrs := map[string][]string{}
	if !check.IsValidType {
		fieldErrs[fieldName] = append(fieldErrs[fieldName], MsgInvalidFileType)
	}
	if !check.IsValidSize {
		fieldErrs[fieldName] = append(fieldErrs[fieldName], MsgInvalidFileSize)
	}
	if len(fieldErrs) > 0 {
		return "", appErrors.WithFields(appErrors.ErrValidation, fieldErrs)
	}
	if s.files == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
	}
	key := path.Join(schema.App, schema.Name, fieldName, uuid.NewString()+path.Ext(filename))
	stored, err := s.files.Save(ctx, key, r, size, contentType)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	return stored, nil
}

// prepare validates payload and turns it into column values plus many-to-many assignments.
func (s *RecordService) prepare(ctx context.Context, schema *models.ModelSchema, mode models.FormMode, payload map[string]interface{}, current models.Record) (models.Record, map[string][]interface{}, error) {
	descriptors := Describe(schema)
	cleaned, fieldErrs := ValidatePayload(BuildFieldRules(descriptors, mode), payload)
	if fieldErrs == nil {
		fieldErrs = models.FieldErrors{}
	}
	for _, fd := range descriptors {
		if _, covered := cleaned[fd.Name]; covered || fd.Required || skipRule(fd) {
			continue
		}
		if _, failed := fieldErrs[fd.Name]; failed {
			continue
		}
		rule := RuleFor(fd, mode)
		value, skip, messages := rule.Check(payload[fd.Name], hasKey(payload, fd.Name))
		switch {
		case len(messages) > 0:
			fieldErrs[fd.Name] = messages
		case !skip:
			cleaned[fd.Name] = value
		}
	}
	s.checkRelations(ctx, schema, cleaned, fieldErrs)
	if len(fieldErrs) > 0 {
		return nil, nil, appErrors.WithFields(appErrors.ErrValidation, fieldErrs)
	}

	now := s.now().UTC()
	values := models.Record{}
	related := map[string][]interface{}{}
	for _, field := range schema.Fields {
		value, ok := cleaned[field.Name]
		switch {
		case field.Type == models.FieldManyToMany:
			if ok {
				related[field.Name] = cast.ToSlice(value)
			}
			continue
		case field.AutoNow, field.AutoNowAdd && mode == models.FormAdd:
			values[field.Name] = now
			continue
		case mode == models.FormAdd && field.Identifier:
			values[field.Name] = field.IdentifierPrefix + "_" + uuid.NewString()
			continue
		case mode == models.FormAdd && field.PrimaryKey && field.Type == models.FieldUUID:
			values[field.Name] = uuid.NewString()
			continue
		case !ok:
			if mode == models.FormAdd && field.Default != nil && field.Editable() {
				values[field.Name] = field.Default
			}
			continue
		}
		if field.Credential && value != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(cast.ToString(value)), bcrypt.DefaultCost)
			if err != nil {
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
			}
			value = string(hash)
		}
		values[field.Name] = value
	}

	if err := s.checkUnique(ctx, schema, values, current); err != nil {
		return nil, nil, err
	}
	return values, related, nil
}

func hasKey(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}

// checkRelations reports relation values that point at missing records.
func (s *RecordService) checkRelations(ctx context.Context, schema *models.ModelSchema, cleaned map[string]interface{}, fieldErrs models.FieldErrors) {
	for _, field := range schema.Fields {
		value, ok := cleaned[field.Name]
		if !ok || value == nil || !field.Type.IsRelation() {
			continue
		}
		target, err := s.schemas.Model(field.Target)
		if err != nil {
			fieldErrs.Add(field.Name, err.Error())
			continue
		}
		ids := []interface{}{value}
		if field.Type == models.FieldManyToMany {
			ids = dedupe(cast.ToSlice(value))
			if len(ids) == 0 {
				continue
			}
		}
		n, err := s.records.CountExisting(ctx, target, ids)
		if err != nil {
			s.logger.Warn("relation lookup failed", zap.String("field", field.Name), zap.Error(err))
			fieldErrs.Add(field.Name, "Related records could not be verified.")
			continue
		}
		if n < len(ids) {
			if field.Type == models.FieldManyToMany {
				fieldErrs.Add(field.Name, "One or more related objects do not exist.")
			} else {
				fieldErrs.Add(field.Name, fmt.Sprintf("Invalid pk \"%v\" - object does not exist.", value))
			}
		}
	}
}

func dedupe(ids []interface{}) []interface{} {
	seen := make(map[string]struct{}, len(ids))
	out := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		k := cast.ToString(id)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, id)
	}
	return out
}

// checkUnique rejects values already used by another record.
func (s *RecordService) checkUnique(ctx context.Context, schema *models.ModelSchema, values, current models.Record) error {
	pk := schema.PrimaryKey()
	fieldErrs := models.FieldErrors{}
	for _, field := range schema.Fields {
		value, ok := values[field.Name]
		if !ok || value == nil || !field.Unique || field.Identifier || field.PrimaryKey {
			continue
		}
		where := sq.And{sq.Eq{field.ColumnName(): value}}
		if current != nil {
			where = append(where, sq.NotEq{pk.ColumnName(): current[pk.Name]})
		}
		n, err := s.records.Count(ctx, schema, where)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check uniqueness")
		}
		if n > 0 {
			fieldErrs.Add(field.Name, fmt.Sprintf("%s with this %s already exists.", schema.ObjectName, strings.ReplaceAll(field.Name, "_", " ")))
		}
	}
	if len(fieldErrs) > 0 {
		return appErrors.WithFields(appErrors.ErrValidation, fieldErrs)
	}
	return nil
}

func (s *RecordService) setRelated(ctx context.Context, tx *sqlx.Tx, schema *models.ModelSchema, pk interface{}, related map[string][]interface{}) error {
	for _, field := range schema.Fields {
		ids, ok := related[field.Name]
		if !ok {
			continue
		}
		if err := s.records.SetRelated(ctx, tx, field, pk, ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *RecordService) writeError(err error, message string) error {
	switch {
	case database.IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "A record with these values already exists")
	case database.IsForeignKeyViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "The record is referenced by other records")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *RecordService) invalidate(ctx context.Context, schema *models.ModelSchema) {
	if schema.CacheKey == "" || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, schema.CacheKey); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("key", schema.CacheKey), zap.Error(err))
	}
}

func (s *RecordService) model(modelID string) (*models.ModelSchema, *models.ModelAdmin, error) {
	schema, err := s.schemas.Model(modelID)
	if err != nil {
		return nil, nil, err
	}
	admin, err := s.schemas.Admin(modelID)
	if err != nil {
		return nil, nil, err
	}
	return schema, admin, nil
}

func (s *RecordService) presentAll(ctx context.Context, schema *models.ModelSchema, rows []models.Record) []models.Record {
	out := make([]models.Record, 0, len(rows))
	for _, rec := range rows {
		out = append(out, s.present(ctx, schema, rec))
	}
	return out
}

// present shapes a stored record for clients: pk is exposed, credentials are dropped, temporal
// values are rendered in wire format and file keys become URLs.
func (s *RecordService) present(ctx context.Context, schema *models.ModelSchema, rec models.Record) models.Record {
	out := make(models.Record, len(rec)+1)
	for _, field := range schema.Fields {
		value, ok := rec[field.Name]
		if !ok || field.Credential {
			continue
		}
		switch {
		case field.Type == models.FieldDate || field.Type == models.FieldTime:
			value = formatTemporal(field.Type, value)
		case field.Type.IsFile():
			value = s.fileURL(ctx, value)
		}
		out[field.Name] = value
	}
	out["pk"] = rec[schema.PrimaryKey().Name]
	return out
}

func (s *RecordService) fileURL(ctx context.Context, value interface{}) interface{} {
	key := cast.ToString(value)
	if key == "" {
		return nil
	}
	if s.files == nil {
		return key
	}
	url, err := s.files.URL(ctx, key)
	if err != nil {
		s.logger.Warn("file url failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return url
}
