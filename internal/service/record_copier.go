package service

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/repository"
	"github.com/noah-isme/admin-api/pkg/tracing"
)

// copyTask is a pending record creation. Deferred fields point at the record created for parentID.
type copyTask struct {
	id       string
	parentID string
	schema   *models.ModelSchema
	values   models.Record
	m2m      map[string][]interface{}
	deferred []string
}

// copyArena holds pending tasks and hands them out last in, first out.
type copyArena struct {
	tasks []*copyTask
}

func (a *copyArena) push(t *copyTask) {
	a.tasks = append(a.tasks, t)
}

func (a *copyArena) pop() (*copyTask, bool) {
	if len(a.tasks) == 0 {
		return nil, false
	}
	last := len(a.tasks) - 1
	t := a.tasks[last]
	a.tasks = a.tasks[:last]
	return t, true
}

func (a *copyArena) len() int {
	return len(a.tasks)
}

// copyFrame is one record waiting to be visited during discovery.
type copyFrame struct {
	schema   *models.ModelSchema
	record   models.Record
	parentID string
	parent   *models.ModelSchema
	parentPK interface{}
	via      string
}

// RecordCopier duplicates a record together with its one-to-one and cascading children.
type RecordCopier struct {
	db      txProvider
	schemas SchemaProvider
	records recordStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecordCopier constructs a copier.
func NewRecordCopier(db txProvider, schemas SchemaProvider, records recordStore, logger *zap.Logger) *RecordCopier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordCopier{db: db, schemas: schemas, records: records, logger: logger, now: time.Now}
}

// Copy duplicates the record identified by pk. Failures on individual fields or records are
// collected in the result while the remaining records are still created.
func (c *RecordCopier) Copy(ctx context.Context, modelID string, pk string, overrides models.FieldOverrides) (result *models.CopyResult, err error) {
	span, ctx := tracing.StartSpan(ctx, "record_copier.Copy", modelID+":"+pk)
	defer func() { tracing.Finish(span, err) }()

	schema, err := c.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}
	key, err := convertPK(schema, pk)
	if err != nil {
		return nil, err
	}
	root, err := loadRecord(ctx, c.records, schema, key)
	if err != nil {
		return nil, err
	}

	result = &models.CopyResult{Errors: []string{}}
	arena, rootID := c.discover(ctx, schema, root, overrides, result)
	created := c.persist(ctx, arena, result)
	result.NewPK = created[rootID]
	result.Created = len(created)
	if len(result.Errors) > 0 {
		c.logger.Warn("record copy completed with errors",
			zap.String("model", modelID), zap.String("pk", pk), zap.Strings("errors", result.Errors))
	}
	return result, nil
}

// discover walks the record graph depth first and returns an arena whose pops yield parents
// before their children.
func (c *RecordCopier) discover(ctx context.Context, schema *models.ModelSchema, root models.Record, overrides models.FieldOverrides, result *models.CopyResult) (*copyArena, string) {
	var order []*copyTask
	visited := map[string]struct{}{}
	marks := uniqueMarks{}
	work := []copyFrame{{schema: schema, record: root}}
	var rootID string

	for len(work) > 0 {
		frame := work[len(work)-1]
		work = work[:len(work)-1]

		pk := frame.record[frame.schema.PrimaryKey().Name]
		visitKey := frame.schema.ID() + ":" + cast.ToString(pk)
		if _, seen := visited[visitKey]; seen {
			continue
		}
		visited[visitKey] = struct{}{}

		task := c.buildTask(ctx, frame, overrides, marks, result)
		if rootID == "" {
			rootID = task.id
		}
		order = append(order, task)

		children, err := c.children(ctx, frame.schema, pk)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error copying related records from %s - %v", frame.schema.ID(), err))
			continue
		}
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			child.parentID = task.id
			child.parent = frame.schema
			child.parentPK = pk
			work = append(work, child)
		}
	}

	arena := &copyArena{}
	for i := len(order) - 1; i >= 0; i-- {
		arena.push(order[i])
	}
	return arena, rootID
}

func (c *RecordCopier) children(ctx context.Context, schema *models.ModelSchema, pk interface{}) ([]copyFrame, error) {
	var out []copyFrame
	for _, rel := range c.schemas.ReverseRelations(schema.ID()) {
		if !rel.OneToOne && !rel.Field.CascadeCopy {
			continue
		}
		records, err := c.records.List(ctx, rel.Model, repository.RecordQuery{
			Where:   sq.Eq{rel.Field.ColumnName(): pk},
			OrderBy: []string{"pk"},
		})
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "load %s rows referencing %s", rel.Model.ID(), schema.ID())
		}
		for _, rec := range records {
			out = append(out, copyFrame{schema: rel.Model, record: rec, via: rel.Field.Name})
		}
	}
	return out, nil
}

func (c *RecordCopier) buildTask(ctx context.Context, frame copyFrame, overrides models.FieldOverrides, marks uniqueMarks, result *models.CopyResult) *copyTask {
	schema := frame.schema
	task := &copyTask{
		id:       uuid.NewString(),
		parentID: frame.parentID,
		schema:   schema,
		values:   models.Record{},
		m2m:      map[string][]interface{}{},
	}
	now := c.now().UTC()

	for _, field := range schema.Fields {
		old := frame.record[field.Name]
		if field.Type == models.FieldManyToMany {
			ids, err := c.records.RelatedIDs(ctx, field, frame.record[schema.PrimaryKey().Name])
			if err != nil {
				result.Errors = append(result.Errors, copyFieldError(field, schema, err))
				continue
			}
			task.m2m[field.Name] = ids
			continue
		}
		if field.PrimaryKey && field.Type.IsAutoKey() {
			continue
		}
		if override, ok := overrides[schema.QualifiedField(field.Name)]; ok && override != nil {
			task.values[field.Name] = override(old)
			continue
		}
		if field.Type.IsSingleRelation() && frame.parent != nil && field.Target == frame.parent.ID() &&
			(field.Name == frame.via || sameValue(old, frame.parentPK)) {
			task.deferred = append(task.deferred, field.Name)
			continue
		}

		value, err := c.copyValue(ctx, schema, field, old, now, marks)
		if err != nil {
			result.Errors = append(result.Errors, copyFieldError(field, schema, err))
			continue
		}
		task.values[field.Name] = value
	}
	return task
}

// uniqueMarks tracks the highest value handed out per unique numeric column within one copy.
type uniqueMarks map[string]float64

func (c *RecordCopier) copyValue(ctx context.Context, schema *models.ModelSchema, field models.FieldSchema, old interface{}, now time.Time, marks uniqueMarks) (interface{}, error) {
	switch {
	case field.AutoNow || field.AutoNowAdd:
		return now, nil
	case field.Identifier:
		return field.IdentifierPrefix + "_" + uuid.NewString(), nil
	case field.PrimaryKey && field.Type == models.FieldUUID:
		return uuid.NewString(), nil
	case field.Unique && !field.Type.IsRelation() && field.Type.IsNumeric():
		key := schema.QualifiedField(field.Name)
		highest, ok := marks[key]
		if !ok {
			stored, err := c.records.Max(ctx, schema, field)
			if err != nil {
				return nil, err
			}
			highest = stored
		}
		marks[key] = highest + 1
		if field.Type.IsInteger() {
			return int64(highest) + 1, nil
		}
		return highest + 1, nil
	case field.Unique && !field.Type.IsRelation():
		return fmt.Sprintf("%v-copy-%s", old, uuid.NewString()), nil
	}
	return old, nil
}

func copyFieldError(field models.FieldSchema, schema *models.ModelSchema, err error) string {
	return fmt.Sprintf("Error copying %s from %s - %v", field.Name, schema.ID(), err)
}

// persist drains the arena, creating every record in its own transaction. It returns the new
// primary key of each created task.
func (c *RecordCopier) persist(ctx context.Context, arena *copyArena, result *models.CopyResult) map[string]interface{} {
	created := make(map[string]interface{}, arena.len())
	for {
		task, ok := arena.pop()
		if !ok {
			break
		}
		if len(task.deferred) > 0 {
			parentPK, ok := created[task.parentID]
			if !ok {
				result.Errors = append(result.Errors, fmt.Sprintf("Error creating record for %s - parent record was not created", task.schema.ID()))
				continue
			}
			for _, name := range task.deferred {
				task.values[name] = parentPK
			}
		}

		var newPK interface{}
		err := withTx(ctx, c.db, func(tx *sqlx.Tx) error {
			pk, err := c.records.Insert(ctx, tx, task.schema, task.values)
			if err != nil {
				return err
			}
			for _, field := range task.schema.Fields {
				ids, ok := task.m2m[field.Name]
				if !ok {
					continue
				}
				if err := c.records.SetRelated(ctx, tx, field, pk, ids); err != nil {
					return pkgerrors.Wrapf(err, "set %s", field.Name)
				}
			}
			newPK = pk
			return nil
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error creating record for %s - %v", task.schema.ID(), err))
			continue
		}
		created[task.id] = newPK
	}
	return created
}
