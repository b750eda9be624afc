package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/pkg/datatransform"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// Wire formats of temporal values.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = time.RFC3339
)

type fileLocator interface {
	URL(ctx context.Context, key string) (string, error)
}

// FieldExtractor builds field descriptors used to render and validate admin forms.
type FieldExtractor struct {
	schemas SchemaProvider
	records recordReader
	choices *ChoiceResolver
	files   fileLocator
	logger  *zap.Logger
}

// NewFieldExtractor constructs a field extractor. files may be nil when no model stores uploads.
func NewFieldExtractor(schemas SchemaProvider, records recordReader, files fileLocator, logger *zap.Logger) *FieldExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldExtractor{
		schemas: schemas,
		records: records,
		choices: NewChoiceResolver(schemas, records),
		files:   files,
		logger:  logger,
	}
}

// Extract returns one descriptor per declared field. In edit mode initial values and selections
// come from the stored record identified by pk.
func (e *FieldExtractor) Extract(ctx context.Context, modelID string, mode models.FormMode, pk string) (models.FieldDescriptors, error) {
	schema, err := e.schemas.Model(modelID)
	if err != nil {
		return nil, err
	}

	var rec models.Record
	if mode == models.FormEdit {
		key, err := convertPK(schema, pk)
		if err != nil {
			return nil, err
		}
		if rec, err = loadRecord(ctx, e.records, schema, key); err != nil {
			return nil, err
		}
	}

	descriptors := Describe(schema)
	for i := range descriptors {
		field, _ := schema.Field(descriptors[i].Name)
		if err := e.populate(ctx, schema, field, rec, &descriptors[i]); err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				return nil, err
			}
			e.logger.Warn("field extraction failed", zap.String("model", modelID), zap.String("field", field.Name), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrExtraction.Code, appErrors.ErrExtraction.Status, "failed to extract field "+field.Name+" of "+modelID)
		}
	}
	return descriptors, nil
}

func (e *FieldExtractor) populate(ctx context.Context, schema *models.ModelSchema, field models.FieldSchema, rec models.Record, fd *models.FieldDescriptor) error {
	var current interface{}
	var currentMany []interface{}
	if rec != nil {
		if field.Type == models.FieldManyToMany {
			ids, err := e.records.RelatedIDs(ctx, field, rec[schema.PrimaryKey().Name])
			if err != nil {
				return err
			}
			currentMany = ids
			fd.Initial = ids
		} else {
			current = rec[field.Name]
			initial, err := e.initialValue(ctx, field, current)
			if err != nil {
				return err
			}
			fd.Initial = initial
		}
	}

	switch {
	case len(field.Choices) > 0:
		fd.Choices = scalarChoices(field.Choices, current)
	case field.Type.IsSingleRelation():
		choices, err := e.choices.Resolve(ctx, field, current)
		if err != nil {
			return err
		}
		fd.ForeignKeyChoices = choices
	case field.Type == models.FieldManyToMany:
		choices, err := e.choices.ResolveMany(ctx, field, currentMany)
		if err != nil {
			return err
		}
		fd.ManyToManyChoices = choices
	}
	return nil
}

func (e *FieldExtractor) initialValue(ctx context.Context, field models.FieldSchema, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if field.Credential {
		return "", nil
	}
	switch field.Type {
	case models.FieldDate, models.FieldTime, models.FieldDateTime:
		return formatTemporal(field.Type, value), nil
	case models.FieldDecimal:
		if f, ok := value.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), nil
		}
		return cast.ToString(value), nil
	case models.FieldFile, models.FieldImage:
		key := cast.ToString(value)
		if key == "" || e.files == nil {
			return nil, nil
		}
		return e.files.URL(ctx, key)
	}
	return value, nil
}

func formatTemporal(t models.FieldType, value interface{}) interface{} {
	ts, ok := value.(time.Time)
	if !ok {
		return value
	}
	switch t {
	case models.FieldDate:
		return ts.Format(DateLayout)
	case models.FieldTime:
		return ts.Format(TimeLayout)
	default:
		return ts.Format(DateTimeLayout)
	}
}

// Describe derives the static part of every descriptor from the schema alone.
func Describe(schema *models.ModelSchema) models.FieldDescriptors {
	out := make(models.FieldDescriptors, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		fd := models.FieldDescriptor{
			Name:         f.Name,
			Label:        datatransform.ToLabel(f.Name),
			Type:         f.Type,
			IsPrimaryKey: f.PrimaryKey,
			Nullable:     f.Null,
			Required:     f.Required(),
			Editable:     f.Editable(),
			AutoCreated:  f.PrimaryKey && f.Type.IsAutoKey(),
			HelpText:     f.HelpText,
			Initial:      f.Default,
			Identifier:   f.Identifier,
			Credential:   f.Credential,
			Unique:       f.Unique,
		}
		if f.Identifier {
			fd.Initial = ""
		}
		if f.Type == models.FieldManyToMany && fd.Initial == nil {
			fd.Initial = []interface{}{}
		}
		if f.MaxLength > 0 {
			maxLength := f.MaxLength
			fd.MaxLength = &maxLength
		}
		if f.Type.IsRelation() {
			cardinality := models.CardinalityOne
			if f.Type == models.FieldManyToMany {
				cardinality = models.CardinalityMany
			}
			fd.Relation = &models.RelationInfo{TargetModel: f.Target, Cardinality: cardinality}
		}
		if f.Type == models.FieldDecimal && f.MaxDigits > 0 {
			digits, places := f.MaxDigits, f.DecimalPlaces
			fd.MaxDigits, fd.DecimalPlaces = &digits, &places
		}
		if len(f.Choices) > 0 {
			fd.Choices = scalarChoices(f.Choices, nil)
		}
		for _, v := range f.Validators {
			limit := v.Limit
			switch v.Kind {
			case models.ValidatorRegex:
				fd.RegexPattern, fd.RegexMessage = v.Pattern, v.Message
			case models.ValidatorMinValue:
				fd.MinValue = &limit
			case models.ValidatorMaxValue:
				fd.MaxValue = &limit
			case models.ValidatorDecimal:
				digits, places := v.MaxDigits, v.DecimalPlaces
				fd.MaxDigits, fd.DecimalPlaces = &digits, &places
			}
		}
		out = append(out, fd)
	}
	return out
}
