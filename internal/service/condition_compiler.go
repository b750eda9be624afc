package service

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/spf13/cast"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// CoercionError reports a condition value that cannot be converted to its field's type.
type CoercionError struct {
	Field string
	Value interface{}
	Type  models.FieldType
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot convert %v for field %s to %s", e.Value, e.Field, e.Type)
}

// TransformConditions converts condition values to the Go type of their field. Boolean fields
// become bool, the integer family int64 and decimals float64; other values pass through.
func TransformConditions(conds []models.Condition, descriptors models.FieldDescriptors) ([]models.Condition, error) {
	out := make([]models.Condition, 0, len(conds))
	for _, c := range conds {
		fd, ok := descriptors.Lookup(c.Field)
		if !ok {
			return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "unknown condition field "+c.Field),
				map[string][]string{c.Field: {"Unknown field."}})
		}
		if !c.Operator.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported operator "+string(c.Operator))
		}
		value, err := coerceCondition(fd, c.Value)
		if err != nil {
			coercion := &CoercionError{Field: c.Field, Value: c.Value, Type: fd.Type}
			return nil, appErrors.Wrap(coercion, appErrors.ErrCoercion.Code, appErrors.ErrCoercion.Status, coercion.Error())
		}
		out = append(out, models.Condition{Field: c.Field, Operator: c.Operator, Value: value})
	}
	return out, nil
}

func coerceCondition(fd models.FieldDescriptor, value interface{}) (interface{}, error) {
	switch {
	case fd.Type == models.FieldBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(v))
		}
		return cast.ToBoolE(value)
	case fd.Type.IsInteger():
		if s, ok := value.(string); ok {
			return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		}
		return toInteger(value)
	case fd.Type == models.FieldDecimal:
		if s, ok := value.(string); ok {
			return strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
		return cast.ToFloat64E(value)
	}
	return value, nil
}

// CompileConditions folds conditions into a single AND predicate. columns maps field names to
// storage columns; a nil predicate means no filtering.
func CompileConditions(conds []models.Condition, columns map[string]string) (sq.Sqlizer, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	pred := sq.And{}
	for _, c := range conds {
		column, ok := columns[c.Field]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown condition field "+c.Field)
		}
		switch c.Operator {
		case models.OpEquals:
			pred = append(pred, sq.Eq{column: c.Value})
		case models.OpNotEquals:
			pred = append(pred, sq.NotEq{column: c.Value})
		case models.OpGt:
			pred = append(pred, sq.Gt{column: c.Value})
		case models.OpGte:
			pred = append(pred, sq.GtOrEq{column: c.Value})
		case models.OpLt:
			pred = append(pred, sq.Lt{column: c.Value})
		case models.OpLte:
			pred = append(pred, sq.LtOrEq{column: c.Value})
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported operator "+string(c.Operator))
		}
	}
	return pred, nil
}

// ColumnMap returns the storage column of every stored field keyed by field name.
func ColumnMap(schema *models.ModelSchema) map[string]string {
	out := make(map[string]string, len(schema.Fields))
	for _, f := range schema.StoredFields() {
		out[f.Name] = f.ColumnName()
	}
	return out
}
