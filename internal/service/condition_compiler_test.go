package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

func demoDescriptors(t *testing.T) (*models.ModelSchema, models.FieldDescriptors) {
	t.Helper()
	schema, err := newDemoRegistry().Model("demo.demomodel")
	require.NoError(t, err)
	return schema, Describe(schema)
}

func TestTransformConditionsCoercesByFieldType(t *testing.T) {
	_, descriptors := demoDescriptors(t)
	conds := []models.Condition{
		{Field: "is_active", Operator: models.OpEquals, Value: "True"},
		{Field: "ordering", Operator: models.OpNotEquals, Value: "1"},
		{Field: "amount", Operator: models.OpEquals, Value: "20.03"},
		{Field: "name", Operator: models.OpEquals, Value: "Demo Name"},
		{Field: "range_number", Operator: models.OpGte, Value: float64(6)},
	}

	out, err := TransformConditions(conds, descriptors)
	require.NoError(t, err)
	assert.Equal(t, true, out[0].Value)
	assert.Equal(t, int64(1), out[1].Value)
	assert.Equal(t, 20.03, out[2].Value)
	assert.Equal(t, "Demo Name", out[3].Value)
	assert.Equal(t, int64(6), out[4].Value)
}

func TestTransformConditionsReportsCoercionFailure(t *testing.T) {
	_, descriptors := demoDescriptors(t)

	_, err := TransformConditions([]models.Condition{{Field: "ordering", Operator: models.OpEquals, Value: "abc"}}, descriptors)
	require.Error(t, err)
	var coercion *CoercionError
	require.True(t, errors.As(err, &coercion))
	assert.Equal(t, "ordering", coercion.Field)
	assert.Equal(t, "abc", coercion.Value)
	assert.Equal(t, models.FieldPositiveInteger, coercion.Type)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	_, err = TransformConditions([]models.Condition{{Field: "is_active", Operator: models.OpEquals, Value: "yes please"}}, descriptors)
	require.True(t, errors.As(err, &coercion))

	_, err = TransformConditions([]models.Condition{{Field: "missing", Operator: models.OpEquals, Value: 1}}, descriptors)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = TransformConditions([]models.Condition{{Field: "name", Operator: "like", Value: "x"}}, descriptors)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCompileConditionsFoldsWithAnd(t *testing.T) {
	schema, descriptors := demoDescriptors(t)
	conds, err := TransformConditions([]models.Condition{
		{Field: "is_active", Operator: models.OpEquals, Value: "true"},
		{Field: "amount", Operator: models.OpLt, Value: "20.03"},
		{Field: "name", Operator: models.OpNotEquals, Value: "Demo Name"},
		{Field: "type", Operator: models.OpEquals, Value: float64(2)},
	}, descriptors)
	require.NoError(t, err)

	pred, err := CompileConditions(conds, ColumnMap(schema))
	require.NoError(t, err)
	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(is_active = ? AND amount < ? AND name <> ? AND type_id = ?)", sql)
	assert.Equal(t, []interface{}{true, 20.03, "Demo Name", float64(2)}, args)
}

func TestCompileConditionsOperators(t *testing.T) {
	columns := map[string]string{"amount": "amount"}
	cases := map[models.Operator]string{
		models.OpGt:  "(amount > ?)",
		models.OpGte: "(amount >= ?)",
		models.OpLt:  "(amount < ?)",
		models.OpLte: "(amount <= ?)",
	}
	for op, want := range cases {
		pred, err := CompileConditions([]models.Condition{{Field: "amount", Operator: op, Value: 20.03}}, columns)
		require.NoError(t, err)
		sql, _, err := pred.ToSql()
		require.NoError(t, err)
		assert.Equal(t, want, sql, string(op))
	}

	pred, err := CompileConditions(nil, columns)
	require.NoError(t, err)
	assert.Nil(t, pred)

	_, err = CompileConditions([]models.Condition{{Field: "amount", Operator: "between", Value: 1}}, columns)
	assert.Error(t, err)
}
