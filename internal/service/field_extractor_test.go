package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type stubLocator struct{}

func (stubLocator) URL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

func demoRecord() models.Record {
	return models.Record{
		"id":           int64(7),
		"uid":          "demo_abc",
		"type":         int64(2),
		"color":        "Red",
		"name":         "Widget",
		"email":        "w@example.com",
		"ordering":     int64(3),
		"range_number": int64(6),
		"amount":       "12.50",
		"comment":      nil,
		"is_active":    true,
		"date":         time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		"time":         time.Date(0, 1, 1, 14, 5, 9, 0, time.UTC),
		"last_log":     time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
		"file":         "docs/report.pdf",
		"image":        "",
		"metadata":     map[string]interface{}{"k": "v"},
		"html":         "<p>x</p>",
	}
}

func TestDescribeFlattensValidators(t *testing.T) {
	schema, err := newDemoRegistry().Model("demo.demomodel")
	require.NoError(t, err)

	descriptors := Describe(schema)
	require.Len(t, descriptors, len(schema.Fields))
	assert.Equal(t, "id", descriptors[0].Name)

	rangeNumber, ok := descriptors.Lookup("range_number")
	require.True(t, ok)
	assert.Equal(t, 5.0, *rangeNumber.MinValue)
	assert.Equal(t, 10.0, *rangeNumber.MaxValue)
	assert.Equal(t, "Range Number", rangeNumber.Label)

	amount, _ := descriptors.Lookup("amount")
	assert.Equal(t, 10, *amount.MaxDigits)
	assert.Equal(t, 2, *amount.DecimalPlaces)
	assert.NotEmpty(t, amount.RegexPattern)
	assert.NotEmpty(t, amount.RegexMessage)

	id, _ := descriptors.Lookup("id")
	assert.True(t, id.AutoCreated)
	assert.False(t, id.Editable)

	uid, _ := descriptors.Lookup("uid")
	assert.Equal(t, "", uid.Initial)

	color, _ := descriptors.Lookup("color")
	require.Len(t, color.Choices, 2)
	assert.True(t, color.Choices[0].Selected)
	assert.Nil(t, color.Relation)

	classification, _ := descriptors.Lookup("classification")
	assert.Equal(t, &models.RelationInfo{TargetModel: "demo.classification", Cardinality: models.CardinalityMany}, classification.Relation)
	assert.Equal(t, []interface{}{}, classification.Initial)
}

func TestExtractAddModeSelectsFirstForeignKeyChoice(t *testing.T) {
	reg := newDemoRegistry()
	store := newFakeRecordStore()
	seedTypes(t, reg, store)

	descriptors, err := NewFieldExtractor(reg, store, stubLocator{}, nil).Extract(context.Background(), "demo.demomodel", models.FormAdd, "")
	require.NoError(t, err)

	typ, ok := descriptors.Lookup("type")
	require.True(t, ok)
	require.Len(t, typ.ForeignKeyChoices, 3)
	assert.True(t, typ.ForeignKeyChoices[0].Selected)
	assert.Equal(t, &models.RelationInfo{TargetModel: "demo.type", Cardinality: models.CardinalityOne}, typ.Relation)

	color, _ := descriptors.Lookup("color")
	assert.Equal(t, "Blue", color.Initial)
}

func TestExtractEditModeFormatsInitialValues(t *testing.T) {
	reg := newDemoRegistry()
	store := newFakeRecordStore()
	seedTypes(t, reg, store)
	schema, _ := reg.Model("demo.demomodel")
	classifications, _ := reg.Model("demo.classification")
	store.seed(classifications, models.Record{"id": int64(1), "name": "Small"}, models.Record{"id": int64(2), "name": "Large"})
	store.seed(schema, demoRecord())
	m2m, _ := schema.Field("classification")
	store.relate(m2m, int64(7), int64(2))

	descriptors, err := NewFieldExtractor(reg, store, stubLocator{}, nil).Extract(context.Background(), "demo.demomodel", models.FormEdit, "7")
	require.NoError(t, err)

	initial := func(name string) interface{} {
		fd, ok := descriptors.Lookup(name)
		require.True(t, ok, name)
		return fd.Initial
	}
	assert.Equal(t, "2024-03-09", initial("date"))
	assert.Equal(t, "14:05:09", initial("time"))
	assert.Equal(t, "2024-03-09T10:00:00Z", initial("last_log"))
	assert.Equal(t, "12.50", initial("amount"))
	assert.Equal(t, "https://files.example.com/docs/report.pdf", initial("file"))
	assert.Nil(t, initial("image"))
	assert.Equal(t, []interface{}{int64(2)}, initial("classification"))

	typ, _ := descriptors.Lookup("type")
	for _, c := range typ.ForeignKeyChoices {
		assert.Equal(t, c.Value == int64(2), c.Selected)
	}
	color, _ := descriptors.Lookup("color")
	assert.False(t, color.Choices[0].Selected)
	assert.True(t, color.Choices[1].Selected)

	classification, _ := descriptors.Lookup("classification")
	assert.Equal(t, []models.ManyChoice{
		{ID: int64(1), Label: "Small", Checked: false},
		{ID: int64(2), Label: "Large", Checked: true},
	}, classification.ManyToManyChoices)

	body, err := json.Marshal(descriptors)
	require.NoError(t, err)
	assert.Contains(t, string(body), `{"id":{"name":"id"`)
}

func TestExtractNeverExposesCredentials(t *testing.T) {
	reg := newDemoRegistry()
	store := newFakeRecordStore()
	users, _ := reg.Model("users.user")
	store.seed(users, models.Record{"id": "user_1", "email": "a@example.com", "password": "$2a$10$hash", "is_active": true})

	descriptors, err := NewFieldExtractor(reg, store, nil, nil).Extract(context.Background(), "users.user", models.FormEdit, "user_1")
	require.NoError(t, err)
	password, _ := descriptors.Lookup("password")
	assert.Equal(t, "", password.Initial)
}

func TestExtractErrors(t *testing.T) {
	reg := newDemoRegistry()
	store := newFakeRecordStore()
	extractor := NewFieldExtractor(reg, store, nil, nil)

	_, err := extractor.Extract(context.Background(), "missing.model", models.FormAdd, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = extractor.Extract(context.Background(), "demo.demomodel", models.FormEdit, "404")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	store.listErr = errors.New("connection reset")
	_, err = extractor.Extract(context.Background(), "demo.demomodel", models.FormAdd, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrExtraction.Code, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
}
