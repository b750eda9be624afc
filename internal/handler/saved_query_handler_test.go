package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type fakeSavedQueries struct {
	hit     bool
	created models.SavedQueryRequest
	def     models.QueryDefinition
	builder string
	err     error
}

func (f *fakeSavedQueries) List(context.Context) ([]models.SavedQuery, bool, error) {
	return []models.SavedQuery{{ID: "q-1", Name: "Betas"}}, f.hit, nil
}

func (f *fakeSavedQueries) Get(_ context.Context, id string) (*models.SavedQuery, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SavedQuery{ID: id}, nil
}

func (f *fakeSavedQueries) Create(_ context.Context, req models.SavedQueryRequest) (*models.SavedQuery, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.SavedQuery{ID: "q-2", Name: req.Name}, nil
}

func (f *fakeSavedQueries) Update(_ context.Context, id string, req models.SavedQueryRequest) (*models.SavedQuery, error) {
	return &models.SavedQuery{ID: id, Name: req.Name}, f.err
}

func (f *fakeSavedQueries) Delete(context.Context, string) error { return f.err }

func (f *fakeSavedQueries) Run(_ context.Context, def models.QueryDefinition) (*models.QueryResult, error) {
	f.def = def
	return &models.QueryResult{ModelID: def.ModelID(), Count: 0, Records: []models.Record{}}, f.err
}

func (f *fakeSavedQueries) Builder(_ context.Context, modelID string) (models.FieldDescriptors, error) {
	f.builder = modelID
	return models.FieldDescriptors{}, nil
}

func TestSavedQueryHandlerListReportsCacheHit(t *testing.T) {
	h := NewSavedQueryHandler(&fakeSavedQueries{hit: true})
	c, rec := authContext(http.MethodGet, "/saved-queries", "", nil)

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec).Meta["cache_hit"])
}

func TestSavedQueryHandlerCreateConflict(t *testing.T) {
	svc := &fakeSavedQueries{err: appErrors.Clone(appErrors.ErrConflict, "A record with Betas already exists")}
	h := NewSavedQueryHandler(svc)
	body := `{"name":"Betas","query":{"app_name":"demo","model_name":"type","conditions":[]}}`
	c, rec := authContext(http.MethodPost, "/saved-queries", body, nil)

	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Betas", svc.created.Name)
	assert.Equal(t, "A record with Betas already exists", decode(t, rec).Error.Message)
}

func TestSavedQueryHandlerRun(t *testing.T) {
	svc := &fakeSavedQueries{}
	h := NewSavedQueryHandler(svc)
	body := `{"app_name":"demo","model_name":"type","conditions":[],"orderings":["-name"]}`
	c, rec := authContext(http.MethodPost, "/saved-queries/run", body, nil)

	h.Run(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo.type", svc.def.ModelID())
	assert.Equal(t, []string{"-name"}, svc.def.Orderings)
}

func TestSavedQueryHandlerBuilderAndDelete(t *testing.T) {
	svc := &fakeSavedQueries{}
	h := NewSavedQueryHandler(svc)

	c, rec := authContext(http.MethodGet, "/saved-queries/builder/demo/level", "", nil)
	c.Params = gin.Params{{Key: "app", Value: "demo"}, {Key: "model", Value: "level"}}
	h.Builder(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo.level", svc.builder)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "saved query not found")
	c, rec = authContext(http.MethodDelete, "/saved-queries/q-9", "", nil)
	c.Params = gin.Params{{Key: "id", Value: "q-9"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
