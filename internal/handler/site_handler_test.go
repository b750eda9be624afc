package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admin-api/internal/models"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type fakeVerifier struct {
	valid bool
	err   error
	ip    string
}

func (f *fakeVerifier) Verify(_ context.Context, _, remoteIP string) (bool, error) {
	f.ip = remoteIP
	return f.valid, f.err
}

type fakeDocs struct{}

func (fakeDocs) List(context.Context) ([]models.ModelDocumentation, bool, error) {
	return []models.ModelDocumentation{{AppModelName: "demo - type", Content: "Types"}}, true, nil
}

func (fakeDocs) ForModel(_ context.Context, app, model string) (*models.ModelDocumentation, error) {
	if model != "type" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "documentation not found")
	}
	return &models.ModelDocumentation{AppModelName: app + " - " + model}, nil
}

func TestSiteHandlerVerifyToken(t *testing.T) {
	verifier := &fakeVerifier{valid: true}
	h := NewSiteHandler(verifier, fakeDocs{}, nil)

	c, rec := authContext(http.MethodPost, "/verify-token", `{"token":"abc"}`, nil)
	c.Request.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	h.VerifyToken(c)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)
	assert.Equal(t, "192.0.2.1", verifier.ip)

	c, rec = authContext(http.MethodPost, "/verify-token", `{}`, nil)
	h.VerifyToken(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestSiteHandlerVerifyTokenUpstreamFailure(t *testing.T) {
	h := NewSiteHandler(&fakeVerifier{err: appErrors.ErrUpstream}, fakeDocs{}, nil)
	c, rec := authContext(http.MethodPost, "/verify-token", `{"token":"abc"}`, nil)

	h.VerifyToken(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestSiteHandlerModelDocs(t *testing.T) {
	h := NewSiteHandler(&fakeVerifier{}, fakeDocs{}, nil)

	c, rec := authContext(http.MethodGet, "/model-docs", "", nil)
	h.ModelDocs(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec).Meta["cache_hit"])

	c, rec = authContext(http.MethodGet, "/model-docs/demo/level", "", nil)
	c.Params = gin.Params{{Key: "app", Value: "demo"}, {Key: "model", Value: "level"}}
	h.ModelDoc(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeMedia struct {
	files map[string]string
}

func (f fakeMedia) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f fakeMedia) Verify(_, token string) error {
	if token != "good" {
		return errors.New("bad token")
	}
	return nil
}

func TestMediaHandlerServe(t *testing.T) {
	h := NewMediaHandler(fakeMedia{files: map[string]string{"exports/a.csv": "Id\n1\n"}})

	c, rec := authContext(http.MethodGet, "/media/exports/a.csv?token=good", "", nil)
	c.Params = gin.Params{{Key: "key", Value: "/exports/a.csv"}}
	h.Serve(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Id\n1\n", rec.Body.String())

	c, rec = authContext(http.MethodGet, "/media/exports/a.csv?token=bad", "", nil)
	c.Params = gin.Params{{Key: "key", Value: "/exports/a.csv"}}
	h.Serve(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = authContext(http.MethodGet, "/media/exports/b.csv?token=good", "", nil)
	c.Params = gin.Params{{Key: "key", Value: "/exports/b.csv"}}
	h.Serve(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
