package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMediaStore struct {
	files map[string]string
	token string
}

func (f *fakeMediaStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.files[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeMediaStore) Verify(_ string, token string) error {
	if token != f.token {
		return errors.New("bad token")
	}
	return nil
}

func newMediaRouter(store mediaStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/media/*key", NewMediaHandler(store).Serve)
	return r
}

func TestMediaHandlerServesSignedFile(t *testing.T) {
	store := &fakeMediaStore{files: map[string]string{"demo/logo.png": "png-bytes"}, token: "ok"}
	r := newMediaRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/demo/logo.png?token=ok", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestMediaHandlerRejectsBadToken(t *testing.T) {
	store := &fakeMediaStore{files: map[string]string{"demo/logo.png": "png-bytes"}, token: "ok"}
	r := newMediaRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/demo/logo.png?token=nope", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMediaHandlerMissingFile(t *testing.T) {
	store := &fakeMediaStore{files: map[string]string{}, token: "ok"}
	r := newMediaRouter(store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/demo/gone.bin?token=ok", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
