package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/response"
)

type mediaStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Verify(key, token string) error
}

// MediaHandler serves files saved by the local storage driver behind signed tokens.
type MediaHandler struct {
	store mediaStore
}

// NewMediaHandler constructs the handler.
func NewMediaHandler(store mediaStore) *MediaHandler {
	return &MediaHandler{store: store}
}

// Serve streams the file named by the wildcard path when its token verifies.
func (h *MediaHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := h.store.Verify(key, c.Query("token")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired media token"))
		return
	}
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, file, nil)
}
