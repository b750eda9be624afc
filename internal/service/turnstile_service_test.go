package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

func TestTurnstileServiceVerify(t *testing.T) {
	var got turnstileRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": got.Response == "good"})
	}))
	defer server.Close()

	svc := NewTurnstileService(TurnstileConfig{SecretKey: "s3cret", VerifyURL: server.URL}, nil)

	ok, err := svc.Verify(context.Background(), "good", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, turnstileRequest{Secret: "s3cret", Response: "good", RemoteIP: "10.0.0.1"}, got)

	ok, err = svc.Verify(context.Background(), "bad", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTurnstileServiceUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewTurnstileService(TurnstileConfig{VerifyURL: server.URL}, nil).Verify(context.Background(), "token", "")
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}
