package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// TurnstileConfig configures Cloudflare Turnstile verification.
type TurnstileConfig struct {
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

type turnstileRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// TurnstileService verifies bot-protection tokens issued to the dashboard.
type TurnstileService struct {
	cfg    TurnstileConfig
	client *http.Client
	logger *zap.Logger
}

// NewTurnstileService constructs the verifier.
func NewTurnstileService(cfg TurnstileConfig, logger *zap.Logger) *TurnstileService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnstileService{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// Verify reports whether Cloudflare accepts token for remoteIP.
func (s *TurnstileService) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	body, err := json.Marshal(turnstileRequest{Secret: s.cfg.SecretKey, Response: token, RemoteIP: remoteIP})
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode verification")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.VerifyURL, bytes.NewReader(body))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build verification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "turnstile unavailable")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return false, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("turnstile returned %d", resp.StatusCode))
	}

	var out turnstileResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "invalid turnstile response")
	}
	if !out.Success {
		s.logger.Info("turnstile token rejected", zap.Strings("error_codes", out.ErrorCodes))
	}
	return out.Success, nil
}
