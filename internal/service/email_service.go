package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/jobs"
)

// Email queue routing.
const (
	EmailQueue   = "email"
	EmailJobType = "send_email"
)

// EmailMessage is one outbound email.
type EmailMessage struct {
	To          []string      `json:"to"`
	Subject     string        `json:"subject"`
	HTMLBody    string        `json:"html_body"`
	CC          []string      `json:"cc,omitempty"`
	BCC         []string      `json:"bcc,omitempty"`
	Attachments []interface{} `json:"attachments,omitempty"`
	Sender      string        `json:"sender,omitempty"`
}

// EmailConfig configures the email relay client.
type EmailConfig struct {
	Enabled bool
	URL     string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

type emailRequest struct {
	EmailMessage
	APIKey string `json:"api_key"`
}

type jobEnqueuer interface {
	Enqueue(queue, jobType string, payload interface{}) (jobs.Job, error)
}

type jobRegistrar interface {
	Register(jobType string, handler jobs.Handler)
}

// EmailService posts messages to an HTTP email relay.
type EmailService struct {
	cfg    EmailConfig
	client *http.Client
	queue  jobEnqueuer
	logger *zap.Logger
}

// NewEmailService constructs the email client. A disabled config turns Send into a no-op, which is
// how test and local environments run.
func NewEmailService(cfg EmailConfig, queue jobEnqueuer, logger *zap.Logger) *EmailService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, queue: queue, logger: logger}
}

// Send delivers msg synchronously.
func (s *EmailService) Send(ctx context.Context, msg EmailMessage) error {
	if !s.cfg.Enabled {
		s.logger.Debug("email disabled, skipping", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
		return nil
	}
	if msg.Sender == "" {
		msg.Sender = s.cfg.Sender
	}

	body, err := json.Marshal(emailRequest{EmailMessage: msg, APIKey: s.cfg.APIKey})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode email")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build email request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("email api request failed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "email api unavailable")
	}
	defer resp.Body.Close()

	var reply struct {
		Data interface{} `json:"data"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &reply)

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("email api rejected message",
			zap.Strings("to", msg.To),
			zap.Strings("cc", msg.CC),
			zap.Strings("bcc", msg.BCC),
			zap.String("subject", msg.Subject),
			zap.Int("status", resp.StatusCode),
			zap.Any("data", reply.Data),
		)
		return appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("email api returned %d", resp.StatusCode))
	}
	s.logger.Info("email sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Any("data", reply.Data))
	return nil
}

// Enqueue hands msg to the email queue.
func (s *EmailService) Enqueue(msg EmailMessage) error {
	if s.queue == nil {
		return appErrors.Clone(appErrors.ErrInternal, "email queue not configured")
	}
	if _, err := s.queue.Enqueue(EmailQueue, EmailJobType, msg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue email")
	}
	return nil
}

// RegisterHandler binds the email job type to Send.
func (s *EmailService) RegisterHandler(r jobRegistrar) {
	r.Register(EmailJobType, func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(EmailMessage)
		if !ok {
			return fmt.Errorf("unexpected email payload %T", job.Payload)
		}
		return s.Send(ctx, msg)
	})
}

// RenderEmail executes an HTML template into an email body.
func RenderEmail(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

var passwordChangedTemplate = template.Must(template.New("password_changed").Parse(
	`<p>Hello {{.Name}},</p><p>The password of your admin account was changed on {{.At}}.</p>` +
		`<p>If you did not make this change, contact an administrator immediately.</p>`,
))

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(
	`<p>Hello {{.Name}},</p><p>Use the link below to set a new password for your admin account.</p>` +
		`<p><a href="{{.Link}}">Reset password</a></p><p>If you did not expect this email, you can ignore it.</p>`,
))

// AccountMailer sends account emails through the email queue.
type AccountMailer struct {
	email *EmailService
}

// NewAccountMailer wraps the email service.
func NewAccountMailer(email *EmailService) *AccountMailer {
	return &AccountMailer{email: email}
}

// PasswordChanged queues the notification sent after a password change.
func (m *AccountMailer) PasswordChanged(email, name string, at time.Time) error {
	if name == "" {
		name = email
	}
	body, err := RenderEmail(passwordChangedTemplate, map[string]string{"Name": name, "At": at.Format(time.RFC1123)})
	if err != nil {
		return err
	}
	return m.email.Enqueue(EmailMessage{To: []string{email}, Subject: "Your password was changed", HTMLBody: body})
}

// PasswordResetLink queues an email carrying a password reset link.
func (m *AccountMailer) PasswordResetLink(email, name, link string) error {
	if name == "" {
		name = email
	}
	body, err := RenderEmail(passwordResetTemplate, map[string]string{"Name": name, "Link": link})
	if err != nil {
		return err
	}
	return m.email.Enqueue(EmailMessage{To: []string{email}, Subject: "Password Reset Link", HTMLBody: body})
}
