package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/jobs"
)

type enqueuerStub struct {
	queue   string
	jobType string
	payload interface{}
}

func (e *enqueuerStub) Enqueue(queue, jobType string, payload interface{}) (jobs.Job, error) {
	e.queue, e.jobType, e.payload = queue, jobType, payload
	return jobs.Job{ID: "job-1", Queue: queue, Type: jobType, Payload: payload}, nil
}

func TestEmailServiceSendPostsPayload(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":"queued"}`))
	}))
	defer server.Close()

	svc := NewEmailService(EmailConfig{Enabled: true, URL: server.URL, APIKey: "key", Sender: "admin@example.com"}, nil, nil)
	err := svc.Send(context.Background(), EmailMessage{To: []string{"a@example.com"}, Subject: "Hi", HTMLBody: "<p>x</p>", CC: []string{"c@example.com"}})
	require.NoError(t, err)

	assert.Equal(t, "key", got["api_key"])
	assert.Equal(t, "admin@example.com", got["sender"])
	assert.Equal(t, "<p>x</p>", got["html_body"])
	assert.Equal(t, []interface{}{"c@example.com"}, got["cc"])
	assert.NotContains(t, got, "bcc")
}

func TestEmailServiceSendFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"data":"bad recipient"}`))
	}))
	defer server.Close()

	svc := NewEmailService(EmailConfig{Enabled: true, URL: server.URL}, nil, nil)
	err := svc.Send(context.Background(), EmailMessage{To: []string{"a@example.com"}})
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)

	disabled := NewEmailService(EmailConfig{URL: server.URL}, nil, nil)
	assert.NoError(t, disabled.Send(context.Background(), EmailMessage{To: []string{"a@example.com"}}))
}

func TestEmailServiceEnqueueAndNotifier(t *testing.T) {
	queue := &enqueuerStub{}
	svc := NewEmailService(EmailConfig{}, queue, nil)

	notifier := NewAccountMailer(svc)
	require.NoError(t, notifier.PasswordChanged("staff@example.com", "", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, EmailQueue, queue.queue)
	assert.Equal(t, EmailJobType, queue.jobType)

	msg, ok := queue.payload.(EmailMessage)
	require.True(t, ok)
	assert.Equal(t, []string{"staff@example.com"}, msg.To)
	assert.Contains(t, msg.HTMLBody, "Hello staff@example.com")
}

func TestAccountMailerPasswordResetLink(t *testing.T) {
	queue := &enqueuerStub{}
	mailer := NewAccountMailer(NewEmailService(EmailConfig{}, queue, nil))

	require.NoError(t, mailer.PasswordResetLink("staff@example.com", "Ada", "https://ui.test/users/reset/dXNlcl8x/tok?a=1&b=2"))
	msg, ok := queue.payload.(EmailMessage)
	require.True(t, ok)
	assert.Equal(t, "Password Reset Link", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "Hello Ada")
	assert.Contains(t, msg.HTMLBody, `href="https://ui.test/users/reset/dXNlcl8x/tok?a=1&amp;b=2"`)
}

func TestEmailServiceHandlerProcessesQueuedMessages(t *testing.T) {
	sent := make(chan map[string]interface{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		sent <- body
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	}))
	defer server.Close()

	broker := jobs.NewBroker([]string{EmailQueue}, jobs.QueueConfig{Workers: 1})
	svc := NewEmailService(EmailConfig{Enabled: true, URL: server.URL}, broker, nil)
	svc.RegisterHandler(broker)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker.Start(ctx)
	defer broker.Stop()

	require.NoError(t, svc.Enqueue(EmailMessage{To: []string{"a@example.com"}, Subject: "Queued"}))
	select {
	case body := <-sent:
		assert.Equal(t, "Queued", body["subject"])
	case <-time.After(2 * time.Second):
		t.Fatal("email was not sent")
	}
}
