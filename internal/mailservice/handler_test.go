package mailservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestService(mc *MockMessageConsumer, mailer Mailer) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:        mc,
		m:         mailer,
		moderator: "moderator@example.com",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func TestSendActivationEmail(t *testing.T) {
	mc := &MockMessageConsumer{Body: `{"Email": "test@example.com", "Token": "testtoken"}`}
	mailer := new(MockMailer)

	s := newTestService(mc, mailer)
	t.Cleanup(s.Close)

	s.SendActivationEmail()

	assert.Eventually(t, mailer.IsCalled, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "test@example.com", mailer.GetRecipient())
	assert.Equal(t, "activation_email.html", mailer.GetTemplate())
}

func TestSendReportNotification(t *testing.T) {
	mc := &MockMessageConsumer{Body: `{"id": 1, "post_id": 7, "reporter_id": 3, "reason": "spam"}`}
	mailer := new(MockMailer)

	s := newTestService(mc, mailer)
	t.Cleanup(s.Close)

	s.SendReportNotification()

	assert.Eventually(t, mailer.IsCalled, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "moderator@example.com", mailer.GetRecipient())
	assert.Equal(t, "report_notice.html", mailer.GetTemplate())
}
