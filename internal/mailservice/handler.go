package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/blurblog/blur/internal/common"
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender, moderator string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:        mb,
		m:         NewMailer(host, port, username, password, sender, NewTemplate()),
		moderator: moderator,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SendActivationEmail consumes user.created events and mails out the account
// activation token.
func (s *MailService) SendActivationEmail() {
	msgs, err := s.mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go s.consumeLoop(msgs, func(msg amqp.Delivery) {
		var data struct {
			Email string
			Token string
		}

		err := json.Unmarshal(msg.Body, &data)
		if err != nil {
			s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
			return
		}

		payload := struct {
			ActivationToken string
		}{
			ActivationToken: data.Token,
		}

		s.sendWithRetry(data.Email, payload, "activation_email.html")
		msg.Ack(false)
	})
}

// SendReportNotification consumes report.created events and notifies the
// moderator address.
func (s *MailService) SendReportNotification() {
	msgs, err := s.mb.Consume(common.ReportCreatedKey, common.ReportExchange, common.ReportCreatedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go s.consumeLoop(msgs, func(msg amqp.Delivery) {
		var data struct {
			ID         int    `json:"id"`
			PostID     int    `json:"post_id"`
			ReporterID int    `json:"reporter_id"`
			Reason     string `json:"reason"`
		}

		err := json.Unmarshal(msg.Body, &data)
		if err != nil {
			s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
			return
		}

		payload := struct {
			ReportID   int
			PostID     int
			ReporterID int
			Reason     string
		}{
			ReportID:   data.ID,
			PostID:     data.PostID,
			ReporterID: data.ReporterID,
			Reason:     data.Reason,
		}

		s.sendWithRetry(s.moderator, payload, "report_notice.html")
		msg.Ack(false)
	})
}

func (s *MailService) consumeLoop(msgs <-chan amqp.Delivery, handle func(amqp.Delivery)) {
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(msg)
		case <-s.ctx.Done():
			s.logger.Info("stopping mail consumer due to context cancellation")
			return
		}
	}
}

// sendWithRetry uses exponential backoff with jitter. A message that still
// fails after the last attempt is dropped rather than redelivered.
func (s *MailService) sendWithRetry(recipient string, payload any, templateFile string) {
	const maxRetries = 5
	const baseDelay = 500 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(recipient, payload, templateFile)
		if err == nil {
			s.logger.Info("email sent", slog.String("email", recipient), slog.String("template", templateFile))
			return
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying email", slog.String("email", recipient), slog.Int("attempt", attempt), slog.Duration("delay", delay))
		time.Sleep(delay)
	}

	s.logger.Error("could not send email", slog.String("email", recipient), slog.String("template", templateFile))
}

func (s *MailService) Close() {
	s.cancel()
}
