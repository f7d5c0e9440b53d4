package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/yqhuang/forumist/internal/common"
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:     mb,
		m:      NewMailer(host, port, username, password, sender, NewTemplate()),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SendActivationEmail consumes user.created events and mails the activation
// token to the new account.
func (s *MailService) SendActivationEmail() {
	s.consume(common.UserCreatedKey, common.UserCreatedQueue, "activation email", func(msg amqp.Delivery) (string, any, string, error) {
		var data struct {
			Username string
			Email    string
			Token    string
		}

		if err := json.Unmarshal(msg.Body, &data); err != nil {
			return "", nil, "", err
		}

		payload := struct {
			Username        string
			ActivationToken string
		}{
			Username:        data.Username,
			ActivationToken: data.Token,
		}

		return data.Email, payload, "activation_email.html", nil
	})
}

// SendPasswordResetEmail consumes user.password_reset events and mails the
// temporary password issued by an administrator reset.
func (s *MailService) SendPasswordResetEmail() {
	s.consume(common.PasswordResetKey, common.PasswordResetQueue, "password reset email", func(msg amqp.Delivery) (string, any, string, error) {
		var data struct {
			Username     string
			Email        string
			TempPassword string
		}

		if err := json.Unmarshal(msg.Body, &data); err != nil {
			return "", nil, "", err
		}

		payload := struct {
			Username     string
			TempPassword string
		}{
			Username:     data.Username,
			TempPassword: data.TempPassword,
		}

		return data.Email, payload, "temporary_password.html", nil
	})
}

func (s *MailService) consume(key common.BindingKey, queue common.Queue, label string, decode func(amqp.Delivery) (string, any, string, error)) {
	msgs, err := s.mb.Consume(key, common.UserExchange, queue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				recipient, payload, templateFile, err := decode(msg)
				if err != nil {
					s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
					continue
				}

				s.deliver(msg, recipient, payload, templateFile, label)

			case <-s.ctx.Done():
				s.logger.Info("stopping mail consumer due to context cancellation", slog.String("mail", label))
				return
			}
		}
	}()
}

// deliver retries with exponential backoff and jitter before giving up.
func (s *MailService) deliver(msg amqp.Delivery, recipient string, payload any, templateFile, label string) {
	const maxRetries = 5
	const baseDelay = 500 * time.Millisecond

	var attempt int
	for attempt = 0; attempt < maxRetries; attempt++ {
		err := s.m.send(recipient, payload, templateFile)
		if err == nil {
			s.logger.Info(label+" sent", slog.String("email", recipient))
			msg.Ack(false)
			return
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying "+label, slog.String("email", recipient), slog.Int("attempt", attempt), slog.Duration("delay", delay))
		time.Sleep(delay)
	}

	s.logger.Error("could not send "+label, slog.String("email", recipient))
	msg.Ack(false)
}

func (s *MailService) Close() {
	s.cancel()
}
