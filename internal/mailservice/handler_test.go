package mailservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yqhuang/forumist/internal/common"
)

func newTestMailService(mc *MockMessageConsumer, mailer *MockMailer, logger *MockLogger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())

	return &MailService{
		mb:     mc,
		m:      mailer,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func TestSendActivationEmail(t *testing.T) {
	mockMC := &MockMessageConsumer{
		Messages: map[common.BindingKey]string{
			common.UserCreatedKey: `{"Username": "testuser", "Email": "test@example.com", "Token": "testtoken"}`,
		},
	}
	mockMailer := new(MockMailer)
	mockLogger := new(MockLogger)

	s := newTestMailService(mockMC, mockMailer, mockLogger)
	t.Cleanup(s.Close)

	s.SendActivationEmail()

	assert.Eventually(t, mockMailer.IsCalled, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "test@example.com", mockMailer.GetEmail())
	assert.Equal(t, "activation_email.html", mockMailer.GetTemplate())
	assert.Eventually(t, func() bool {
		for _, e := range mockLogger.Entries() {
			if e == "activation email sent" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendPasswordResetEmail(t *testing.T) {
	mockMC := &MockMessageConsumer{
		Messages: map[common.BindingKey]string{
			common.PasswordResetKey: `{"Username": "testuser", "Email": "test@example.com", "TempPassword": "aZ1!TEMP"}`,
		},
	}
	mockMailer := new(MockMailer)
	mockLogger := new(MockLogger)

	s := newTestMailService(mockMC, mockMailer, mockLogger)
	t.Cleanup(s.Close)

	s.SendPasswordResetEmail()

	assert.Eventually(t, mockMailer.IsCalled, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "test@example.com", mockMailer.GetEmail())
	assert.Equal(t, "temporary_password.html", mockMailer.GetTemplate())
}

func TestMalformedMessageIsSkipped(t *testing.T) {
	mockMC := &MockMessageConsumer{
		Messages: map[common.BindingKey]string{
			common.UserCreatedKey: `not json`,
		},
	}
	mockMailer := new(MockMailer)
	mockLogger := new(MockLogger)

	s := newTestMailService(mockMC, mockMailer, mockLogger)
	t.Cleanup(s.Close)

	s.SendActivationEmail()

	assert.Eventually(t, func() bool {
		for _, e := range mockLogger.Entries() {
			if e == "could not unmarshal message" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, mockMailer.IsCalled())
}
