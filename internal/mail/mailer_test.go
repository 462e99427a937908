package mail

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/mpbooks/mpbooks-backend/pkg/config"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
)

type capturingSender struct {
	messages []*gomail.Msg
	fail     error
}

func (c *capturingSender) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	if c.fail != nil {
		return c.fail
	}
	c.messages = append(c.messages, messages...)
	return nil
}

func testMailer(t *testing.T, transport sender) *Mailer {
	t.Helper()
	cfg := config.SMTPConfig{
		Host:        "smtp.example.com",
		Port:        587,
		FromAddress: "noreply@mpbooks.example",
		FromName:    "MP Books & Stationery",
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewWithSender(cfg, transport, logg, nil)
}

func TestSendVerificationCodeIncludesCode(t *testing.T) {
	transport := &capturingSender{}
	mailer := testMailer(t, transport)

	err := mailer.SendVerificationCode(context.Background(), "user@example.com", "Fatima", "481516")
	require.NoError(t, err)
	require.Len(t, transport.messages, 1)

	msg := transport.messages[0]
	subject := msg.GetGenHeader(gomail.HeaderSubject)
	require.Len(t, subject, 1)
	assert.Contains(t, subject[0], "Verify")
}

func TestSendOrderConfirmationFormatsTotal(t *testing.T) {
	transport := &capturingSender{}
	mailer := testMailer(t, transport)

	err := mailer.SendOrderConfirmation(context.Background(), "user@example.com", "Fatima", "AB12", decimal.NewFromInt(1045))
	require.NoError(t, err)
	require.Len(t, transport.messages, 1)
}

func TestSendPropagatesTransportFailure(t *testing.T) {
	transport := &capturingSender{fail: assert.AnError}
	mailer := testMailer(t, transport)

	err := mailer.SendPickupReady(context.Background(), "user@example.com", "Fatima", "AB12")
	require.Error(t, err)
}

func TestUnconfiguredMailerDropsQuietly(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	mailer, err := New(config.SMTPConfig{}, logg, nil)
	require.NoError(t, err)

	err = mailer.SendWelcome(context.Background(), "user@example.com", "Fatima")
	require.NoError(t, err)
}
