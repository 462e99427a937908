package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/mpbooks/mpbooks-backend/pkg/config"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
	"github.com/mpbooks/mpbooks-backend/pkg/metrics"

	"github.com/shopspring/decimal"
)

// Mail kinds used for metrics labels.
const (
	kindVerification      = "verification"
	kindWelcome           = "welcome"
	kindOrderConfirmation = "order_confirmation"
	kindPickupReady       = "pickup_ready"
	kindPasswordReset     = "password_reset"
	kindContactReply      = "contact_reply"
)

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Mailer delivers transactional email over SMTP. When SMTP is not configured
// every send becomes a logged no-op so local development works without a
// mail server.
type Mailer struct {
	cfg     config.SMTPConfig
	client  sender
	logg    *logger.Logger
	metrics *metrics.MailMetrics
}

// New builds an SMTP-backed mailer from configuration.
func New(cfg config.SMTPConfig, logg *logger.Logger, mailMetrics *metrics.MailMetrics) (*Mailer, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	m := &Mailer{cfg: cfg, logg: logg, metrics: mailMetrics}
	if !cfg.Enabled() {
		return m, nil
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// NewWithSender is used by tests to swap in a fake SMTP transport.
func NewWithSender(cfg config.SMTPConfig, client sender, logg *logger.Logger, mailMetrics *metrics.MailMetrics) *Mailer {
	return &Mailer{cfg: cfg, client: client, logg: logg, metrics: mailMetrics}
}

func (m *Mailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	subject := "Verify your MP Books & Stationery account"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour verification code is %s. It expires shortly, so enter it soon.\n\nMP Books & Stationery",
		name, code,
	)
	return m.send(ctx, kindVerification, to, subject, body)
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	subject := "Welcome to MP Books & Stationery"
	body := fmt.Sprintf(
		"Hello %s,\n\nYour account is verified. Happy shopping!\n\nMP Books & Stationery",
		name,
	)
	return m.send(ctx, kindWelcome, to, subject, body)
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, to, name, code string, total decimal.Decimal) error {
	subject := fmt.Sprintf("Order %s confirmed", code)
	body := fmt.Sprintf(
		"Hello %s,\n\nWe received your order %s totalling Rs. %s. Quote this code when collecting or asking about your order.\n\nMP Books & Stationery",
		name, code, total.StringFixed(2),
	)
	return m.send(ctx, kindOrderConfirmation, to, subject, body)
}

func (m *Mailer) SendPickupReady(ctx context.Context, to, name, code string) error {
	subject := fmt.Sprintf("Order %s is ready for pickup", code)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour order %s is packed and waiting at the shop. Bring the order code with you.\n\nMP Books & Stationery",
		name, code,
	)
	return m.send(ctx, kindPickupReady, to, subject, body)
}

func (m *Mailer) SendPasswordResetCode(ctx context.Context, to, name, code string) error {
	subject := "Your password reset code"
	body := fmt.Sprintf(
		"Hello %s,\n\nUse code %s to reset your password. If you did not request this, ignore this email.\n\nMP Books & Stationery",
		name, code,
	)
	return m.send(ctx, kindPasswordReset, to, subject, body)
}

func (m *Mailer) SendContactReply(ctx context.Context, to, name, subject, reply string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\n%s\n\nMP Books & Stationery",
		name, reply,
	)
	return m.send(ctx, kindContactReply, to, "Re: "+subject, body)
}

func (m *Mailer) send(ctx context.Context, kind, to, subject, body string) error {
	if m.client == nil {
		m.logg.Warn(m.logg.WithFields(ctx, map[string]any{
			"kind": kind,
			"to":   to,
		}), "smtp not configured, dropping email")
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromAddress); err != nil {
		m.metrics.IncFailure(kind)
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		m.metrics.IncFailure(kind)
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.metrics.IncFailure(kind)
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	m.metrics.IncSent(kind)
	return nil
}
