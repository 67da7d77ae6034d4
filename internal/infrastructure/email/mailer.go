package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/finbook/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// InviteMail carries everything the invite email template needs
type InviteMail struct {
	To              string
	CompanyName     string
	InviterName     string
	OTPCode         string
	AcceptURL       string
	PersonalMessage string
}

// Mailer sends transactional mail for the access subsystem
type Mailer interface {
	SendInviteOTP(ctx context.Context, mail InviteMail) error
}

// SMTPMailer delivers mail over plain SMTP with AUTH
type SMTPMailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendInviteOTP sends the invite email carrying the OTP code
func (m *SMTPMailer) SendInviteOTP(_ context.Context, mail InviteMail) error {
	subject := fmt.Sprintf("%s heeft je uitgenodigd als boekhouder", mail.CompanyName)
	body := renderInviteBody(mail)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.cfg.FromName, m.cfg.FromAddress),
		fmt.Sprintf("To: %s", mail.To),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{mail.To}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send invite mail: %w", err)
	}

	m.logger.Info("Invite mail sent", zap.String("to", mail.To))
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)

// LogMailer writes mail to the log instead of sending it. Used in
// development and as the fallback when email is disabled. The OTP code is
// logged so the flow stays testable without a mail server.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new logging mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendInviteOTP logs the invite mail
func (m *LogMailer) SendInviteOTP(_ context.Context, mail InviteMail) error {
	m.logger.Info("Invite mail (not sent, email disabled)",
		zap.String("to", mail.To),
		zap.String("company", mail.CompanyName),
		zap.String("otp", mail.OTPCode),
		zap.String("accept_url", mail.AcceptURL),
	)
	return nil
}

var _ Mailer = (*LogMailer)(nil)

// NewMailer returns the mailer matching the configuration
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	if cfg.Enabled {
		return NewSMTPMailer(cfg, logger)
	}
	return NewLogMailer(logger)
}

func renderInviteBody(mail InviteMail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Beste,\n\n")
	fmt.Fprintf(&b, "%s heeft je uitgenodigd om als boekhouder toegang te krijgen tot %s.\n\n", mail.InviterName, mail.CompanyName)
	if mail.PersonalMessage != "" {
		fmt.Fprintf(&b, "Persoonlijk bericht:\n%s\n\n", mail.PersonalMessage)
	}
	fmt.Fprintf(&b, "Je verificatiecode: %s\n\n", mail.OTPCode)
	fmt.Fprintf(&b, "Accepteer de uitnodiging via: %s\n\n", mail.AcceptURL)
	fmt.Fprintf(&b, "Deze code verloopt na korte tijd. Heb je deze uitnodiging niet verwacht, dan kun je dit bericht negeren.\n")
	return b.String()
}
