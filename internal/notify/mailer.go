// Package notify sends account e-mails.
package notify

import (
	"context"
	"fmt"

	"github.com/mariyam933/fyp/internal/config"
	"github.com/mariyam933/fyp/internal/models"
	"github.com/wneessen/go-mail"
)

// Mailer delivers the welcome message for a new account.
type Mailer interface {
	SendWelcome(ctx context.Context, user *models.User, password string) error
}

// SMTPMailer sends through one SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, user *models.User, password string) error {
	subject, body := WelcomeMessage(user, password)

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(user.Email); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send welcome mail: %w", err)
	}
	return nil
}

// WelcomeMessage builds the subject and plain-text body for a new account.
func WelcomeMessage(user *models.User, password string) (string, string) {
	var subject, kind string
	switch user.Role {
	case models.RoleAdmin:
		subject, kind = "Welcome as an Admin!", "admin"
	case models.RoleMeterReader:
		subject, kind = "Welcome as a Meter Reader!", "meter reader"
	default:
		subject, kind = "Welcome to NEBA Billing!", "customer"
	}

	body := fmt.Sprintf("Dear %s,\n\nYour %s account has been created successfully.\n\n"+
		"Your Credentials:\nEmail: %s\nPassword: %s\n\nBest Regards,\nNEBA Billing",
		user.Name, kind, user.Email, password)
	return subject, body
}

// Noop drops every message. Used when mail is disabled.
type Noop struct{}

func (Noop) SendWelcome(context.Context, *models.User, string) error { return nil }
