package infrastructure

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

const pdfContentType = mail.ContentType("application/pdf")

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SSL selects implicit TLS; otherwise STARTTLS is required.
	SSL bool
}

// SMTPMailer sends report emails through one SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return &SMTPMailer{client: c, from: cfg.From}, nil
}

func (m *SMTPMailer) SendWithAttachment(ctx context.Context, to, subject, body, filename string, content []byte) error {
	msg, err := newMessage(m.from, to, subject, body, filename, content)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

func newMessage(from, to, subject, body, filename string, content []byte) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mailer: sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mailer: recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	if err := msg.AttachReader(filename, bytes.NewReader(content), mail.WithFileContentType(pdfContentType)); err != nil {
		return nil, fmt.Errorf("mailer: attach %s: %w", filename, err)
	}
	return msg, nil
}
