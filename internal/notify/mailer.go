// Package notify sends transactional e-mail.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a rendered e-mail
type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SendgridConfig holds SendGrid settings
type SendgridConfig struct {
	APIKey   string
	From     mail.Address
	AppName  string
	Host     string
	Endpoint string
}

// SendgridMailer sends through the SendGrid v3 mail API
type SendgridMailer struct {
	key        string
	host       string
	endpoint   string
	from       *sgmail.Email
	subjPrefix string
}

// NewSendgridMailer creates a SendGrid mailer
func NewSendgridMailer(cfg SendgridConfig) (*SendgridMailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	host := cfg.Host
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/v3/mail/send"
	}

	m := &SendgridMailer{
		key:      cfg.APIKey,
		host:     host,
		endpoint: endpoint,
		from:     sgmail.NewEmail(cfg.From.Name, cfg.From.Address),
	}
	if cfg.AppName != "" {
		m.subjPrefix = "[" + cfg.AppName + "] "
	}
	return m, nil
}

func (m *SendgridMailer) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return v3
}

// Send posts the message to SendGrid
func (m *SendgridMailer) Send(ctx context.Context, msg *Message) error {
	req := sendgrid.GetRequest(m.key, m.endpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("failed to send email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ConsoleMailer logs messages instead of sending them
type ConsoleMailer struct {
	mu   sync.Mutex
	sent []Message
}

// NewConsoleMailer creates a ConsoleMailer
func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{}
}

func (m *ConsoleMailer) Send(ctx context.Context, msg *Message) error {
	slog.Info("email",
		"to", msg.To.String(),
		"subject", msg.Subject,
		"text", msg.Text,
	)

	m.mu.Lock()
	m.sent = append(m.sent, *msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every message sent so far
func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
