package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Email is the generic /send-email payload.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NotifyClient calls the staff notification e-mail service.
type NotifyClient struct{ c *Client }

func NewNotifyClient(c *Client) *NotifyClient { return &NotifyClient{c: c} }

func (nc *NotifyClient) SendApproval(ctx context.Context, email, name string) error {
	return nc.c.DoJSON(ctx, http.MethodPost, "/send-approval-email", recipient{Email: email, Name: name}, nil)
}

func (nc *NotifyClient) SendRejection(ctx context.Context, email, name string) error {
	return nc.c.DoJSON(ctx, http.MethodPost, "/send-rejection-email", recipient{Email: email, Name: name}, nil)
}

func (nc *NotifyClient) Send(ctx context.Context, e Email) error {
	return nc.c.DoJSON(ctx, http.MethodPost, "/send-email", e, nil)
}

// Mailer sends notification e-mails fire-and-forget: each send runs on its
// own goroutine with its own timeout, failures are logged and never retried.
type Mailer struct {
	client  *NotifyClient
	timeout time.Duration
	logger  zerolog.Logger
	// done is signalled after every send; tests use it to wait.
	done func()
}

func NewMailer(client *NotifyClient, timeout time.Duration, logger zerolog.Logger) *Mailer {
	return &Mailer{client: client, timeout: timeout, logger: logger, done: func() {}}
}

func (m *Mailer) ApplicationApproved(email, name string) {
	m.fire("approval", email, func(ctx context.Context) error { return m.client.SendApproval(ctx, email, name) })
}

func (m *Mailer) ApplicationRejected(email, name string) {
	m.fire("rejection", email, func(ctx context.Context) error { return m.client.SendRejection(ctx, email, name) })
}

func (m *Mailer) Send(e Email) {
	m.fire("generic", e.To, func(ctx context.Context) error { return m.client.Send(ctx, e) })
}

func (m *Mailer) fire(kind, to string, send func(ctx context.Context) error) {
	go func() {
		defer m.done()
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := send(ctx); err != nil {
			m.logger.Warn().Err(err).Str("kind", kind).Str("to", to).Msg("notification e-mail not sent")
			return
		}
		m.logger.Debug().Str("kind", kind).Str("to", to).Msg("notification e-mail sent")
	}()
}
