package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

type sendMailFunc func(ctx context.Context, m *mail.Msg) error

// Email delivers alerts over SMTP with mandatory STARTTLS and PLAIN auth.
type Email struct {
	Server   string
	Port     int
	User     string
	Password string
	To       string

	send sendMailFunc
}

func NewEmail(server string, port int, user, password, to string) *Email {
	e := &Email{Server: server, Port: port, User: user, Password: password, To: to}
	e.send = e.dial
	return e
}

func (e *Email) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := e.compose(a)
	if err != nil {
		return fmt.Errorf("compose email notification: %w", err)
	}
	send := e.send
	if send == nil {
		send = e.dial
	}
	if err := send(ctx, m); err != nil {
		return fmt.Errorf("send email notification: %w", err)
	}
	return nil
}

func (e *Email) dial(ctx context.Context, m *mail.Msg) error {
	c, err := mail.NewClient(e.Server,
		mail.WithPort(e.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.User),
		mail.WithPassword(e.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

func (e *Email) compose(a Alert) (*mail.Msg, error) {
	name := headerSafe(a.PartnerName)
	m := mail.NewMsg()
	if err := m.From(e.User); err != nil {
		return nil, err
	}
	if err := m.To(e.To); err != nil {
		return nil, err
	}
	m.Subject("SMS Reply from " + name)
	m.SetBodyString(mail.TypeTextPlain, fmt.Sprintf("Reply from %s:\r\n\r\n%s\r\n\r\nOpen app to respond.\r\n", name, a.Body))
	return m, nil
}

// headerSafe folds CR/LF runs into a single space.
func headerSafe(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}
