package sending

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/ignite/mail-dispatcher/internal/domain"
	"github.com/ignite/mail-dispatcher/internal/pkg/logger"
)

// DefaultSMTPPort is the STARTTLS submission port.
const DefaultSMTPPort = 587

const smtpDialTimeout = 30 * time.Second

// ErrNotAuthenticated is returned by Send before a successful Authenticate.
var ErrNotAuthenticated = errors.New("channel not authenticated")

// SMTPChannel keeps one STARTTLS session open for the whole run.
type SMTPChannel struct {
	client *gomail.Client
	server string
}

// NewSMTPChannel creates an unconnected SMTP channel.
func NewSMTPChannel() *SMTPChannel {
	return &SMTPChannel{}
}

func (c *SMTPChannel) Type() domain.ChannelType { return domain.ChannelSMTP }

// Authenticate dials the server, upgrades with STARTTLS and logs in with
// PLAIN auth.
func (c *SMTPChannel) Authenticate(ctx context.Context, creds domain.Credentials) error {
	port := creds.Port
	if port == 0 {
		port = DefaultSMTPPort
	}
	server := net.JoinHostPort(creds.Server, strconv.Itoa(port))

	client, err := gomail.NewClient(creds.Server,
		gomail.WithPort(port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(creds.Username),
		gomail.WithPassword(creds.Secret),
		gomail.WithTimeout(smtpDialTimeout),
	)
	if err != nil {
		return authError(domain.ChannelSMTP, server, err)
	}
	if err := client.DialWithContext(ctx); err != nil {
		return authError(domain.ChannelSMTP, server, err)
	}

	c.client = client
	c.server = server
	logger.Info("smtp session established", "server", server, "username", creds.Username)
	return nil
}

// Send delivers one plain-text message on the open session.
func (c *SMTPChannel) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := buildMsg(msg)
	if err != nil {
		return nil, err
	}
	if err := c.client.Send(m); err != nil {
		return nil, fmt.Errorf("smtp send: %w", err)
	}

	return &domain.SendResult{
		MessageID: m.GetMessageID(),
		Channel:   domain.ChannelSMTP,
		SentAt:    time.Now(),
	}, nil
}

// Close ends the session. Calling Close on an unauthenticated channel is a
// no-op.
func (c *SMTPChannel) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func buildMsg(msg *domain.OutboundMessage) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("failed to set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("failed to set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}
