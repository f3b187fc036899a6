// Package sending implements the outbound mail channel used by the
// dispatch engine.
//
// A channel is authenticated once per run, then Send is called
// synchronously for every contact. SMTP is the default transport. SES and
// Resend are API alternatives, and the log channel backs dry runs.
package sending

import (
	"context"
	"fmt"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// Channel delivers composed messages. A channel is used by one run at a
// time and need not be safe for concurrent use.
type Channel interface {
	Type() domain.ChannelType
	// Authenticate opens the session. Failures are reported as
	// *domain.ChannelAuthenticationError.
	Authenticate(ctx context.Context, creds domain.Credentials) error
	Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error)
	Close() error
}

// New returns an unauthenticated channel of the given type.
func New(t domain.ChannelType) (Channel, error) {
	switch t {
	case domain.ChannelSMTP, "":
		return NewSMTPChannel(), nil
	case domain.ChannelSES:
		return NewSESChannel(), nil
	case domain.ChannelResend:
		return NewResendChannel(), nil
	case domain.ChannelLog:
		return NewLogChannel(), nil
	default:
		return nil, fmt.Errorf("unknown channel type %q", t)
	}
}

func authError(t domain.ChannelType, server string, err error) error {
	return &domain.ChannelAuthenticationError{Channel: t, Server: server, Err: err}
}
