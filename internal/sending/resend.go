package sending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// ResendEmails is the part of the Resend emails service the channel uses.
type ResendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendChannel sends through the Resend API. The API key is taken from
// Credentials.Secret.
type ResendChannel struct {
	emails ResendEmails
}

// NewResendChannel creates a channel that builds its client on Authenticate.
func NewResendChannel() *ResendChannel {
	return &ResendChannel{}
}

// NewResendChannelWithEmails creates a channel around an existing service.
func NewResendChannelWithEmails(emails ResendEmails) *ResendChannel {
	return &ResendChannel{emails: emails}
}

func (c *ResendChannel) Type() domain.ChannelType { return domain.ChannelResend }

// Authenticate only checks that an API key is present. Resend has no
// session and a bad key surfaces on the first send.
func (c *ResendChannel) Authenticate(_ context.Context, creds domain.Credentials) error {
	if c.emails != nil {
		return nil
	}
	if creds.Secret == "" {
		return authError(domain.ChannelResend, "api.resend.com", errors.New("api key is empty"))
	}
	c.emails = resend.NewClient(creds.Secret).Emails
	return nil
}

func (c *ResendChannel) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	if c.emails == nil {
		return nil, ErrNotAuthenticated
	}

	sent, err := c.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("resend send failed: %w", err)
	}

	return &domain.SendResult{
		MessageID: sent.Id,
		Channel:   domain.ChannelResend,
		SentAt:    time.Now(),
	}, nil
}

func (c *ResendChannel) Close() error { return nil }
