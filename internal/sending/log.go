package sending

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mail-dispatcher/internal/domain"
	"github.com/ignite/mail-dispatcher/internal/pkg/logger"
)

// LogChannel logs messages instead of sending them. Used for dry runs.
type LogChannel struct {
	sent int
}

func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

func (c *LogChannel) Type() domain.ChannelType { return domain.ChannelLog }

func (c *LogChannel) Authenticate(_ context.Context, creds domain.Credentials) error {
	logger.Info("log channel in use, nothing will be sent", "username", creds.Username)
	return nil
}

func (c *LogChannel) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := "log-" + uuid.New().String()
	c.sent++
	logger.Info("email logged (not sent)",
		"from", msg.From,
		"recipient", msg.To,
		"subject", msg.Subject,
		"body_length", len(msg.Body),
		"message_id", id,
	)
	logger.Debug("email body", "message_id", id, "body", msg.Body)
	return &domain.SendResult{MessageID: id, Channel: domain.ChannelLog, SentAt: time.Now()}, nil
}

// Sent returns how many messages were logged.
func (c *LogChannel) Sent() int { return c.sent }

func (c *LogChannel) Close() error { return nil }
