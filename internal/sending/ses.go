package sending

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/mail-dispatcher/internal/domain"
	"github.com/ignite/mail-dispatcher/internal/pkg/logger"
)

// DefaultSESRegion is used when no region is configured.
const DefaultSESRegion = "us-east-1"

// SESAPI is the subset of the SES v2 client used by the channel.
type SESAPI interface {
	GetAccount(ctx context.Context, in *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESChannel sends through AWS SES. Credentials map Username to the access
// key, Secret to the secret key and Server to the region.
type SESChannel struct {
	client SESAPI
	region string
}

// NewSESChannel creates a channel that builds its client on Authenticate.
func NewSESChannel() *SESChannel {
	return &SESChannel{}
}

// NewSESChannelWithClient creates a channel around an existing client.
func NewSESChannelWithClient(client SESAPI, region string) *SESChannel {
	return &SESChannel{client: client, region: region}
}

func (c *SESChannel) Type() domain.ChannelType { return domain.ChannelSES }

// Authenticate builds the client if needed and checks the account can be
// read with the credentials.
func (c *SESChannel) Authenticate(ctx context.Context, creds domain.Credentials) error {
	if c.client == nil {
		region := creds.Server
		if region == "" {
			region = DefaultSESRegion
		}
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
		if creds.Username != "" && creds.Secret != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(creds.Username, creds.Secret, "")))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return authError(domain.ChannelSES, region, fmt.Errorf("load aws config: %w", err))
		}
		c.client = sesv2.NewFromConfig(cfg)
		c.region = region
	}

	account, err := c.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return authError(domain.ChannelSES, c.region, err)
	}
	if !account.SendingEnabled {
		return authError(domain.ChannelSES, c.region, fmt.Errorf("sending is disabled for this account"))
	}

	logger.Info("ses channel ready", "region", c.region, "production_access", account.ProductionAccessEnabled)
	return nil
}

func (c *SESChannel) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	out, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ses send: %w", err)
	}

	return &domain.SendResult{
		MessageID: aws.ToString(out.MessageId),
		Channel:   domain.ChannelSES,
		SentAt:    time.Now(),
	}, nil
}

// Close is a no-op; the SES client holds no session.
func (c *SESChannel) Close() error { return nil }
