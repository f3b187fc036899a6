package domain

import "time"

// ChannelType identifies the transport behind the outbound mail channel.
type ChannelType string

const (
	ChannelSMTP   ChannelType = "smtp"
	ChannelSES    ChannelType = "ses"
	ChannelResend ChannelType = "resend"
	ChannelLog    ChannelType = "log"
)

// DispatchAttempt is the fully composed message for one contact. It lives
// for a single loop iteration and is never persisted.
type DispatchAttempt struct {
	Contact       ContactRecord `json:"contact"`
	TemplateIndex int           `json:"template_index"`
	SenderIndex   int           `json:"sender_index"`
	Sender        string        `json:"sender"`
	Recipient     string        `json:"recipient"`
	Subject       string        `json:"subject"`
	Body          string        `json:"body"`
}

// Message converts the attempt into what the mail channel sends.
func (a *DispatchAttempt) Message() *OutboundMessage {
	return &OutboundMessage{
		From:    a.Sender,
		To:      a.Recipient,
		Subject: a.Subject,
		Body:    a.Body,
	}
}

// OutboundMessage is the transport-level view of an attempt.
type OutboundMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Credentials are handed to the mail channel at authentication time.
// Server is a host name for SMTP and a region for SES.
type Credentials struct {
	Server   string `json:"server"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Secret   string `json:"-"`
}

// SendResult is returned by a channel after a successful send.
type SendResult struct {
	MessageID string      `json:"message_id"`
	Channel   ChannelType `json:"channel"`
	SentAt    time.Time   `json:"sent_at"`
}
