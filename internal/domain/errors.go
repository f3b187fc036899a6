package domain

import "fmt"

// ConfigInvariantError reports a configuration that cannot start a run.
type ConfigInvariantError struct {
	Field  string
	Reason string
}

func (e *ConfigInvariantError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// MalformedSourceError reports an unreadable or inconsistent contact file.
// Line is 1-based; 0 means the error is not tied to a line.
type MalformedSourceError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	msg := "malformed contact source " + e.Path
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }

// MissingRequiredPlaceholderError reports that the "email" column is absent.
type MissingRequiredPlaceholderError struct {
	Placeholder string
	ColumnTitle string
}

func (e *MissingRequiredPlaceholderError) Error() string {
	return fmt.Sprintf("required placeholder {%s}: column %q not found in contact header", e.Placeholder, e.ColumnTitle)
}

// ChannelAuthenticationError reports a failed mail channel login.
type ChannelAuthenticationError struct {
	Channel ChannelType
	Server  string
	Err     error
}

func (e *ChannelAuthenticationError) Error() string {
	return fmt.Sprintf("%s channel authentication against %s failed: %v", e.Channel, e.Server, e.Err)
}

func (e *ChannelAuthenticationError) Unwrap() error { return e.Err }

// DeliveryError reports a single failed send. It never aborts a run.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PartitionIOError reports a ledger file failure. Op is "open", "append" or "close".
type PartitionIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *PartitionIOError) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PartitionIOError) Unwrap() error { return e.Err }
