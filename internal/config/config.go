package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// Settings holds everything read from the settings file.
type Settings struct {
	SMTP     SMTPConfig     `yaml:"smtp"`
	Emails   EmailsConfig   `yaml:"emails"`
	CSV      CSVConfig      `yaml:"csv"`
	Channel  ChannelConfig  `yaml:"channel"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Progress ProgressConfig `yaml:"progress"`
	History  HistoryConfig  `yaml:"history"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Log      LogConfig      `yaml:"log"`

	// dir is the directory of the settings file; writeup paths are
	// relative to it.
	dir string
}

// SMTPConfig holds the SMTP login
type SMTPConfig struct {
	Username string `yaml:"username"`
	Passkey  string `yaml:"passkey"`
	Server   string `yaml:"smtp_server"`
	Port     int    `yaml:"smtp_port"`
}

// EmailsConfig holds sender identities and the templates. Subjects and
// writeups are parallel lists.
type EmailsConfig struct {
	IDs      []string `yaml:"ids"`
	Subjects []string `yaml:"subjects"`
	Writeups []string `yaml:"writeups"`
}

// CSVConfig holds the placeholder mapping and ledger options. Titles and
// placeholders are parallel lists.
type CSVConfig struct {
	Titles              []string `yaml:"titles"`
	Placeholders        []string `yaml:"placeholders"`
	SegregateByWriteups bool     `yaml:"segregate_by_writeups"`
	SegregateByIDs      bool     `yaml:"segregate_by_ids"`
	OutputFolder        string   `yaml:"output_folder"`
}

// ChannelConfig selects the mail transport
type ChannelConfig struct {
	Type   domain.ChannelType `yaml:"type"`
	SES    SESConfig          `yaml:"ses"`
	Resend ResendConfig       `yaml:"resend"`
}

// SESConfig holds AWS SES credentials
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// ResendConfig holds the Resend API key
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

// DispatchConfig holds dispatch loop pacing
type DispatchConfig struct {
	// SendIntervalMS is the pause after each send. Unset means the default,
	// 0 disables pacing.
	SendIntervalMS *int `yaml:"send_interval_ms"`
}

// SendInterval returns the configured pause as a duration
func (c DispatchConfig) SendInterval() time.Duration {
	if c.SendIntervalMS == nil {
		return DefaultSendInterval
	}
	return time.Duration(*c.SendIntervalMS) * time.Millisecond
}

// ProgressConfig enables the Redis progress sink when RedisURL is set
type ProgressConfig struct {
	RedisURL  string `yaml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// HistoryConfig selects where run summaries are recorded
type HistoryConfig struct {
	Type          string `yaml:"type"` // "none", "postgres" or "dynamodb"
	DatabaseURL   string `yaml:"database_url"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	Region        string `yaml:"region"`
}

// ArchiveConfig enables uploading ledgers to S3 when S3Bucket is set
type ArchiveConfig struct {
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	Region   string `yaml:"region"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedact reports whether PII redaction is on. Defaults to true.
func (c LogConfig) ShouldRedact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

const (
	DefaultSMTPPort     = 587
	DefaultSendInterval = time.Second
	DefaultAWSRegion    = "us-east-1"
	DefaultHistoryTable = "mail_dispatcher_runs"

	HistoryNone     = "none"
	HistoryPostgres = "postgres"
	HistoryDynamoDB = "dynamodb"
)

// Load reads and parses the settings file
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.dir = filepath.Dir(path)

	// Set defaults
	if s.SMTP.Port == 0 {
		s.SMTP.Port = DefaultSMTPPort
	}
	if s.Channel.Type == "" {
		s.Channel.Type = domain.ChannelSMTP
	}
	if s.Channel.SES.Region == "" {
		s.Channel.SES.Region = DefaultAWSRegion
	}
	if s.History.Type == "" {
		s.History.Type = HistoryNone
	}
	if s.History.DynamoDBTable == "" {
		s.History.DynamoDBTable = DefaultHistoryTable
	}
	if s.History.Region == "" {
		s.History.Region = DefaultAWSRegion
	}
	if s.Archive.Region == "" {
		s.Archive.Region = DefaultAWSRegion
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}

	return &s, nil
}

// LoadFromEnv loads settings with environment variable overrides. A .env
// file in the working directory is loaded first if present.
func LoadFromEnv(path string) (*Settings, error) {
	_ = godotenv.Load()

	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		s.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSKEY"); v != "" {
		s.SMTP.Passkey = v
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		s.SMTP.Server = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SMTP_PORT: %w", err)
		}
		s.SMTP.Port = port
	}
	if v := os.Getenv("SES_ACCESS_KEY"); v != "" {
		s.Channel.SES.AccessKey = v
	}
	if v := os.Getenv("SES_SECRET_KEY"); v != "" {
		s.Channel.SES.SecretKey = v
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		s.Channel.SES.Region = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		s.Channel.Resend.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		s.Progress.RedisURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		s.History.DatabaseURL = v
		if s.History.Type == HistoryNone {
			s.History.Type = HistoryPostgres
		}
	}
	if v := os.Getenv("LEDGER_ARCHIVE_BUCKET"); v != "" {
		s.Archive.S3Bucket = v
	}

	return s, nil
}

// Check reports every important setting that is still empty. A run cannot
// start until Check passes.
func (s *Settings) Check() error {
	var errs []error
	empty := func(field string) {
		errs = append(errs, &domain.ConfigInvariantError{Field: field, Reason: "is empty"})
	}

	switch s.Channel.Type {
	case domain.ChannelSMTP:
		if strings.TrimSpace(s.SMTP.Username) == "" {
			empty("smtp.username")
		}
		if strings.TrimSpace(s.SMTP.Passkey) == "" {
			empty("smtp.passkey")
		}
		if strings.TrimSpace(s.SMTP.Server) == "" {
			empty("smtp.smtp_server")
		}
		if s.SMTP.Port == 0 {
			empty("smtp.smtp_port")
		}
	case domain.ChannelResend:
		if s.Channel.Resend.APIKey == "" {
			empty("channel.resend.api_key")
		}
	}
	if len(s.Emails.IDs) == 0 {
		empty("emails.ids")
	}
	if len(s.Emails.Subjects) == 0 {
		empty("emails.subjects")
	}
	if len(s.Emails.Writeups) == 0 {
		empty("emails.writeups")
	}
	if len(s.CSV.Titles) == 0 {
		empty("csv.titles")
	}
	if len(s.CSV.Placeholders) == 0 {
		empty("csv.placeholders")
	}
	if (s.CSV.SegregateByIDs || s.CSV.SegregateByWriteups) && strings.TrimSpace(s.CSV.OutputFolder) == "" {
		empty("csv.output_folder")
	}
	return errors.Join(errs...)
}

// Credentials returns the login for the configured channel
func (s *Settings) Credentials() domain.Credentials {
	switch s.Channel.Type {
	case domain.ChannelSES:
		return domain.Credentials{
			Server:   s.Channel.SES.Region,
			Username: s.Channel.SES.AccessKey,
			Secret:   s.Channel.SES.SecretKey,
		}
	case domain.ChannelResend:
		return domain.Credentials{Server: "api.resend.com", Secret: s.Channel.Resend.APIKey}
	default:
		return domain.Credentials{
			Server:   s.SMTP.Server,
			Port:     s.SMTP.Port,
			Username: s.SMTP.Username,
			Secret:   s.SMTP.Passkey,
		}
	}
}

// WriteupPath resolves a writeup source against the settings directory.
func (s *Settings) WriteupPath(writeup string) string {
	if filepath.IsAbs(writeup) || s.dir == "" {
		return writeup
	}
	return filepath.Join(s.dir, writeup)
}

// Configuration builds the immutable run configuration, reading every
// writeup body from disk.
func (s *Settings) Configuration() (*domain.Configuration, error) {
	if len(s.Emails.Subjects) != len(s.Emails.Writeups) {
		return nil, &domain.ConfigInvariantError{
			Field:  "emails.subjects",
			Reason: fmt.Sprintf("%d subjects for %d writeups", len(s.Emails.Subjects), len(s.Emails.Writeups)),
		}
	}
	if len(s.CSV.Titles) != len(s.CSV.Placeholders) {
		return nil, &domain.ConfigInvariantError{
			Field:  "csv.titles",
			Reason: fmt.Sprintf("%d titles for %d placeholders", len(s.CSV.Titles), len(s.CSV.Placeholders)),
		}
	}

	templates := make([]domain.Template, len(s.Emails.Writeups))
	for i, w := range s.Emails.Writeups {
		body, err := os.ReadFile(s.WriteupPath(w))
		if err != nil {
			return nil, &domain.ConfigInvariantError{Field: "emails.writeups", Reason: err.Error()}
		}
		templates[i] = domain.Template{Subject: s.Emails.Subjects[i], BodySource: w, Body: string(body)}
	}

	mappings := make([]domain.PlaceholderMapping, len(s.CSV.Placeholders))
	for i, p := range s.CSV.Placeholders {
		mappings[i] = domain.PlaceholderMapping{Name: p, ColumnTitle: s.CSV.Titles[i]}
	}

	cfg := &domain.Configuration{
		SenderIdentities:    append([]string(nil), s.Emails.IDs...),
		Templates:           templates,
		Placeholders:        mappings,
		SegregateByTemplate: s.CSV.SegregateByWriteups,
		SegregateBySender:   s.CSV.SegregateByIDs,
		OutputDirectory:     s.CSV.OutputFolder,
		SendInterval:        s.Dispatch.SendInterval(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
