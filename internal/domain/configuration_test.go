package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfiguration() Configuration {
	return Configuration{
		SenderIdentities: []string{"sales@example.com"},
		Templates:        []Template{{Subject: "Hi", BodySource: "intro.txt", Body: "Hi {name}"}},
		Placeholders: []PlaceholderMapping{
			{Name: "name", ColumnTitle: "name"},
			{Name: "email", ColumnTitle: "email"},
		},
		SegregateBySender: true,
		OutputDirectory:   "out",
	}
}

func TestConfigurationValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
		field  string
	}{
		{name: "valid", mutate: func(c *Configuration) {}},
		{name: "no senders", mutate: func(c *Configuration) { c.SenderIdentities = nil }, field: "sender_identities"},
		{name: "empty sender", mutate: func(c *Configuration) { c.SenderIdentities = []string{""} }, field: "sender_identities"},
		{name: "no templates", mutate: func(c *Configuration) { c.Templates = nil }, field: "templates"},
		{name: "template without source", mutate: func(c *Configuration) { c.Templates[0].BodySource = "" }, field: "templates"},
		{name: "no placeholders", mutate: func(c *Configuration) { c.Placeholders = nil }, field: "placeholders"},
		{name: "missing email mapping", mutate: func(c *Configuration) {
			c.Placeholders = []PlaceholderMapping{{Name: "name", ColumnTitle: "name"}}
		}, field: "placeholders"},
		{name: "duplicate names", mutate: func(c *Configuration) {
			c.Placeholders = append(c.Placeholders, PlaceholderMapping{Name: "email", ColumnTitle: "mail"})
		}, field: "placeholders"},
		{name: "no output directory", mutate: func(c *Configuration) { c.OutputDirectory = "" }, field: "output_directory"},
		{name: "negative interval", mutate: func(c *Configuration) { c.SendInterval = -1 }, field: "send_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfiguration()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var invErr *ConfigInvariantError
			require.True(t, errors.As(err, &invErr), "expected ConfigInvariantError, got %v", err)
			assert.Equal(t, tt.field, invErr.Field)
		})
	}
}

func TestOutputDirectoryOptionalWithoutSegregation(t *testing.T) {
	cfg := validConfiguration()
	cfg.SegregateBySender = false
	cfg.OutputDirectory = ""
	assert.NoError(t, cfg.Validate())
}

func TestEmailMappingIndex(t *testing.T) {
	cfg := validConfiguration()
	assert.Equal(t, 1, cfg.EmailMappingIndex())

	cfg.Placeholders = cfg.Placeholders[:1]
	assert.Equal(t, -1, cfg.EmailMappingIndex())
}

func TestContactRecordRawAndField(t *testing.T) {
	rec := ContactRecord{Fields: []string{"Alice", "a@x.com"}, Header: []string{"name", "email"}}
	assert.Equal(t, "Alice,a@x.com", rec.Raw())
	assert.Equal(t, "a@x.com", rec.Field(1))
	assert.Equal(t, "", rec.Field(2))
	assert.Equal(t, "", rec.Field(-1))
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	assert.ErrorIs(t, &DeliveryError{Recipient: "a@x.com", Err: base}, base)
	assert.ErrorIs(t, &PartitionIOError{Op: "append", Path: "p", Err: base}, base)
	assert.ErrorIs(t, &ChannelAuthenticationError{Channel: ChannelSMTP, Err: base}, base)
	assert.ErrorIs(t, &MalformedSourceError{Path: "c.csv", Err: base}, base)
	assert.Contains(t, (&MalformedSourceError{Path: "c.csv", Line: 3, Reason: "bad"}).Error(), "line 3")
}
