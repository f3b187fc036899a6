package domain

import (
	"fmt"
	"time"
)

// EmailPlaceholder is the placeholder name that locates the recipient column.
const EmailPlaceholder = "email"

// Template is one message template: a subject and the body it was read from.
type Template struct {
	Subject    string `json:"subject" yaml:"subject"`
	BodySource string `json:"body_source" yaml:"body_source"`
	Body       string `json:"-" yaml:"-"`
}

// PlaceholderMapping binds a {name} token to a column title of the contact file.
type PlaceholderMapping struct {
	Name        string `json:"name" yaml:"name"`
	ColumnTitle string `json:"column_title" yaml:"column_title"`
}

// Configuration is the resolved, read-only input of one dispatch run.
// Nothing in the pipeline mutates it after construction.
type Configuration struct {
	SenderIdentities    []string             `json:"sender_identities"`
	Templates           []Template           `json:"templates"`
	Placeholders        []PlaceholderMapping `json:"placeholders"`
	SegregateByTemplate bool                 `json:"segregate_by_template"`
	SegregateBySender   bool                 `json:"segregate_by_sender"`
	OutputDirectory     string               `json:"output_directory"`

	// SendInterval is the fixed pause after every send. Zero disables it.
	SendInterval time.Duration `json:"send_interval"`
}

// Validate checks the invariants a run depends on.
func (c *Configuration) Validate() error {
	if len(c.SenderIdentities) == 0 {
		return &ConfigInvariantError{Field: "sender_identities", Reason: "at least one sender identity is required"}
	}
	for i, s := range c.SenderIdentities {
		if s == "" {
			return &ConfigInvariantError{Field: "sender_identities", Reason: fmt.Sprintf("sender identity %d is empty", i)}
		}
	}
	if len(c.Templates) == 0 {
		return &ConfigInvariantError{Field: "templates", Reason: "at least one template is required"}
	}
	for i, t := range c.Templates {
		if t.BodySource == "" {
			return &ConfigInvariantError{Field: "templates", Reason: fmt.Sprintf("template %d has no body source", i)}
		}
	}
	if len(c.Placeholders) == 0 {
		return &ConfigInvariantError{Field: "placeholders", Reason: "placeholder mapping is empty"}
	}

	seen := make(map[string]bool, len(c.Placeholders))
	emailCount := 0
	for _, p := range c.Placeholders {
		if p.Name == "" {
			return &ConfigInvariantError{Field: "placeholders", Reason: "placeholder with empty name"}
		}
		if seen[p.Name] {
			return &ConfigInvariantError{Field: "placeholders", Reason: fmt.Sprintf("duplicate placeholder %q", p.Name)}
		}
		seen[p.Name] = true
		if p.Name == EmailPlaceholder {
			emailCount++
		}
	}
	if emailCount != 1 {
		return &ConfigInvariantError{Field: "placeholders", Reason: `exactly one "email" placeholder is required`}
	}
	if (c.SegregateByTemplate || c.SegregateBySender) && c.OutputDirectory == "" {
		return &ConfigInvariantError{Field: "output_directory", Reason: "output directory is required when segregating"}
	}
	if c.SendInterval < 0 {
		return &ConfigInvariantError{Field: "send_interval", Reason: "must not be negative"}
	}
	return nil
}

// EmailMappingIndex returns the position of the "email" mapping, or -1.
func (c *Configuration) EmailMappingIndex() int {
	for i, p := range c.Placeholders {
		if p.Name == EmailPlaceholder {
			return i
		}
	}
	return -1
}
