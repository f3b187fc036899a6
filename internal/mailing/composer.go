package mailing

import (
	"fmt"
	"strings"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// Composer substitutes contact values into templates.
type Composer struct {
	liquid *TemplateService
}

// NewComposer creates a composer with its own Liquid engine.
func NewComposer() *Composer {
	return &Composer{liquid: NewTemplateService()}
}

// Compose builds the dispatch attempt for one contact.
//
// Plain templates get literal substitution: every "{name}" of a resolved
// placeholder is replaced by the contact's value, all occurrences, no
// escaping, no second pass. Unresolved placeholders keep their token.
// Templates whose body source ends in ".liquid" are rendered with Liquid
// using the resolved values as bindings. Neither the contact nor the
// template is modified.
func (c *Composer) Compose(
	contact domain.ContactRecord,
	resolved domain.ResolvedIndex,
	mappings []domain.PlaceholderMapping,
	tmpl domain.Template,
	templateIndex int,
	sender string,
	senderIndex int,
) (*domain.DispatchAttempt, error) {
	recipient, err := recipientOf(contact, resolved, mappings)
	if err != nil {
		return nil, err
	}

	attempt := &domain.DispatchAttempt{
		Contact:       contact,
		TemplateIndex: templateIndex,
		SenderIndex:   senderIndex,
		Sender:        sender,
		Recipient:     recipient,
		Subject:       Substitute(tmpl.Subject, contact, resolved, mappings),
	}

	if IsLiquidSource(tmpl.BodySource) {
		body, err := c.liquid.Render(tmpl.BodySource, tmpl.Body, Bindings(contact, resolved, mappings))
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", tmpl.BodySource, err)
		}
		attempt.Body = body
		return attempt, nil
	}

	attempt.Body = Substitute(tmpl.Body, contact, resolved, mappings)
	return attempt, nil
}

// Substitute replaces every "{name}" token of each resolved placeholder.
func Substitute(text string, contact domain.ContactRecord, resolved domain.ResolvedIndex, mappings []domain.PlaceholderMapping) string {
	if !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, 2*len(mappings))
	for i, m := range mappings {
		if !resolved.Resolved(i) {
			continue
		}
		pairs = append(pairs, "{"+m.Name+"}", contact.Field(resolved[i]))
	}
	if len(pairs) == 0 {
		return text
	}
	// strings.Replacer scans once, so values that look like tokens are not
	// substituted again.
	return strings.NewReplacer(pairs...).Replace(text)
}

// Bindings exposes resolved placeholder values to Liquid templates.
func Bindings(contact domain.ContactRecord, resolved domain.ResolvedIndex, mappings []domain.PlaceholderMapping) map[string]interface{} {
	b := make(map[string]interface{}, len(mappings))
	for i, m := range mappings {
		if resolved.Resolved(i) {
			b[m.Name] = contact.Field(resolved[i])
		}
	}
	return b
}

func recipientOf(contact domain.ContactRecord, resolved domain.ResolvedIndex, mappings []domain.PlaceholderMapping) (string, error) {
	for i, m := range mappings {
		if m.Name != domain.EmailPlaceholder {
			continue
		}
		if !resolved.Resolved(i) {
			return "", &domain.MissingRequiredPlaceholderError{Placeholder: m.Name, ColumnTitle: m.ColumnTitle}
		}
		return contact.Field(resolved[i]), nil
	}
	return "", &domain.MissingRequiredPlaceholderError{Placeholder: domain.EmailPlaceholder}
}
