package mailing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

func TestResolvePlaceholders(t *testing.T) {
	header := []string{"First Name", "Email", "Company", "Email"}
	mappings := []domain.PlaceholderMapping{
		{Name: "name", ColumnTitle: "First Name"},
		{Name: "email", ColumnTitle: "Email"},
		{Name: "company", ColumnTitle: "company"},
		{Name: "city", ColumnTitle: "City"},
	}

	resolved, err := ResolvePlaceholders(header, mappings)
	require.NoError(t, err)

	// First match wins for the duplicated Email column; title matching is
	// case sensitive so "company" does not find "Company".
	assert.Equal(t, domain.ResolvedIndex{0, 1, domain.Unresolved, domain.Unresolved}, resolved)
	assert.Equal(t, []string{"company", "city"}, UnresolvedNames(resolved, mappings))
}

func TestResolvePlaceholdersMissingEmail(t *testing.T) {
	mappings := []domain.PlaceholderMapping{
		{Name: "name", ColumnTitle: "name"},
		{Name: "email", ColumnTitle: "E-mail"},
	}

	resolved, err := ResolvePlaceholders([]string{"name", "email"}, mappings)
	assert.Nil(t, resolved)

	var missing *domain.MissingRequiredPlaceholderError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "E-mail", missing.ColumnTitle)
	assert.Equal(t, "email", missing.Placeholder)
}

func TestResolvePlaceholdersEmptyHeader(t *testing.T) {
	_, err := ResolvePlaceholders(nil, []domain.PlaceholderMapping{{Name: "email", ColumnTitle: "email"}})
	var missing *domain.MissingRequiredPlaceholderError
	assert.True(t, errors.As(err, &missing))
}
