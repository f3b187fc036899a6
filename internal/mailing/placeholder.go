package mailing

import "github.com/ignite/mail-dispatcher/internal/domain"

// ResolvePlaceholders maps every placeholder to the column of its title.
// Matching is exact and case sensitive; the first matching column wins.
// Only the "email" placeholder must resolve; every other miss is left as
// domain.Unresolved and its token stays literal in composed bodies.
func ResolvePlaceholders(header []string, mappings []domain.PlaceholderMapping) (domain.ResolvedIndex, error) {
	columns := make(map[string]int, len(header))
	for i, title := range header {
		if _, dup := columns[title]; !dup {
			columns[title] = i
		}
	}

	resolved := make(domain.ResolvedIndex, len(mappings))
	for i, m := range mappings {
		col, ok := columns[m.ColumnTitle]
		if !ok {
			if m.Name == domain.EmailPlaceholder {
				return nil, &domain.MissingRequiredPlaceholderError{
					Placeholder: m.Name,
					ColumnTitle: m.ColumnTitle,
				}
			}
			resolved[i] = domain.Unresolved
			continue
		}
		resolved[i] = col
	}
	return resolved, nil
}

// UnresolvedNames lists the placeholders that did not resolve, for reporting.
func UnresolvedNames(resolved domain.ResolvedIndex, mappings []domain.PlaceholderMapping) []string {
	var names []string
	for i, m := range mappings {
		if !resolved.Resolved(i) {
			names = append(names, m.Name)
		}
	}
	return names
}
