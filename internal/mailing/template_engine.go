// Package mailing turns a contact record and a template into a composed
// message: placeholder resolution, template/sender selection and
// substitution, plus Liquid rendering for templates that opt into it.
package mailing

import (
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// LiquidExtension marks a template body source that is rendered with Liquid
// instead of plain {name} substitution.
const LiquidExtension = ".liquid"

// IsLiquidSource reports whether a body source opts into Liquid rendering.
func IsLiquidSource(bodySource string) bool {
	return strings.EqualFold(filepath.Ext(bodySource), LiquidExtension)
}

// TemplateService handles Liquid template rendering with caching
type TemplateService struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplateService creates a new template service with custom filters
func NewTemplateService() *TemplateService {
	ts := &TemplateService{
		engine: liquid.NewEngine(),
	}
	ts.registerCustomFilters()
	return ts
}

// registerCustomFilters adds the string filters contact data needs.
func (ts *TemplateService) registerCustomFilters() {
	// {{ name | default: "Friend" }}
	ts.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ name | capitalize }}
	ts.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	})

	// {{ company | truncate: 30 }}
	ts.engine.RegisterFilter("truncate", func(s string, length int) string {
		if len(s) <= length {
			return s
		}
		if length <= 3 {
			return s[:length]
		}
		return s[:length-3] + "..."
	})

	ts.engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})

	ts.engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
}

// Parse checks that a template compiles.
func (ts *TemplateService) Parse(templateStr string) error {
	if _, err := ts.engine.ParseString(templateStr); err != nil {
		return err
	}
	return nil
}

// Render processes a template with the given bindings. Parsed templates are
// cached under cacheKey when it is not empty. Unknown variables render empty.
func (ts *TemplateService) Render(cacheKey string, templateStr string, bindings map[string]interface{}) (string, error) {
	if cacheKey != "" {
		if cached, ok := ts.cache.Load(cacheKey); ok {
			return renderTemplate(cached.(*liquid.Template), bindings)
		}
	}

	tpl, err := ts.engine.ParseString(templateStr)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	if cacheKey != "" {
		ts.cache.Store(cacheKey, tpl)
	}
	return renderTemplate(tpl, bindings)
}

func renderTemplate(tpl *liquid.Template, bindings map[string]interface{}) (string, error) {
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// ClearCache removes all cached templates
func (ts *TemplateService) ClearCache() {
	ts.cache.Range(func(key, _ interface{}) bool {
		ts.cache.Delete(key)
		return true
	})
}
