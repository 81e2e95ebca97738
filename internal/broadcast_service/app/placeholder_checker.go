package app

import (
	"regexp"
	"strings"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// TemplatePlaceholders returns the distinct placeholder names in template,
// in order of first appearance.
func TemplatePlaceholders(template string) []string {
	names := newOrderedSet()
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		names.add(m[1])
	}
	return names.items
}

// MissingPlaceholders returns the placeholders of template whose key is
// absent from values or maps to nil. Empty strings and zero values count as
// supplied.
func MissingPlaceholders(template string, values map[string]any) []string {
	return CheckPlaceholders(template, values).MissingKeys
}

// CheckPlaceholders reports every placeholder of template and those lacking a value.
func CheckPlaceholders(template string, values map[string]any) domain.PlaceholderCheck {
	names := TemplatePlaceholders(template)
	missing := make([]string, 0)
	for _, name := range names {
		if v, ok := values[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return domain.PlaceholderCheck{Placeholders: names, MissingKeys: missing}
}

// LoadTemplateValues parses the raw template values configuration. Blank
// input and JSON null yield an empty map. Anything other than a JSON object
// is a *domain.TemplateValuesError.
func LoadTemplateValues(raw string) (map[string]any, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return map[string]any{}, nil
	}

	switch parsed := ParseJSON(cleaned).(type) {
	case domain.ParsedObject:
		return map[string]any(parsed), nil
	case domain.ParsedScalar:
		if parsed.Value == nil {
			return map[string]any{}, nil
		}
		return nil, &domain.TemplateValuesError{Kind: domain.ErrTemplateValuesNotObject}
	case domain.ParsedArray:
		return nil, &domain.TemplateValuesError{Kind: domain.ErrTemplateValuesNotObject}
	case domain.ParseFailed:
		return nil, &domain.TemplateValuesError{Kind: domain.ErrTemplateValuesMalformed, Cause: parsed.Err}
	default:
		return nil, &domain.TemplateValuesError{Kind: domain.ErrTemplateValuesMalformed}
	}
}

// CheckTemplate loads rawValues and checks template against them. A
// configuration error short-circuits the placeholder check.
func CheckTemplate(template, rawValues string) (domain.PlaceholderCheck, error) {
	values, err := LoadTemplateValues(rawValues)
	if err != nil {
		return domain.PlaceholderCheck{}, err
	}
	return CheckPlaceholders(template, values), nil
}
