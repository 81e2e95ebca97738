package app

import (
	"strings"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

// BuildMessage returns the text to send. When template is set, its
// placeholders must all be covered by rawValues; the caller's message is
// still what gets sent, falling back to the template text only when the
// template has no placeholders.
func BuildMessage(message, template, rawValues string) (string, error) {
	text := strings.TrimSpace(message)

	if tpl := strings.TrimSpace(template); tpl != "" {
		check, err := CheckTemplate(tpl, rawValues)
		if err != nil {
			return "", err
		}
		if !check.Complete() {
			return "", &domain.MissingPlaceholdersError{Keys: check.MissingKeys}
		}
		if text == "" {
			if len(check.Placeholders) > 0 {
				return "", domain.ErrUnrenderedTemplate
			}
			text = tpl
		}
	}

	if text == "" {
		return "", domain.ErrEmptyMessage
	}
	return text, nil
}
