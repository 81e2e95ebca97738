package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateValuesMalformed indicates template values that are not valid JSON.
	ErrTemplateValuesMalformed = errors.New("template values must be valid JSON")
	// ErrTemplateValuesNotObject indicates template values that parse to an array or scalar.
	ErrTemplateValuesNotObject = errors.New("template values must be a JSON object")
	// ErrMissingPlaceholders indicates a template placeholder without a supplied value.
	ErrMissingPlaceholders = errors.New("missing template values")
	// ErrEmptyMessage indicates there is no message text to send.
	ErrEmptyMessage = errors.New("message is required")
	// ErrNoRecipients indicates that no recipient input was supplied at all.
	ErrNoRecipients = errors.New("no recipients supplied")
	// ErrNoValidRecipients indicates recipients were supplied but none survived validation.
	ErrNoValidRecipients = errors.New("no valid recipients found")
	// ErrContactNotFound indicates a contact lookup with no matching record.
	ErrContactNotFound = errors.New("contact not found")
	// ErrNoFailedRecipients indicates a resend request for a broadcast with no failed recipients.
	ErrNoFailedRecipients = errors.New("no failed recipients found")
	// ErrBroadcastNotFound indicates a status update for an unknown broadcast.
	ErrBroadcastNotFound = errors.New("broadcast not found")
)

// ErrUnrenderedTemplate is returned when only a template with placeholders
// is supplied. Placeholders are checked here but never filled in, so the
// caller must send the rendered text as the message.
var ErrUnrenderedTemplate = fmt.Errorf("%w: template placeholders are not filled in by this service, send the rendered text as the message", ErrEmptyMessage)

// TemplateValuesError is the configuration error raised when the raw
// template values cannot be used. Unwrap yields ErrTemplateValuesMalformed
// or ErrTemplateValuesNotObject.
type TemplateValuesError struct {
	Kind  error
	Cause error
}

func (e *TemplateValuesError) Error() string {
	if e.Cause != nil {
		return e.Kind.Error() + ": " + e.Cause.Error()
	}
	return e.Kind.Error()
}

func (e *TemplateValuesError) Unwrap() error { return e.Kind }

// MissingPlaceholdersError names the placeholders a template still needs.
type MissingPlaceholdersError struct {
	Keys []string
}

func (e *MissingPlaceholdersError) Error() string {
	return ErrMissingPlaceholders.Error() + " for: " + strings.Join(e.Keys, ", ")
}

func (e *MissingPlaceholdersError) Unwrap() error { return ErrMissingPlaceholders }
