package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mtechsms/golang_services/internal/broadcast_service/app"
	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

// ValidateRecipientsRequest is the body of POST /recipients/validate.
// Recipients may be a string, or an array of strings and nested arrays.
// When Form is set, its recipient sources come first and Recipients is
// treated as extra free text after them.
type ValidateRecipientsRequest struct {
	Recipients json.RawMessage       `json:"recipients,omitempty"`
	Form       *domain.RecipientForm `json:"form,omitempty"`
}

// ValidateRecipientsResponse is returned by POST /recipients/validate.
type ValidateRecipientsResponse struct {
	Validation domain.ValidationResult `json:"validation"`
	Summary    app.RecipientSummary    `json:"summary"`
}

// TemplateCheckRequest is the body of POST /templates/check.
// TemplateValues is the raw JSON object text exactly as configured.
type TemplateCheckRequest struct {
	Template       string `json:"template" validate:"required"`
	TemplateValues string `json:"template_values"`
}

// TemplateCheckResponse is returned by POST /templates/check.
type TemplateCheckResponse struct {
	Placeholders        []string `json:"placeholders"`
	MissingPlaceholders []string `json:"missing_placeholders"`
}

// DispatchBroadcastRequest is the body of POST /broadcasts/dispatch.
type DispatchBroadcastRequest struct {
	BroadcastID      string               `json:"broadcast_id" validate:"omitempty,max=140"`
	Message          string               `json:"message" validate:"max=1600"`
	Template         string               `json:"template" validate:"max=1600"`
	TemplateValues   string               `json:"template_values"`
	MessageType      string               `json:"message_type" validate:"omitempty,oneof=Transactional Promotional"`
	DLRURL           string               `json:"dlr_url" validate:"omitempty,url"`
	MessageID        string               `json:"message_id" validate:"omitempty,max=64"`
	Form             domain.RecipientForm `json:"form"`
	RecipientNumbers json.RawMessage      `json:"recipient_numbers,omitempty"`
}

// DispatchBroadcastResponse is returned when a job was handed to the dispatcher.
type DispatchBroadcastResponse struct {
	JobID       string                  `json:"job_id"`
	BroadcastID string                  `json:"broadcast_id"`
	MessageID   string                  `json:"message_id"`
	Recipients  []string                `json:"recipients"`
	Validation  domain.ValidationResult `json:"validation"`
	Summary     app.RecipientSummary    `json:"summary"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error      string                   `json:"error"`
	Code       string                   `json:"code,omitempty"`
	Missing    []string                 `json:"missing_placeholders,omitempty"`
	Validation *domain.ValidationResult `json:"validation,omitempty"`
}

var errUnsupportedRecipientValue = errors.New("recipients must be a string or an array")

// decodeRawInput converts a JSON recipients value into RawInput. Numbers
// are accepted as text; objects and booleans are rejected.
func decodeRawInput(data json.RawMessage) (domain.RawInput, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding recipients: %w", err)
	}
	return toRawInput(v)
}

func toRawInput(v any) (domain.RawInput, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return domain.Text(t), nil
	case json.Number:
		return domain.Text(t.String()), nil
	case []any:
		seq := make(domain.Sequence, 0, len(t))
		for _, item := range t {
			raw, err := toRawInput(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, raw)
		}
		return seq, nil
	default:
		return nil, errUnsupportedRecipientValue
	}
}
