package app

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

var errTrailingJSON = errors.New("unexpected data after top-level JSON value")

// ParseJSON parses text as exactly one JSON value and reports its shape.
func ParseJSON(text string) domain.ParsedJSON {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return domain.ParseFailed{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.ParseFailed{Err: errTrailingJSON}
	}

	switch t := v.(type) {
	case []any:
		return domain.ParsedArray(t)
	case map[string]any:
		return domain.ParsedObject(t)
	default:
		return domain.ParsedScalar{Value: t}
	}
}
