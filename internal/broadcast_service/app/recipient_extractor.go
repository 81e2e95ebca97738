package app

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

var recipientDelimiters = regexp.MustCompile(`[,;\n]+`)

// ExtractRecipients flattens raw recipient input into trimmed, non-empty
// tokens in discovery order.
func ExtractRecipients(raw domain.RawInput) []string {
	tokens := make([]string, 0)
	return appendTokens(tokens, raw)
}

func appendTokens(dst []string, raw domain.RawInput) []string {
	switch v := raw.(type) {
	case domain.Sequence:
		for _, item := range v {
			dst = appendTokens(dst, item)
		}
	case domain.Text:
		dst = append(dst, splitText(string(v))...)
	}
	return dst
}

func splitText(text string) []string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}

	if arr, ok := ParseJSON(cleaned).(domain.ParsedArray); ok {
		tokens := make([]string, 0, len(arr))
		for _, item := range arr {
			if s := strings.TrimSpace(scalarString(item)); s != "" {
				tokens = append(tokens, s)
			}
		}
		return tokens
	}

	pieces := recipientDelimiters.Split(cleaned, -1)
	tokens := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if s := strings.TrimSpace(p); s != "" {
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// scalarString renders a decoded JSON array element as text. Null, false
// and zero are dropped as empty; numbers print the way a browser would, so
// 2.547e11 becomes 254700000000. Nested arrays and objects are re-encoded.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return numberString(t)
	case bool:
		if !t {
			return ""
		}
		return "true"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func numberString(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if f == 0 {
		return ""
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		// 1e+21, 1e-7: no zero padding in the exponent.
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
