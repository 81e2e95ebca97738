package app

import (
	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

const (
	minMSISDNDigits = 8
	maxMSISDNDigits = 15
)

// NormalizeMSISDN reduces a token to its digits. Separators, letters and any
// '+' (leading international prefix or stray) are dropped. ok is false when
// the remaining digits are not 8 to 15 long.
func NormalizeMSISDN(token string) (normalized string, ok bool) {
	digits := make([]byte, 0, len(token))
	for i := 0; i < len(token); i++ {
		c := token[i]
		if c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) < minMSISDNDigits || len(digits) > maxMSISDNDigits {
		return "", false
	}
	return string(digits), true
}

// orderedSet keeps first-insertion order with constant-time membership.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: make([]string, 0)}
}

func (s *orderedSet) has(v string) bool {
	_, ok := s.seen[v]
	return ok
}

// add inserts v and reports whether it was new.
func (s *orderedSet) add(v string) bool {
	if s.has(v) {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// ValidateRecipients classifies every token as valid, invalid or duplicate.
// Invalid entries keep the original token; duplicates are reported by their
// normalized number. Safe for concurrent use; it holds no shared state.
func ValidateRecipients(tokens []string) domain.ValidationResult {
	valid := newOrderedSet()
	invalid := newOrderedSet()
	duplicates := newOrderedSet()

	for _, token := range tokens {
		n, ok := NormalizeMSISDN(token)
		switch {
		case !ok:
			invalid.add(token)
		case valid.has(n):
			duplicates.add(n)
		default:
			valid.add(n)
		}
	}

	return domain.ValidationResult{
		EnteredCount:     len(tokens),
		FinalCount:       len(valid.items),
		ValidNumbers:     valid.items,
		InvalidEntries:   invalid.items,
		DuplicateEntries: duplicates.items,
	}
}

// ValidateRawRecipients extracts and validates in one step.
func ValidateRawRecipients(raw domain.RawInput) domain.ValidationResult {
	return ValidateRecipients(ExtractRecipients(raw))
}
