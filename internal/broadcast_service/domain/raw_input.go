package domain

// RawInput is recipient input as it arrives from a form or an API caller.
// It is either Text or a Sequence of further RawInput values; a nil RawInput
// means the source was absent.
type RawInput interface {
	rawInput()
}

// Text is a single free-form recipient block: one number, a delimited list,
// or a JSON-encoded array.
type Text string

// Sequence is an ordered list of inputs. Nesting depth is not limited.
type Sequence []RawInput

func (Text) rawInput()     {}
func (Sequence) rawInput() {}

// Texts wraps plain strings into a Sequence.
func Texts(values ...string) Sequence {
	seq := make(Sequence, 0, len(values))
	for _, v := range values {
		seq = append(seq, Text(v))
	}
	return seq
}
