package domain

// ParsedJSON is the outcome of parsing free-form text as JSON. Callers
// switch on the concrete type and accept only the shape they need.
type ParsedJSON interface {
	parsedJSON()
}

// ParsedArray holds the elements of a top-level JSON array. Numbers are kept
// as json.Number so their textual form survives.
type ParsedArray []any

// ParsedObject holds the members of a top-level JSON object.
type ParsedObject map[string]any

// ParsedScalar holds a top-level string, number, boolean or null.
type ParsedScalar struct {
	Value any
}

// ParseFailed is returned for text that is not a single well-formed JSON value.
type ParseFailed struct {
	Err error
}

func (ParsedArray) parsedJSON()  {}
func (ParsedObject) parsedJSON() {}
func (ParsedScalar) parsedJSON() {}
func (ParseFailed) parsedJSON()  {}
