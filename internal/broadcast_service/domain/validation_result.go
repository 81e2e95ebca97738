package domain

// ValidationResult partitions a token sequence into unique valid numbers,
// invalid entries and duplicates. Every token lands in exactly one bucket;
// InvalidEntries and DuplicateEntries never repeat a value.
type ValidationResult struct {
	EnteredCount     int      `json:"entered_count"`
	FinalCount       int      `json:"final_count"`
	ValidNumbers     []string `json:"valid_numbers"`
	InvalidEntries   []string `json:"invalid_entries"`
	DuplicateEntries []string `json:"duplicate_entries"`
}

// HasIssues reports whether any entry was dropped as invalid or duplicate.
func (r ValidationResult) HasIssues() bool {
	return len(r.InvalidEntries) > 0 || len(r.DuplicateEntries) > 0
}

// PlaceholderCheck lists template placeholders that have no supplied value,
// in first-appearance order.
type PlaceholderCheck struct {
	Placeholders []string `json:"placeholders"`
	MissingKeys  []string `json:"missing_keys"`
}

// Complete reports whether every placeholder has a value.
func (c PlaceholderCheck) Complete() bool {
	return len(c.MissingKeys) == 0
}
