package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

const (
	DefaultSummarySampleSize = 5
	unknownRegion            = "ZZ"
)

// BannerColor is the indicator shown next to a recipient summary.
type BannerColor string

const (
	BannerBlue   BannerColor = "blue"
	BannerGreen  BannerColor = "green"
	BannerOrange BannerColor = "orange"
	BannerRed    BannerColor = "red"
)

// RegionCount is the number of valid recipients attributed to one region.
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// RecipientSummary is the human-facing digest of a ValidationResult.
type RecipientSummary struct {
	Title           string        `json:"title"`
	EnteredCount    int           `json:"entered_count"`
	FinalCount      int           `json:"final_count"`
	InvalidCount    int           `json:"invalid_count"`
	DuplicateCount  int           `json:"duplicate_count"`
	InvalidSample   string        `json:"invalid_sample,omitempty"`
	DuplicateSample string        `json:"duplicate_sample,omitempty"`
	Banner          string        `json:"banner"`
	BannerColor     BannerColor   `json:"banner_color"`
	Regions         []RegionCount `json:"regions"`
}

// SummaryOptions tunes Summarize. Zero SampleSize means DefaultSummarySampleSize.
type SummaryOptions struct {
	Title      string
	SampleSize int
	Mode       domain.RecipientMode
}

// Summarize renders counts, short samples of dropped entries and a banner.
func Summarize(result domain.ValidationResult, opts SummaryOptions) RecipientSummary {
	title := opts.Title
	if title == "" {
		title = "Recipient Validation"
	}
	sample := opts.SampleSize
	if sample <= 0 {
		sample = DefaultSummarySampleSize
	}

	s := RecipientSummary{
		Title:           title,
		EnteredCount:    result.EnteredCount,
		FinalCount:      result.FinalCount,
		InvalidCount:    len(result.InvalidEntries),
		DuplicateCount:  len(result.DuplicateEntries),
		InvalidSample:   joinSample(result.InvalidEntries, sample),
		DuplicateSample: joinSample(result.DuplicateEntries, sample),
		Regions:         RegionBreakdown(result.ValidNumbers),
	}
	s.Banner, s.BannerColor = Banner(result, opts.Mode)
	return s
}

// Lines returns the summary as display lines, samples last.
func (s RecipientSummary) Lines() []string {
	lines := []string{
		s.Title,
		fmt.Sprintf("Entered: %d", s.EnteredCount),
		fmt.Sprintf("Valid unique recipients: %d", s.FinalCount),
		fmt.Sprintf("Duplicates removed: %d", s.DuplicateCount),
		fmt.Sprintf("Invalid entries: %d", s.InvalidCount),
	}
	if s.InvalidSample != "" {
		lines = append(lines, "Invalid sample: "+s.InvalidSample)
	}
	if s.DuplicateSample != "" {
		lines = append(lines, "Duplicate sample: "+s.DuplicateSample)
	}
	return lines
}

// Banner picks the one-line status text and its colour.
func Banner(result domain.ValidationResult, mode domain.RecipientMode) (string, BannerColor) {
	if result.EnteredCount == 0 {
		return IntroMessage(mode), BannerBlue
	}

	text := fmt.Sprintf("Recipients ready: %d/%d | Invalid: %d | Duplicates removed: %d",
		result.FinalCount, result.EnteredCount, len(result.InvalidEntries), len(result.DuplicateEntries))
	switch {
	case result.FinalCount == 0:
		return text, BannerRed
	case result.HasIssues():
		return text, BannerOrange
	default:
		return text, BannerGreen
	}
}

// IntroMessage is shown while a form has no recipient input yet.
func IntroMessage(mode domain.RecipientMode) string {
	if mode == domain.RecipientModeMultiple {
		return "Select one or more contacts and/or add mobile numbers, then click Send SMS."
	}
	return "Select a contact and/or add mobile numbers, then click Send SMS."
}

// PromptMessage asks for recipients when a send is attempted without any.
func PromptMessage(mode domain.RecipientMode) string {
	if mode == domain.RecipientModeMultiple {
		return "Select one or more contacts or enter at least one mobile number."
	}
	return "Select a contact or enter at least one mobile number."
}

// RegionBreakdown attributes each number to a region by reading it as an
// international number. Numbers with no recognizable country code count
// under "ZZ". Informational only; it never affects validity.
func RegionBreakdown(numbers []string) []RegionCount {
	counts := make(map[string]int)
	for _, n := range numbers {
		counts[regionOf(n)]++
	}

	regions := make([]RegionCount, 0, len(counts))
	for region, count := range counts {
		regions = append(regions, RegionCount{Region: region, Count: count})
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Count != regions[j].Count {
			return regions[i].Count > regions[j].Count
		}
		return regions[i].Region < regions[j].Region
	})
	return regions
}

func regionOf(number string) string {
	num, err := phonenumbers.Parse("+"+number, "")
	if err != nil {
		return unknownRegion
	}
	region := phonenumbers.GetRegionCodeForNumber(num)
	if region == "" {
		return unknownRegion
	}
	return region
}

func joinSample(values []string, n int) string {
	if len(values) > n {
		values = values[:n]
	}
	return strings.Join(values, ", ")
}
