// Package extract pulls the business fields off an OCR'd ticket page:
// ticket number, date, quantity and unit, manifest number, truck number.
// Each extractor returns a value plus a confidence in [0,1] and never
// panics out to the caller; an unexpected fault yields ("", 0.0).
//
// Confidence policy: a direct filename hint scores 1.0; a vendor-template
// pattern of priority p scores max(0.5, 1.0-0.1*(p-1)); a generic fallback
// pattern scores the template formula times 0.8.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"ticketflow/internal/logging"
)

// Pattern is one prioritized capture pattern. Lower priority runs first.
// The regexp must have at least one capture group; group 1 is the value.
type Pattern struct {
	Regexp   *regexp.Regexp
	Priority int
}

// ValidationRules constrains an extracted value before it is accepted.
type ValidationRules struct {
	Pattern         *regexp.Regexp
	MinLength       int
	MaxLength       int
	ExcludePatterns []*regexp.Regexp
}

// genericFactor discounts generic fallback patterns relative to
// vendor-template patterns of the same priority.
const genericFactor = 0.8

// templateConfidence maps a pattern priority to its confidence.
func templateConfidence(priority int) float64 {
	c := 1.0 - 0.1*float64(priority-1)
	if c < 0.5 {
		c = 0.5
	}
	return c
}

// extractWithPatterns iterates patterns ascending by priority and returns the
// first non-empty capture along with the matched pattern's priority.
func extractWithPatterns(text string, patterns []Pattern) (string, int, bool) {
	if len(patterns) == 0 || text == "" {
		return "", 0, false
	}

	ordered := make([]Pattern, len(patterns))
	copy(ordered, patterns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, p := range ordered {
		if p.Regexp == nil {
			continue
		}
		m := p.Regexp.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := m[0]
		if len(m) > 1 {
			value = m[1]
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value, p.Priority, true
		}
	}
	return "", 0, false
}

// applyValidation checks a value against the rules.
func applyValidation(value string, rules ValidationRules) bool {
	if rules.MinLength > 0 && len(value) < rules.MinLength {
		return false
	}
	if rules.MaxLength > 0 && len(value) > rules.MaxLength {
		return false
	}
	if rules.Pattern != nil && !rules.Pattern.MatchString(value) {
		return false
	}
	for _, ex := range rules.ExcludePatterns {
		if ex.MatchString(value) {
			return false
		}
	}
	return true
}

// recoverExtractor converts an extractor panic into a logged zero result.
func recoverExtractor(field string) {
	if r := recover(); r != nil {
		logging.Get(logging.CategoryExtract).Error("%s extractor recovered from panic: %v", field, r)
	}
}

// MustPatterns compiles expressions into patterns with priorities assigned in
// order, starting at 1. Intended for static tables; panics on a bad pattern.
func MustPatterns(exprs ...string) []Pattern {
	out := make([]Pattern, 0, len(exprs))
	for i, e := range exprs {
		out = append(out, Pattern{Regexp: regexp.MustCompile(e), Priority: i + 1})
	}
	return out
}
