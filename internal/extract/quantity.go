package extract

import (
	"strconv"
	"strings"
)

// Generic quantity patterns. Group 1 is the value, group 2 the unit.
var genericQuantityPatterns = MustPatterns(
	`(?i)(?:QTY|QUANTITY|NET)[:\s]+(\d{1,3}(?:\.\d{1,2})?)\s*(TONS?|CY|CUBIC\s+YARDS?|LOADS?)\b`,
	`(?i)\b(\d{1,3}(?:\.\d{1,2})?)\s*(TONS?|CY|CUBIC\s+YARDS?|LOADS?)\b`,
)

// maxQuantity is the sanity ceiling for a single load.
const maxQuantity = 50.0

// ExtractQuantity finds the load quantity and unit. When nothing plausible
// matches it falls back to one load at half confidence, so a count-based
// ticket is still billable.
func ExtractQuantity(text string, templatePatterns []Pattern) (value float64, unit string, confidence float64) {
	defer recoverExtractor("quantity")

	if v, u, prio, ok := extractQuantityWith(text, templatePatterns); ok {
		return v, u, templateConfidence(prio)
	}
	if v, u, prio, ok := extractQuantityWith(text, genericQuantityPatterns); ok {
		return v, u, templateConfidence(prio) * genericFactor
	}
	return 1.0, "LOADS", 0.5
}

func extractQuantityWith(text string, patterns []Pattern) (float64, string, int, bool) {
	for _, p := range sortedByPriority(patterns) {
		if p.Regexp == nil {
			continue
		}
		m := p.Regexp.FindStringSubmatch(text)
		if len(m) < 3 {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v <= 0 || v > maxQuantity {
			continue
		}
		return v, NormalizeUnit(m[2]), p.Priority, true
	}
	return 0, "", 0, false
}

// NormalizeUnit canonicalizes a quantity unit surface form.
func NormalizeUnit(u string) string {
	upper := strings.ToUpper(strings.Join(strings.Fields(u), " "))
	switch upper {
	case "TON", "TONS":
		return "TONS"
	case "CY", "CUBIC YARD", "CUBIC YARDS":
		return "CY"
	case "LOAD", "LOADS":
		return "LOADS"
	case "LB", "LBS":
		return "LBS"
	default:
		return upper
	}
}

func sortedByPriority(patterns []Pattern) []Pattern {
	ordered := make([]Pattern, len(patterns))
	copy(ordered, patterns)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Priority < ordered[j-1].Priority; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}
