package extract

import "regexp"

// Generic ticket number patterns, in priority order: WM-prefixed eight digit
// numbers, bare ten digit numbers, then seven to nine digit numbers.
var genericTicketPatterns = MustPatterns(
	`\b(WM-\d{8})\b`,
	`\b(\d{10})\b`,
	`\b(\d{7,9})\b`,
)

// Eight-digit values opening with a plausible year are dates the OCR read
// where a ticket number should be, not ticket numbers.
var ticketNumberRules = ValidationRules{
	MinLength:       6,
	MaxLength:       20,
	ExcludePatterns: []*regexp.Regexp{regexp.MustCompile(`^20\d{6}$`)},
}

// ExtractTicketNumber finds the vendor-issued ticket number. Vendor template
// patterns take precedence over the generic ones.
func ExtractTicketNumber(text string, templatePatterns []Pattern) (value string, confidence float64) {
	defer recoverExtractor("ticket_number")

	if v, prio, ok := extractWithPatterns(text, templatePatterns); ok && applyValidation(v, ticketNumberRules) {
		return v, templateConfidence(prio)
	}

	if v, prio, ok := extractWithPatterns(text, genericTicketPatterns); ok {
		if applyValidation(v, ticketNumberRules) {
			return v, templateConfidence(prio) * genericFactor
		}
		// The first generic hit was rejected; retry against the text with
		// that token removed so a real ticket number elsewhere still wins.
		stripped := regexp.MustCompile(regexp.QuoteMeta(v)).ReplaceAllString(text, "")
		if v2, prio2, ok2 := extractWithPatterns(stripped, genericTicketPatterns); ok2 && applyValidation(v2, ticketNumberRules) {
			return v2, templateConfidence(prio2) * genericFactor
		}
	}

	return "", 0.0
}
