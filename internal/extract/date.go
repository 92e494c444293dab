package extract

import (
	"strings"
	"time"
)

// Generic date patterns over OCR text.
var genericDatePatterns = MustPatterns(
	`(?i)\bDATE[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`,
	`\b(\d{4}-\d{2}-\d{2})\b`,
	`\b(\d{1,2}/\d{1,2}/\d{4})\b`,
	`\b(\d{1,2}-\d{1,2}-\d{4})\b`,
	`\b(\d{1,2}/\d{1,2}/\d{2})\b`,
	`(?i)\b(\d{1,2}-(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*-\d{4})\b`,
)

// dateLayouts is the fixed list of accepted parse formats.
var dateLayouts = []string{
	"01/02/2006", // MM/DD/YYYY
	"1/2/2006",
	"01-02-2006", // MM-DD-YYYY
	"1-2-2006",
	"2006-01-02", // YYYY-MM-DD
	"01/02/06", // MM/DD/YY
	"1/2/06",
	"2-Jan-2006",    // DD-Mon-YYYY
	"02-Jan-2006",
	"2-January-2006", // DD-Month-YYYY
	"02-January-2006",
}

var dateFloor = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// staleWindow rejects tickets older than this relative to now; scanned
// backlogs beyond it need manual intake.
const staleWindow = 180 * 24 * time.Hour

// ExtractTicketDate finds the ticket date. Precedence: filename-derived date,
// vendor template patterns, then generic patterns. now anchors the validity
// window [max(2020-01-01, now-180d), now+7d].
func ExtractTicketDate(text string, templatePatterns []Pattern, hints *FilenameHints, now time.Time) (value time.Time, confidence float64, ok bool) {
	defer recoverExtractor("date")

	if hints != nil && hints.Date != nil && DateInRange(*hints.Date, now) {
		return *hints.Date, 1.0, true
	}

	if raw, prio, found := extractWithPatterns(text, templatePatterns); found {
		if d, parsed := ParseTicketDate(raw); parsed && DateInRange(d, now) {
			return d, templateConfidence(prio), true
		}
	}

	if raw, prio, found := extractWithPatterns(text, genericDatePatterns); found {
		if d, parsed := ParseTicketDate(raw); parsed && DateInRange(d, now) {
			return d, templateConfidence(prio) * genericFactor, true
		}
	}

	return time.Time{}, 0.0, false
}

// ParseTicketDate parses a raw date string against the fixed layout list.
func ParseTicketDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			// Two-digit years land in time's 20xx pivot; normalize to UTC date.
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// DateInRange reports whether d falls in the accepted ticket window.
func DateInRange(d, now time.Time) bool {
	if d.Before(dateFloor) {
		return false
	}
	if d.After(now.Add(7 * 24 * time.Hour)) {
		return false
	}
	if d.Before(now.Add(-staleWindow)) {
		return false
	}
	return true
}
