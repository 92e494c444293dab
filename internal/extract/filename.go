package extract

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"ticketflow/internal/logging"
)

// FilenameHints is the metadata recovered from the input file's name under
// the convention JOB__YYYY-MM-DD__SOURCE__TYPE[__MATERIAL[__VENDOR]][__NNN].
// Missing components are zero values, never errors.
type FilenameHints struct {
	JobCode    string
	Date       *time.Time
	Source     string
	TicketType string
	Material   string
	Vendor     string
}

var loadCountSuffix = regexp.MustCompile(`_+\d{1,4}$`)

// filenameDateFormats are the date layouts accepted in a filename component.
var filenameDateFormats = []string{
	"2006-01-02",
	"01-02-2006",
	"2006_01_02",
}

// ParseFilename extracts hints from a file path. Any name that does not
// follow the double-underscore convention yields an empty hint set.
func ParseFilename(path string) *FilenameHints {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	// Legacy page-count suffix carries no metadata.
	base = loadCountSuffix.ReplaceAllString(base, "")

	hints := &FilenameHints{}
	parts := strings.Split(base, "__")
	if len(parts) < 2 {
		logging.ExtractDebug("filename %q has no hint components", base)
		return hints
	}

	if len(parts) > 0 {
		hints.JobCode = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		if d, ok := parseFilenameDate(parts[1]); ok {
			hints.Date = &d
		}
	}
	if len(parts) > 2 {
		hints.Source = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		hints.TicketType = strings.ToUpper(strings.TrimSpace(parts[3]))
	}
	if len(parts) > 4 {
		hints.Material = strings.TrimSpace(parts[4])
	}
	if len(parts) > 5 {
		hints.Vendor = strings.TrimSpace(parts[5])
	}

	logging.ExtractDebug("filename hints for %q: job=%s date=%v source=%s type=%s material=%s vendor=%s",
		base, hints.JobCode, hints.Date, hints.Source, hints.TicketType, hints.Material, hints.Vendor)
	return hints
}

func parseFilenameDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range filenameDateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
