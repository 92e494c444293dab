// Package review defines the review-queue vocabulary shared by the
// validator, the duplicate detector, the page pipeline, and the store. One
// entry is written per page that did not produce a ticket (or per advisory on
// an accepted ticket); resolution metadata is filled in later by operator
// tooling.
package review

import (
	"fmt"
	"time"
)

// Severity ranks how urgently a human needs to look at an entry.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Reason identifies why a page landed in the queue.
type Reason string

const (
	ReasonMissingManifest       Reason = "MISSING_MANIFEST"
	ReasonInvalidManifestFormat Reason = "INVALID_MANIFEST_FORMAT"
	ReasonDuplicateTicket       Reason = "DUPLICATE_TICKET"
	ReasonMissingTicketNumber   Reason = "MISSING_TICKET_NUMBER"
	ReasonInvalidDate           Reason = "INVALID_DATE"
	ReasonForeignKeyError       Reason = "FOREIGN_KEY_ERROR"
	ReasonLowOCRQuality         Reason = "LOW_OCR_QUALITY"
	ReasonLowConfidence         Reason = "LOW_CONFIDENCE"
)

// Entry is one review-queue row. Entries are write-once from the pipeline;
// only the resolution fields mutate afterwards.
type Entry struct {
	ID             int64
	TicketID       *int64
	PageID         string // "<file path>#<page>"
	Reason         Reason
	Severity       Severity
	FilePath       string
	PageNum        int
	DetectedFields map[string]any
	SuggestedFixes map[string]any
	Resolved       bool
	ResolvedBy     string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
}

// PageID builds the canonical page identifier for a file and 1-based page.
func PageID(filePath string, pageNum int) string {
	return fmt.Sprintf("%s#%d", filePath, pageNum)
}
