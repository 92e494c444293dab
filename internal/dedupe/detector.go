// Package dedupe layers duplicate handling over the store: confirmed
// duplicate rows for re-scanned tickets, review-queue entries so operators
// see what was skipped, and whole-file short-circuiting by content hash.
package dedupe

import (
	"context"
	"errors"
	"time"

	"ticketflow/internal/logging"
	"ticketflow/internal/review"
	"ticketflow/internal/store"
)

// Result describes one resolved duplicate.
type Result struct {
	IsDuplicate    bool
	DuplicateID    int64 // the newly stored duplicate row
	OriginalID     int64
	OriginalDate   time.Time
	OriginalFileID string
	DaysApart      int

	// Confidence is 1.0 when both sightings name the same vendor, 0.85
	// when either vendor is unknown. Below-1.0 matches are advisory: the
	// review entry says so, but the row is still recorded as a duplicate.
	Confidence float64
}

// Detector turns store duplicate rejections into recorded duplicates plus
// review entries.
type Detector struct {
	store *store.Store
}

// NewDetector wraps a store.
func NewDetector(s *store.Store) *Detector {
	return &Detector{store: s}
}

// IsDuplicateErr reports whether err is the store's duplicate rejection and
// returns the match when it is.
func IsDuplicateErr(err error) (*store.DuplicateMatch, bool) {
	var se *store.Error
	if errors.As(err, &se) && se.Kind == store.KindDuplicateTicket && se.Duplicate != nil {
		return se.Duplicate, true
	}
	return nil, false
}

// Record stores the rejected draft as a confirmed duplicate of the match,
// writes the review entry, and returns the result. The original row is
// never modified.
func (d *Detector) Record(ctx context.Context, draft store.TicketDraft, match *store.DuplicateMatch, opts store.CreateOptions) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryDedupe, "Detector.Record")
	defer timer.Stop()

	opts.DuplicateOf = &match.OriginalID
	opts.SkipManifestCheck = true // the original already passed or was flagged
	dup, err := d.store.CreateTicket(ctx, draft, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		IsDuplicate:    true,
		DuplicateID:    dup.ID,
		OriginalID:     match.OriginalID,
		OriginalDate:   match.OriginalDate,
		OriginalFileID: match.OriginalFileID,
		DaysApart:      match.DaysApart,
		Confidence:     matchConfidence(match),
	}

	entry := &review.Entry{
		TicketID: &dup.ID,
		PageID:   review.PageID(draft.FileID, draft.FilePage),
		Reason:   review.ReasonDuplicateTicket,
		Severity: review.SeverityWarning,
		FilePath: draft.FileID,
		PageNum:  draft.FilePage,
		DetectedFields: map[string]any{
			"ticket_number": draft.TicketNumber,
			"ticket_date":   draft.TicketDate.Format("2006-01-02"),
			"original_id":   match.OriginalID,
			"original_file": match.OriginalFileID,
			"days_apart":    match.DaysApart,
			"confidence":    res.Confidence,
		},
	}
	if _, err := d.store.AddReviewEntry(ctx, entry); err != nil {
		return nil, err
	}

	logging.Dedupe("Ticket %s duplicates #%d (%d days apart, confidence %.2f)",
		draft.TicketNumber, match.OriginalID, match.DaysApart, res.Confidence)
	return res, nil
}

func matchConfidence(m *store.DuplicateMatch) float64 {
	if m.VendorMatched {
		return 1.0
	}
	return 0.85
}
