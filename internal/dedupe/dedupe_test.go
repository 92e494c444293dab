package dedupe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/refdata"
	"ticketflow/internal/review"
	"ticketflow/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tickets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background(), refdata.DefaultSeed()))
	return s
}

func draft(n, vendor string, date time.Time) store.TicketDraft {
	return store.TicketDraft{
		TicketNumber:   n,
		TicketDate:     date,
		JobCode:        "24-105",
		MaterialName:   "NON_CONTAMINATED",
		TicketTypeName: "EXPORT",
		VendorName:     vendor,
		Quantity:       1,
		QuantityUnit:   "LOADS",
		FileID:         "scans/batch.pdf",
		FilePage:       1,
	}
}

func TestRecordDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)

	orig, err := s.CreateTicket(ctx, draft("1234567890", "WASTE_MANAGEMENT", day), store.CreateOptions{})
	require.NoError(t, err)

	rescan := draft("1234567890", "WASTE_MANAGEMENT", day.AddDate(0, 0, 3))
	rescan.FilePage = 2
	_, err = s.CreateTicket(ctx, rescan, store.CreateOptions{})
	match, ok := IsDuplicateErr(err)
	require.True(t, ok)

	res, err := NewDetector(s).Record(ctx, rescan, match, store.CreateOptions{})
	require.NoError(t, err)
	assert.True(t, res.IsDuplicate)
	assert.Equal(t, orig.ID, res.OriginalID)
	assert.Equal(t, 3, res.DaysApart)
	assert.Equal(t, 1.0, res.Confidence)

	// The duplicate row exists, points at the original, and carries the
	// review flag.
	dups, err := s.DuplicateTickets(ctx)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	require.NotNil(t, dups[0].DuplicateOf)
	assert.Equal(t, orig.ID, *dups[0].DuplicateOf)
	assert.True(t, dups[0].ReviewRequired)
	assert.Equal(t, string(review.ReasonDuplicateTicket), dups[0].ReviewReason)

	// And the review queue got a warning.
	entries, err := s.ListReviewEntries(ctx, store.ReviewFilter{Reason: review.ReasonDuplicateTicket})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, review.SeverityWarning, entries[0].Severity)
}

func TestUnknownVendorConfidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)

	_, err := s.CreateTicket(ctx, draft("1234567890", "WASTE_MANAGEMENT", day), store.CreateOptions{})
	require.NoError(t, err)

	rescan := draft("1234567890", "", day.AddDate(0, 0, 1))
	_, err = s.CreateTicket(ctx, rescan, store.CreateOptions{})
	match, ok := IsDuplicateErr(err)
	require.True(t, ok)

	res, err := NewDetector(s).Record(ctx, rescan, match, store.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.85, res.Confidence)
}

func TestIsDuplicateErrIgnoresOtherErrors(t *testing.T) {
	s := newTestStore(t)

	bad := draft("1234567890", "WASTE_MANAGEMENT", time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC))
	bad.MaterialName = "UNOBTANIUM"
	_, err := s.CreateTicket(context.Background(), bad, store.CreateOptions{})
	require.Error(t, err)

	_, ok := IsDuplicateErr(err)
	assert.False(t, ok)
}

func TestHashFileChunked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	content := make([]byte, 3*hashChunkSize+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, content, 0644))

	h1, err := HashFile(path)
	require.NoError(t, err)
	h2, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestFileTracker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tracker := NewFileTracker(s)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(a, []byte("scan content"), 0644))

	hash, dup, err := tracker.Check(ctx, a)
	require.NoError(t, err)
	assert.Nil(t, dup)
	require.NoError(t, tracker.Record(ctx, hash, a, "guid-1"))

	// A renamed copy of the same bytes is caught.
	b := filepath.Join(dir, "renamed.pdf")
	require.NoError(t, os.WriteFile(b, []byte("scan content"), 0644))
	_, dup, err = tracker.Check(ctx, b)
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, a, dup.OriginalPath)
	assert.Equal(t, "guid-1", dup.RequestGUID)
}
