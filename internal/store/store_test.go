package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/refdata"
	"ticketflow/internal/review"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tickets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background(), refdata.DefaultSeed()))
	return s
}

func testDraft(n string) TicketDraft {
	return TicketDraft{
		TicketNumber:    n,
		TicketDate:      time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC),
		JobCode:         "24-105",
		MaterialName:    "NON_CONTAMINATED",
		TicketTypeName:  "EXPORT",
		SourceName:      "SPG",
		DestinationName: "DFW_LANDFILL",
		VendorName:      "WASTE_MANAGEMENT",
		Quantity:        1,
		QuantityUnit:    "LOADS",
		FileID:          "scans/batch1.pdf",
		FilePage:        1,
		RequestGUID:     "run-1",
		ProcessedBy:     "tester",
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, refdata.DefaultSeed()))

	mats, err := s.AllMaterials(ctx)
	require.NoError(t, err)
	assert.Len(t, mats, len(refdata.DefaultSeed().Materials))
}

func TestLookupMissReturnsNilNil(t *testing.T) {
	s := newTestStore(t)

	m, err := s.MaterialByName(context.Background(), "UNOBTANIUM")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestCreateTicket(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1234567890", tk.TicketNumber)
	assert.Equal(t, "2025-10-06", tk.TicketDate.Format("2006-01-02"))
	assert.NotNil(t, tk.VendorID)
	assert.False(t, tk.ReviewRequired)
	assert.Nil(t, tk.DuplicateOf)

	got, err := s.TicketByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.TicketNumber, got.TicketNumber)
}

func TestCreateTicketThroughSessionCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cache := refdata.NewCache(s)
	require.NoError(t, cache.PreloadAll(ctx))

	tk, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{Lookup: cache})
	require.NoError(t, err)
	assert.NotNil(t, tk.VendorID)
	assert.NotNil(t, tk.MaterialID)
}

func TestCreateTicketUnknownMaterial(t *testing.T) {
	s := newTestStore(t)

	d := testDraft("1234567890")
	d.MaterialName = "UNOBTANIUM"
	_, err := s.CreateTicket(context.Background(), d, CreateOptions{})

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindForeignKey, se.Kind)
}

func TestCreateTicketMissingManifestRejected(t *testing.T) {
	s := newTestStore(t)

	d := testDraft("1234567890")
	d.MaterialName = "CLASS_2_CONTAMINATED"
	d.ManifestNumber = ""
	_, err := s.CreateTicket(context.Background(), d, CreateOptions{})

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindValidation, se.Kind)
	require.NotNil(t, se.Manifest)
	assert.Equal(t, review.ReasonMissingManifest, se.Manifest.Reason)

	// Nothing persisted.
	n, err := s.CountTicketsByJob(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateTicketMalformedManifestPersistsFlagged(t *testing.T) {
	s := newTestStore(t)

	d := testDraft("1234567890")
	d.MaterialName = "CLASS_2_CONTAMINATED"
	d.ManifestNumber = "X!"
	tk, err := s.CreateTicket(context.Background(), d, CreateOptions{})
	require.NoError(t, err)
	assert.True(t, tk.ReviewRequired)
	assert.Equal(t, string(review.ReasonInvalidManifestFormat), tk.ReviewReason)
}

func TestCreateTicketManifestRequiredByDestination(t *testing.T) {
	s := newTestStore(t)

	// Clean material, but the destination row requires manifests for
	// everything it receives.
	d := testDraft("1234567890")
	d.DestinationName = "WASTE_MANAGEMENT_LEWISVILLE"
	d.ManifestNumber = ""
	_, err := s.CreateTicket(context.Background(), d, CreateOptions{})

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindValidation, se.Kind)
}

func TestDuplicateInsideWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orig, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)

	d := testDraft("1234567890")
	d.TicketDate = orig.TicketDate.AddDate(0, 0, 30)
	_, err = s.CreateTicket(ctx, d, CreateOptions{})

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindDuplicateTicket, se.Kind)
	require.NotNil(t, se.Duplicate)
	assert.Equal(t, orig.ID, se.Duplicate.OriginalID)
	assert.Equal(t, 30, se.Duplicate.DaysApart)
	assert.True(t, se.Duplicate.VendorMatched)
}

func TestDuplicateOutsideWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)

	// 130 days apart with a 120-day window: legitimately reused number.
	d := testDraft("1234567890")
	d.TicketDate = d.TicketDate.AddDate(0, 0, 130)
	_, err = s.CreateTicket(ctx, d, CreateOptions{})
	require.NoError(t, err)

	// Both rows survive as independent tickets.
	all, err := s.TicketsByNumber(ctx, "1234567890")
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, tk := range all {
		assert.Nil(t, tk.DuplicateOf)
	}
}

func TestDuplicateDifferentVendorsBothPersist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)

	d := testDraft("1234567890")
	d.VendorName = "REPUBLIC_SERVICES"
	_, err = s.CreateTicket(ctx, d, CreateOptions{})
	assert.NoError(t, err)
}

func TestDuplicateUnknownVendorStillMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)

	d := testDraft("1234567890")
	d.VendorName = ""
	_, err = s.CreateTicket(ctx, d, CreateOptions{})

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindDuplicateTicket, se.Kind)
	assert.False(t, se.Duplicate.VendorMatched)
}

func TestInsertConfirmedDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orig, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)

	d := testDraft("1234567890")
	d.FilePage = 2
	dup, err := s.CreateTicket(ctx, d, CreateOptions{DuplicateOf: &orig.ID})
	require.NoError(t, err)
	require.NotNil(t, dup.DuplicateOf)
	assert.Equal(t, orig.ID, *dup.DuplicateOf)
	assert.True(t, dup.ReviewRequired)
	assert.Equal(t, string(review.ReasonDuplicateTicket), dup.ReviewReason)

	dups, err := s.DuplicateTickets(ctx)
	require.NoError(t, err)
	assert.Len(t, dups, 1)
}

func TestSearchTickets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, n := range []string{"1111111111", "2222222222", "1111122222"} {
		d := testDraft(n)
		d.TicketDate = d.TicketDate.AddDate(0, 0, i)
		_, err := s.CreateTicket(ctx, d, CreateOptions{})
		require.NoError(t, err)
	}

	hits, err := s.SearchTickets(ctx, TicketFilter{TicketNumber: "11111"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	from := time.Date(2025, 10, 7, 0, 0, 0, 0, time.UTC)
	hits, err = s.SearchTickets(ctx, TicketFilter{DateFrom: &from})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestExpandedTickets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)

	rows, err := s.ExpandedTicketsByDateRange(ctx, tk.JobID,
		tk.TicketDate.AddDate(0, 0, -1), tk.TicketDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "24-105", rows[0].JobCode)
	assert.Equal(t, "NON_CONTAMINATED", rows[0].MaterialName)
	assert.Equal(t, "WASTE_MANAGEMENT", rows[0].VendorName)
	assert.Equal(t, "EXPORT", rows[0].TicketTypeName)
}

func TestUpdateAndDeleteTicket(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tk, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)

	q := 4.5
	unit := "TONS"
	require.NoError(t, s.UpdateTicket(ctx, tk.ID, TicketUpdate{Quantity: &q, QuantityUnit: &unit}))

	got, err := s.TicketByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Quantity)
	assert.Equal(t, "TONS", got.QuantityUnit)

	require.NoError(t, s.SoftDeleteTicket(ctx, tk.ID))
	n, err := s.CountTicketsByJob(ctx, tk.JobID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Soft-deleted rows reject further updates.
	err = s.UpdateTicket(ctx, tk.ID, TicketUpdate{Quantity: &q})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindNotFound, se.Kind)
}

func TestHardDeleteRefusesReferencedOriginal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	orig, err := s.CreateTicket(ctx, testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)
	d := testDraft("1234567890")
	_, err = s.CreateTicket(ctx, d, CreateOptions{DuplicateOf: &orig.ID})
	require.NoError(t, err)

	err = s.HardDeleteTicket(ctx, orig.ID)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindConflict, se.Kind)
}

func TestReviewQueueLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddReviewEntry(ctx, &review.Entry{
		PageID:   review.PageID("scans/a.pdf", 2),
		Reason:   review.ReasonMissingTicketNumber,
		Severity: review.SeverityCritical,
		FilePath: "scans/a.pdf",
		PageNum:  2,
		DetectedFields: map[string]any{
			"date": "2025-10-06",
		},
	})
	require.NoError(t, err)
	warnID, err := s.AddReviewEntry(ctx, &review.Entry{
		PageID:   review.PageID("scans/a.pdf", 3),
		Reason:   review.ReasonInvalidManifestFormat,
		Severity: review.SeverityWarning,
		FilePath: "scans/a.pdf",
		PageNum:  3,
	})
	require.NoError(t, err)

	entries, err := s.ListReviewEntries(ctx, ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// CRITICAL sorts ahead of WARNING.
	assert.Equal(t, review.SeverityCritical, entries[0].Severity)
	assert.Equal(t, "2025-10-06", entries[0].DetectedFields["date"])

	require.NoError(t, s.ResolveReviewEntry(ctx, warnID, "operator"))
	counts, err := s.CountUnresolvedReviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[review.SeverityCritical])
	assert.Zero(t, counts[review.SeverityWarning])

	// Double resolution is rejected.
	err = s.ResolveReviewEntry(ctx, warnID, "operator")
	assert.Error(t, err)
}

func TestRunLedgerLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartRun(ctx, "guid-1", "tester", `{"name":"ticketflow"}`)
	require.NoError(t, err)
	assert.Equal(t, RunInProgress, run.Status)

	require.NoError(t, s.UpdateRunProgress(ctx, "guid-1", RunCounters{FilesProcessed: 1, PagesProcessed: 4, TicketsCreated: 3, ErrorCount: 1}))
	require.NoError(t, s.UpdateRunProgress(ctx, "guid-1", RunCounters{FilesProcessed: 1, PagesProcessed: 2, TicketsCreated: 2}))

	require.NoError(t, s.FinishRun(ctx, "guid-1", RunPartial))

	got, err := s.RunByGUID(ctx, "guid-1")
	require.NoError(t, err)
	assert.Equal(t, RunPartial, got.Status)
	assert.Equal(t, 2, got.FilesProcessed)
	assert.Equal(t, 6, got.PagesProcessed)
	assert.Equal(t, 5, got.TicketsCreated)
	require.NotNil(t, got.CompletedAt)

	// Terminal runs are immutable.
	assert.Error(t, s.UpdateRunProgress(ctx, "guid-1", RunCounters{FilesProcessed: 1}))
	assert.Error(t, s.FinishRun(ctx, "guid-1", RunCompleted))

	// GUIDs are unique.
	_, err = s.StartRun(ctx, "guid-1", "tester", "")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindConflict, se.Kind)
}

func TestRunStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.StartRun(ctx, "guid-1", "tester", "")
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunProgress(ctx, "guid-1", RunCounters{TicketsCreated: 3}))
	require.NoError(t, s.FinishRun(ctx, "guid-1", RunCompleted))
	_, err = s.StartRun(ctx, "guid-2", "tester", "")
	require.NoError(t, err)

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalRuns)
	assert.Equal(t, int64(1), st.CompletedRuns)
	assert.Equal(t, int64(1), st.InProgressRuns)
	assert.Equal(t, int64(3), st.TotalTickets)
}

func TestProcessedFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordProcessedFile(ctx, "abc123", "scans/a.pdf", "guid-1"))
	// First sighting wins.
	require.NoError(t, s.RecordProcessedFile(ctx, "abc123", "scans/renamed.pdf", "guid-2"))

	f, err := s.FileByHash(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "scans/a.pdf", f.FilePath)

	miss, err := s.FileByHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, RunMigrations(s.DB()))
	require.NoError(t, RunMigrations(s.DB()))
}

func TestOpenExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickets.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), refdata.DefaultSeed()))
	_, err = s.CreateTicket(context.Background(), testDraft("1234567890"), CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	n, err := s2.CountTicketsByJob(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := &Error{Kind: KindValidation, Message: "bad", cause: cause}
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "VALIDATION_ERROR")
}
