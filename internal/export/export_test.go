package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
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

func mustCreate(t *testing.T, s *store.Store, d store.TicketDraft, opts store.CreateOptions) *store.TruckTicket {
	t.Helper()
	tk, err := s.CreateTicket(context.Background(), d, opts)
	require.NoError(t, err)
	return tk
}

func baseDraft(n, material, vendor string, day time.Time, qty float64) store.TicketDraft {
	return store.TicketDraft{
		TicketNumber:   n,
		TicketDate:     day,
		JobCode:        "24-105",
		MaterialName:   material,
		TicketTypeName: "EXPORT",
		SourceName:     "SPG",
		VendorName:     vendor,
		Quantity:       qty,
		QuantityUnit:   "TONS",
		FileID:         "scans/x.pdf",
		FilePage:       1,
	}
}

func readCSV(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = comma
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestJobCalendar(t *testing.T) {
	start := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC) // a Monday

	assert.Equal(t, 1, JobWeek(start, start))
	assert.Equal(t, 1, JobWeek(start, start.AddDate(0, 0, 6))) // Sunday same week
	assert.Equal(t, 2, JobWeek(start, start.AddDate(0, 0, 7)))
	assert.Equal(t, 0, JobWeek(start, start.AddDate(0, 0, -8)))

	assert.Equal(t, 1, JobMonth(start, start))
	assert.Equal(t, 2, JobMonth(start, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, JobMonth(start, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "WK004", WeekLabel(4))
	assert.Equal(t, "MO012", MonthLabel(12))
}

func TestWeekStartsMondayMidweekJob(t *testing.T) {
	start := time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC) // a Wednesday
	// The Friday of the start week is still week 1; next Monday is week 2.
	assert.Equal(t, 1, JobWeek(start, time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, JobWeek(start, time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC)))
}

func TestWorkbook(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)

	d := baseDraft("1000000001", "CLASS_2_CONTAMINATED", "WASTE_MANAGEMENT", day, 10)
	d.ManifestNumber = "WM-MAN-2025-000111"
	mustCreate(t, s, d, store.CreateOptions{})
	mustCreate(t, s, baseDraft("1000000002", "NON_CONTAMINATED", "WASTE_MANAGEMENT", day, 5), store.CreateOptions{})
	sp := baseDraft("1000000003", "SPOILS", "LONE_STAR_TRUCKING", day.AddDate(0, 0, 1), 7)
	sp.SourceName = "NORTH_PIT"
	mustCreate(t, s, sp, store.CreateOptions{})

	e, err := New(s, filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)
	paths, err := e.Workbook(context.Background(), "24-105", day.AddDate(0, 0, -1), day.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, paths, 5)

	daily := readCSV(t, paths[0], ',')
	require.Len(t, daily, 3) // header + two dates
	assert.Equal(t, "date", daily[0][0])
	assert.Equal(t, "2025-10-06", daily[1][0])
	assert.Equal(t, "2", daily[1][3])      // two loads that day
	assert.Equal(t, "15.00", daily[1][4])  // total quantity
	assert.Equal(t, "10.00", daily[1][5])  // contaminated
	assert.Equal(t, "5.00", daily[1][6])   // clean
	assert.Equal(t, "7.00", daily[2][7])   // next day spoils

	spoils := readCSV(t, paths[3], ',')
	require.Len(t, spoils, 2)
	assert.Equal(t, []string{"date", "NORTH_PIT", "total"}, spoils[0])
	assert.Equal(t, []string{"2025-10-07", "7.00", "7.00"}, spoils[1])
}

func TestInvoiceCSVSortedPipeDelimited(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)

	mustCreate(t, s, baseDraft("2000000002", "NON_CONTAMINATED", "WASTE_MANAGEMENT", day.AddDate(0, 0, 1), 5), store.CreateOptions{})
	mustCreate(t, s, baseDraft("2000000001", "NON_CONTAMINATED", "WASTE_MANAGEMENT", day, 5), store.CreateOptions{})
	mustCreate(t, s, baseDraft("1000000009", "NON_CONTAMINATED", "LONE_STAR_TRUCKING", day, 3), store.CreateOptions{})

	e, err := New(s, filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)
	path, err := e.InvoiceCSV(context.Background(), "24-105", day.AddDate(0, 0, -1), day.AddDate(0, 0, 2))
	require.NoError(t, err)

	rows := readCSV(t, path, '|')
	require.Len(t, rows, 4)
	// Vendor first, then date, then number.
	assert.Equal(t, "LONE_STAR_TRUCKING", rows[1][0])
	assert.Equal(t, "2000000001", rows[2][2])
	assert.Equal(t, "2000000002", rows[3][2])
}

func TestManifestLog(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)

	d := baseDraft("3000000001", "CLASS_2_CONTAMINATED", "WASTE_MANAGEMENT", day, 10)
	d.ManifestNumber = "WM-MAN-2025-000111"
	mustCreate(t, s, d, store.CreateOptions{})

	// Same manifest number on a second ticket: flagged as reused.
	d2 := baseDraft("3000000002", "CLASS_2_CONTAMINATED", "WASTE_MANAGEMENT", day.AddDate(0, 0, 1), 10)
	d2.ManifestNumber = "WM-MAN-2025-000111"
	mustCreate(t, s, d2, store.CreateOptions{})

	// Legacy row without a manifest, imported before enforcement.
	d3 := baseDraft("3000000003", "CLASS_2_CONTAMINATED", "WASTE_MANAGEMENT", day.AddDate(0, 0, 2), 10)
	mustCreate(t, s, d3, store.CreateOptions{SkipManifestCheck: true})

	// Clean load: not in the log.
	mustCreate(t, s, baseDraft("3000000004", "NON_CONTAMINATED", "WASTE_MANAGEMENT", day, 5), store.CreateOptions{})

	e, err := New(s, filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)
	path, err := e.ManifestLog(context.Background(), "24-105", day.AddDate(0, 0, -1), day.AddDate(0, 0, 3))
	require.NoError(t, err)

	rows := readCSV(t, path, ',')
	require.Len(t, rows, 4) // header + three contaminated tickets
	assert.Equal(t, "REUSED", rows[1][8])
	assert.Equal(t, "REUSED", rows[2][8])
	assert.Equal(t, "MISSING", rows[3][1])
	assert.Equal(t, "NO_MANIFEST", rows[3][8])
}

func TestReviewExports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.AddReviewEntry(ctx, &review.Entry{
		PageID:   review.PageID("scans/a.pdf", 1),
		Reason:   review.ReasonInvalidManifestFormat,
		Severity: review.SeverityWarning,
		FilePath: "scans/a.pdf",
		PageNum:  1,
	})
	require.NoError(t, err)
	_, err = s.AddReviewEntry(ctx, &review.Entry{
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

	e, err := New(s, filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)

	path, err := e.ReviewCSV(ctx)
	require.NoError(t, err)
	rows := readCSV(t, path, ',')
	require.Len(t, rows, 3)
	assert.Equal(t, "CRITICAL", rows[1][0])
	assert.Equal(t, "WARNING", rows[2][0])
	assert.Contains(t, rows[1][5], "2025-10-06")

	jsonPath, err := e.ReviewJSON(ctx)
	require.NoError(t, err)
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var entries []review.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 2)
}

func TestOutPathRejectsEscape(t *testing.T) {
	e, err := New(newTestStore(t), filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)

	_, err = e.outPath("../evil.csv")
	assert.Error(t, err)
	_, err = e.outPath("ok.csv")
	assert.NoError(t, err)
}
