package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)

func TestExtractTicketNumberGeneric(t *testing.T) {
	v, conf := ExtractTicketNumber("Ticket: WM-40000001\nQuantity: 12.5 TONS", nil)
	assert.Equal(t, "WM-40000001", v)
	assert.InDelta(t, 0.8, conf, 1e-9)

	v, conf = ExtractTicketNumber("ticket no 1234567890 net 10 tons", nil)
	assert.Equal(t, "1234567890", v)
	assert.InDelta(t, 0.9*0.8, conf, 1e-9)

	v, _ = ExtractTicketNumber("ref 4512345", nil)
	assert.Equal(t, "4512345", v)
}

func TestExtractTicketNumberRejectsDateLike(t *testing.T) {
	// 20251017 reads as a date, not a ticket number.
	v, conf := ExtractTicketNumber("printed 20251017", nil)
	assert.Empty(t, v)
	assert.Zero(t, conf)

	// A real ticket number elsewhere still wins.
	v, _ = ExtractTicketNumber("printed 20251017 ticket 87654321", nil)
	assert.Equal(t, "87654321", v)
}

func TestExtractTicketNumberTemplatePrecedence(t *testing.T) {
	tmpl := MustPatterns(`(?i)TKT-(\d{6})`)
	v, conf := ExtractTicketNumber("TKT-123456 and 9876543", tmpl)
	assert.Equal(t, "123456", v)
	assert.InDelta(t, 1.0, conf, 1e-9)
}

func TestExtractTicketNumberMissing(t *testing.T) {
	v, conf := ExtractTicketNumber("no digits to speak of", nil)
	assert.Empty(t, v)
	assert.Zero(t, conf)
}

func TestExtractTicketDateFromHints(t *testing.T) {
	d := time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)
	hints := &FilenameHints{Date: &d}

	got, conf, ok := ExtractTicketDate("Date: 01/01/2024", nil, hints, testNow)
	require.True(t, ok)
	assert.Equal(t, d, got)
	assert.InDelta(t, 1.0, conf, 1e-9)
}

func TestExtractTicketDateGenericFormats(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"Date: 10/17/2025", time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)},
		{"Date: 10-17-2025", time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)},
		{"delivered 2025-10-17 on site", time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)},
		{"Date: 10/17/25", time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)},
		{"17-Oct-2025 delivery", time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, conf, ok := ExtractTicketDate(tt.text, nil, nil, testNow)
		require.True(t, ok, "text %q", tt.text)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
		assert.Greater(t, conf, 0.0)
	}
}

func TestExtractTicketDateRange(t *testing.T) {
	// Before the 2020 floor.
	_, _, ok := ExtractTicketDate("Date: 12/31/2019", nil, nil, testNow)
	assert.False(t, ok)

	// More than 7 days in the future.
	_, _, ok = ExtractTicketDate("Date: 11/15/2025", nil, nil, testNow)
	assert.False(t, ok)

	// Older than 180 days.
	_, _, ok = ExtractTicketDate("Date: 01/05/2025", nil, nil, testNow)
	assert.False(t, ok)

	// Stale filename hint is also rejected, falling through to OCR text.
	stale := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, _, ok := ExtractTicketDate("Date: 10/17/2025", nil, &FilenameHints{Date: &stale}, testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC), got)
}

func TestExtractQuantity(t *testing.T) {
	v, unit, conf := ExtractQuantity("Quantity: 12.5 TONS", nil)
	assert.Equal(t, 12.5, v)
	assert.Equal(t, "TONS", unit)
	assert.InDelta(t, 0.8, conf, 1e-9)

	v, unit, _ = ExtractQuantity("18 cubic yards of fill", nil)
	assert.Equal(t, 18.0, v)
	assert.Equal(t, "CY", unit)

	v, unit, _ = ExtractQuantity("2 loads hauled", nil)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, "LOADS", unit)
}

func TestExtractQuantityDefault(t *testing.T) {
	v, unit, conf := ExtractQuantity("no usable quantity here", nil)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, "LOADS", unit)
	assert.Equal(t, 0.5, conf)
}

func TestExtractQuantityRejectsOutOfRange(t *testing.T) {
	// 900 tons is not one truck; fall to the default.
	v, unit, conf := ExtractQuantity("NET 900 TONS", nil)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, "LOADS", unit)
	assert.Equal(t, 0.5, conf)

	// Zero is rejected too.
	v, _, _ = ExtractQuantity("0 TONS", nil)
	assert.Equal(t, 1.0, v)
}

func TestExtractManifestNumber(t *testing.T) {
	v, conf := ExtractManifestNumber("Manifest: WM-MAN-2024-001234", nil)
	assert.Equal(t, "WM-MAN-2024-001234", v)
	assert.InDelta(t, 0.8, conf, 1e-9)

	v, _ = ExtractManifestNumber("MAN # tx-0012345", nil)
	assert.Equal(t, "TX-0012345", v)

	v, _ = ExtractManifestNumber("MFST: ABC12345", nil)
	assert.Equal(t, "ABC12345", v)

	// Prose around the label never reads as a manifest number.
	v, conf = ExtractManifestNumber("no manifest line", nil)
	assert.Empty(t, v)
	assert.Zero(t, conf)

	v, _ = ExtractManifestNumber("driver said manifest not required", nil)
	assert.Empty(t, v)

	// A digit-free capture is prose, not an identifier.
	v, _ = ExtractManifestNumber("MANIFEST: NONE", nil)
	assert.Empty(t, v)
}

func TestExtractTruckNumber(t *testing.T) {
	v, _ := ExtractTruckNumber("Truck # 42", nil)
	assert.Equal(t, "42", v)

	v, _ = ExtractTruckNumber("Vehicle #T-17", nil)
	assert.Equal(t, "T-17", v)

	v, _ = ExtractTruckNumber("Unit # 7A", nil)
	assert.Equal(t, "7A", v)

	v, _ = ExtractTruckNumber("truck 105 arrived", nil)
	assert.Equal(t, "105", v)

	v, conf := ExtractTruckNumber("no truck mentioned", nil)
	assert.Empty(t, v)
	assert.Zero(t, conf)
}

func TestParseFilenameFullConvention(t *testing.T) {
	hints := ParseFilename("/in/24-105__2025-10-17__SPG__EXPORT__CLASS_2_CONTAMINATED__WASTE_MANAGEMENT_LEWISVILLE.pdf")

	assert.Equal(t, "24-105", hints.JobCode)
	require.NotNil(t, hints.Date)
	assert.Equal(t, time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC), *hints.Date)
	assert.Equal(t, "SPG", hints.Source)
	assert.Equal(t, "EXPORT", hints.TicketType)
	assert.Equal(t, "CLASS_2_CONTAMINATED", hints.Material)
	assert.Equal(t, "WASTE_MANAGEMENT_LEWISVILLE", hints.Vendor)
}

func TestParseFilenamePartial(t *testing.T) {
	hints := ParseFilename("24-105__2025-10-17__SPG__EXPORT.pdf")
	assert.Equal(t, "24-105", hints.JobCode)
	assert.Equal(t, "EXPORT", hints.TicketType)
	assert.Empty(t, hints.Material)
	assert.Empty(t, hints.Vendor)
}

func TestParseFilenameStripsLoadCount(t *testing.T) {
	hints := ParseFilename("24-105__2025-10-17__SPG__EXPORT__SPOILS_003.tif")
	assert.Equal(t, "SPOILS", hints.Material)

	hints = ParseFilename("24-105__2025-10-17__SPG__EXPORT__012.pdf")
	assert.Equal(t, "EXPORT", hints.TicketType)
	assert.Empty(t, hints.Material)
}

func TestParseFilenameNoConvention(t *testing.T) {
	hints := ParseFilename("scan0001.pdf")
	assert.Empty(t, hints.JobCode)
	assert.Nil(t, hints.Date)
	assert.Empty(t, hints.Vendor)
}

func TestParseFilenameBadDateComponent(t *testing.T) {
	hints := ParseFilename("24-105__oct-17__SPG__EXPORT.pdf")
	assert.Equal(t, "24-105", hints.JobCode)
	assert.Nil(t, hints.Date)
	assert.Equal(t, "SPG", hints.Source)
}
