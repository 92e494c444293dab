package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketflow/internal/refdata"
	"ticketflow/internal/review"
)

func TestRequiresByMaterialName(t *testing.T) {
	tests := []struct {
		material string
		want     bool
	}{
		{"CLASS_2_CONTAMINATED", true},
		{"class_2_contaminated", true},
		{"CLASS_2", true},
		{"CONTAMINATED_SOIL", true},
		{"HAZARDOUS", true},
		{"PETROLEUM_CONTAMINATED_FILL", true}, // contains CONTAMINATED
		{"NON_CONTAMINATED", false},
		{"NON-CONTAMINATED", false},
		{"CLEAN", false},
		{"SPOILS", false},
		{"IMPORT", false},
		{"FLEX_BASE", false},
		{"", false},
	}
	for _, tt := range tests {
		got := Requires(Input{MaterialName: tt.material})
		assert.Equal(t, tt.want, got, "material %q", tt.material)
	}
}

func TestRequiresByDestination(t *testing.T) {
	// Name fallback.
	assert.True(t, Requires(Input{MaterialName: "CLEAN", DestinationName: "WASTE_MANAGEMENT_LEWISVILLE"}))
	assert.False(t, Requires(Input{MaterialName: "CLEAN", DestinationName: "DFW_LANDFILL"}))

	// Reference row wins over the name heuristic.
	dest := &refdata.Destination{Name: "SOME_NEW_FACILITY", RequiresManifest: true}
	assert.True(t, Requires(Input{MaterialName: "CLEAN", DestinationName: "SOME_NEW_FACILITY", Destination: dest}))

	notRequired := &refdata.Destination{Name: "WASTE_MANAGEMENT_LEWISVILLE", RequiresManifest: false}
	assert.False(t, Requires(Input{MaterialName: "CLEAN", DestinationName: "WASTE_MANAGEMENT_LEWISVILLE", Destination: notRequired}))
}

func TestRequiresByMaterialRow(t *testing.T) {
	m := &refdata.Material{Name: "SPECIAL_BLEND", RequiresManifest: true}
	assert.True(t, Requires(Input{MaterialName: "SPECIAL_BLEND", Material: m}))

	m = &refdata.Material{Name: "CLASS_2_CONTAMINATED", RequiresManifest: false}
	// Row says no; destination fallback also no.
	assert.False(t, Requires(Input{MaterialName: "CLASS_2_CONTAMINATED", Material: m}))
}

func TestWellFormed(t *testing.T) {
	assert.True(t, WellFormed("WM-MAN-2024-001234"))
	assert.True(t, WellFormed("  WM-MAN-2024-001234  "))
	assert.True(t, WellFormed("abcd1234")) // case-folded
	assert.True(t, WellFormed("A_B-C_D-12345"))
	assert.False(t, WellFormed("SHORT"))                      // < 8 chars
	assert.False(t, WellFormed(strings.Repeat("A", 21)))      // > 20 chars
	assert.False(t, WellFormed("WM MAN 2024"))                // spaces
	assert.False(t, WellFormed("WM#MAN#2024#01"))             // bad chars
	assert.False(t, WellFormed(""))
}

func TestValidateOutcomes(t *testing.T) {
	// Not required.
	res := Validate(Input{MaterialName: "NON_CONTAMINATED", DestinationName: "DFW_LANDFILL"})
	assert.True(t, res.IsValid)
	assert.False(t, res.Required)
	assert.Equal(t, review.SeverityInfo, res.Severity)

	// Required and missing.
	res = Validate(Input{MaterialName: "CLASS_2_CONTAMINATED"})
	assert.False(t, res.IsValid)
	assert.True(t, res.Required)
	assert.Equal(t, review.SeverityCritical, res.Severity)
	assert.Equal(t, review.ReasonMissingManifest, res.Reason)

	// Required and malformed.
	res = Validate(Input{MaterialName: "CLASS_2_CONTAMINATED", ManifestNumber: "BAD #1"})
	assert.False(t, res.IsValid)
	assert.Equal(t, review.SeverityWarning, res.Severity)
	assert.Equal(t, review.ReasonInvalidManifestFormat, res.Reason)

	// Required and well-formed.
	res = Validate(Input{MaterialName: "CLASS_2_CONTAMINATED", ManifestNumber: "WM-MAN-2024-001234"})
	assert.True(t, res.IsValid)
	assert.True(t, res.Required)
	assert.Equal(t, review.SeverityInfo, res.Severity)
}

// Destination override forces manifests even for clean material.
func TestValidateDestinationOverride(t *testing.T) {
	res := Validate(Input{
		MaterialName:    "NON_CONTAMINATED",
		DestinationName: "WASTE_MANAGEMENT_LEWISVILLE",
	})
	assert.False(t, res.IsValid)
	assert.Equal(t, review.SeverityCritical, res.Severity)
	assert.Equal(t, review.ReasonMissingManifest, res.Reason)
}

// Every accepted manifest survives upper/trim canonicalization unchanged.
func TestWellFormedRoundTrip(t *testing.T) {
	accepted := []string{"WM-MAN-2024-001234", "  TX0012345  ", "man_2025-0001"}
	for _, m := range accepted {
		if !WellFormed(m) {
			continue
		}
		canon := strings.ToUpper(strings.TrimSpace(m))
		assert.True(t, WellFormed(canon))
		assert.GreaterOrEqual(t, len(canon), 8)
		assert.LessOrEqual(t, len(canon), 20)
		for _, r := range canon {
			assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-", string(r))
		}
	}
}
