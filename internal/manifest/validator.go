// Package manifest enforces the regulatory rule that contaminated loads (and
// loads bound for manifest-required facilities) carry a well-formed manifest
// number. The rule has a 100% recall requirement: a page that needs a
// manifest either persists with one or lands in the review queue as CRITICAL.
package manifest

import (
	"regexp"
	"strings"

	"ticketflow/internal/refdata"
	"ticketflow/internal/review"
)

// Materials whose names force a manifest even without a reference row.
var contaminatedNames = map[string]bool{
	"CLASS_2_CONTAMINATED": true,
	"CLASS_2":              true,
	"CONTAMINATED_SOIL":    true,
	"HAZARDOUS":            true,
}

// Names that contain "CONTAMINATED" but are explicitly clean.
var cleanNames = map[string]bool{
	"NON_CONTAMINATED": true,
	"NON-CONTAMINATED": true,
	"CLEAN":            true,
	"SPOILS":           true,
	"IMPORT":           true,
}

// Fallback destination set used only when no reference row is available. The
// authoritative source is destinations.requires_manifest.
var manifestRequiredDestinations = map[string]bool{
	"WASTE_MANAGEMENT_LEWISVILLE": true,
}

var manifestFormat = regexp.MustCompile(`^[A-Z0-9_\-]+$`)

// Input carries what the validator needs for one page. The resolved
// reference rows are optional; when present their requires_manifest columns
// are authoritative, otherwise the name heuristics apply.
type Input struct {
	MaterialName    string
	DestinationName string
	ManifestNumber  string

	Material    *refdata.Material
	Destination *refdata.Destination
}

// Result is the validation outcome for one page.
type Result struct {
	IsValid  bool
	Required bool
	Severity review.Severity
	Reason   review.Reason // empty when valid
	Message  string
}

// Requires reports whether the combination of material and destination
// demands a manifest number.
func Requires(in Input) bool {
	if in.Material != nil {
		if in.Material.RequiresManifest {
			return true
		}
	} else if materialRequiresByName(in.MaterialName) {
		return true
	}

	if in.Destination != nil {
		return in.Destination.RequiresManifest
	}
	return destinationRequiresByName(in.DestinationName)
}

func materialRequiresByName(name string) bool {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return false
	}
	if contaminatedNames[upper] {
		return true
	}
	if cleanNames[upper] {
		return false
	}
	return strings.Contains(upper, "CONTAMINATED")
}

func destinationRequiresByName(name string) bool {
	upper := strings.ToUpper(strings.TrimSpace(name))
	return manifestRequiredDestinations[upper]
}

// WellFormed reports whether a manifest number is acceptably formatted:
// after trimming, 8-20 characters of [A-Z0-9_-] (case-folded).
func WellFormed(manifestNumber string) bool {
	trimmed := strings.TrimSpace(manifestNumber)
	if len(trimmed) < 8 || len(trimmed) > 20 {
		return false
	}
	return manifestFormat.MatchString(strings.ToUpper(trimmed))
}

// Validate applies the manifest rule to one page.
func Validate(in Input) Result {
	if !Requires(in) {
		return Result{IsValid: true, Severity: review.SeverityInfo, Message: "manifest not required"}
	}

	trimmed := strings.TrimSpace(in.ManifestNumber)
	if trimmed == "" {
		return Result{
			IsValid:  false,
			Required: true,
			Severity: review.SeverityCritical,
			Reason:   review.ReasonMissingManifest,
			Message:  "manifest required but missing",
		}
	}
	if !WellFormed(trimmed) {
		return Result{
			IsValid:  false,
			Required: true,
			Severity: review.SeverityWarning,
			Reason:   review.ReasonInvalidManifestFormat,
			Message:  "manifest present but malformed: " + trimmed,
		}
	}
	return Result{IsValid: true, Required: true, Severity: review.SeverityInfo, Message: "manifest present"}
}
