package vendorid

import (
	"image"
	"strings"

	"ticketflow/internal/logging"
	"ticketflow/internal/refdata"
)

// Detection method labels, also used in review-entry diagnostics.
const (
	MethodFilename = "filename"
	MethodLogo     = "logo"
	MethodAlias    = "alias"
	MethodLogoText = "logo_text"
	MethodKeyword  = "keyword"
)

// Detection is the outcome of vendor identification for one page.
type Detection struct {
	Vendor     string // canonical name, empty when unidentified
	Confidence float64
	Method     string
	Template   *Template // non-nil when a template matched or is known for the vendor
}

// Detector resolves the issuing vendor of a page. Detection sources in trust
// order: filename hint, logo template match, template aliases, logo text
// keywords, then generic keywords through the normalizer.
type Detector struct {
	templates  []*Template
	normalizer *refdata.Normalizer

	logoEnabled      bool
	defaultThreshold float64

	// Generic OCR keywords mapped through the normalizer as a last resort.
	genericKeywords []string
}

// NewDetector builds a detector over the given templates and normalizer.
func NewDetector(templates []*Template, normalizer *refdata.Normalizer, logoEnabled bool, logoThreshold float64) *Detector {
	if logoThreshold <= 0 {
		logoThreshold = 0.85
	}
	return &Detector{
		templates:        templates,
		normalizer:       normalizer,
		logoEnabled:      logoEnabled,
		defaultThreshold: logoThreshold,
		genericKeywords: []string{
			"WASTE MANAGEMENT", "REPUBLIC", "LEWISVILLE", "LONE STAR", "BIG CITY",
		},
	}
}

// Detect identifies the vendor for one page. filenameVendor is the raw
// vendor component from the filename (may be empty), img the page bitmap
// (may be nil), and allow an optional set of acceptable canonical names.
func (d *Detector) Detect(text, filenameVendor string, img image.Image, allow map[string]bool) Detection {
	// 1. Filename hint is authoritative: operators name files deliberately.
	if filenameVendor != "" {
		canonical := d.normalizer.NormalizeVendor(filenameVendor)
		if allowed(canonical, allow) {
			logging.VendorDebug("vendor from filename: %s", canonical)
			return Detection{Vendor: canonical, Confidence: 1.0, Method: MethodFilename, Template: d.templateFor(canonical)}
		}
	}

	// 2. Logo template match.
	if d.logoEnabled && img != nil {
		if det, ok := d.detectByLogo(img, allow); ok {
			return det
		}
	}

	upper := strings.ToUpper(text)

	// 3. Template aliases.
	for _, t := range d.templates {
		if !allowed(t.Vendor, allow) {
			continue
		}
		for _, alias := range t.Aliases {
			if strings.Contains(upper, strings.ToUpper(alias)) {
				logging.VendorDebug("vendor %s via alias %q", t.Vendor, alias)
				return Detection{Vendor: t.Vendor, Confidence: 0.95, Method: MethodAlias, Template: t}
			}
		}
	}

	// 4. Logo text keywords.
	for _, t := range d.templates {
		if !allowed(t.Vendor, allow) {
			continue
		}
		for _, kw := range t.LogoText {
			if containsWord(upper, strings.ToUpper(kw)) {
				logging.VendorDebug("vendor %s via logo text %q", t.Vendor, kw)
				return Detection{Vendor: t.Vendor, Confidence: 0.90, Method: MethodLogoText, Template: t}
			}
		}
	}

	// 5. Generic keywords through the normalizer.
	for _, kw := range d.genericKeywords {
		if strings.Contains(upper, kw) {
			canonical := d.normalizer.NormalizeVendor(kw)
			if allowed(canonical, allow) {
				logging.VendorDebug("vendor %s via generic keyword %q", canonical, kw)
				return Detection{Vendor: canonical, Confidence: 0.75, Method: MethodKeyword, Template: d.templateFor(canonical)}
			}
		}
	}

	// Unidentified pages are a warning upstream, not a hard error.
	return Detection{}
}

func (d *Detector) detectByLogo(img image.Image, allow map[string]bool) (Detection, bool) {
	timer := logging.StartTimer(logging.CategoryVendor, "Detector.detectByLogo")
	defer timer.Stop()

	var best Detection
	for _, t := range d.templates {
		if t.logo == nil || !allowed(t.Vendor, allow) {
			continue
		}
		threshold := t.MatchThreshold
		if threshold <= 0 {
			threshold = d.defaultThreshold
		}
		score := matchLogo(t, img)
		if score >= threshold && score > best.Confidence {
			best = Detection{Vendor: t.Vendor, Confidence: score, Method: MethodLogo, Template: t}
		}
	}
	return best, best.Vendor != ""
}

// TemplateFor returns the template for a canonical vendor name, or nil.
func (d *Detector) TemplateFor(vendor string) *Template {
	return d.templateFor(vendor)
}

func (d *Detector) templateFor(vendor string) *Template {
	for _, t := range d.templates {
		if t.Vendor == vendor {
			return t
		}
	}
	return nil
}

func allowed(vendor string, allow map[string]bool) bool {
	if vendor == "" {
		return false
	}
	if len(allow) == 0 {
		return true
	}
	return allow[vendor]
}

// containsWord reports whether text contains kw bounded by non-alphanumerics,
// so "WM" does not fire inside "SWMU".
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isAlnum(text[start-1])
		afterOK := end == len(text) || !isAlnum(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
