// Package vendorid identifies the issuing vendor of a ticket page from
// filename hints, logo template matching, per-vendor alias lists, and generic
// keywords, in that order of trust.
package vendorid

import (
	"fmt"
	"image"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"ticketflow/internal/extract"
	"ticketflow/internal/logging"
)

// ROI is a region of interest expressed as fractions of the page size.
type ROI struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Template describes how one vendor's tickets look.
type Template struct {
	Vendor   string   `yaml:"vendor"`    // canonical vendor name
	Aliases  []string `yaml:"aliases"`   // substrings that identify the vendor in OCR text
	LogoText []string `yaml:"logo_text"` // words printed inside the logo block

	// Logo template matching. LogoPath points at a reference page image;
	// LogoROI is where the logo sits on both the reference and the scanned
	// page. Threshold 0 means the detector default.
	LogoPath       string  `yaml:"logo_path"`
	LogoROI        ROI     `yaml:"logo_roi"`
	MatchThreshold float64 `yaml:"match_threshold"`

	// Field extraction patterns, priority-ordered per field. Keys: ticket,
	// date, quantity, manifest, truck.
	FieldPatterns map[string][]string `yaml:"field_patterns"`

	compiled map[string][]extract.Pattern
	logo     image.Image
}

// templatesFile is the on-disk yaml shape.
type templatesFile struct {
	Templates []*Template `yaml:"templates"`
}

// LoadTemplates reads vendor templates from path, or returns the built-in
// set when path is empty. Field patterns are compiled eagerly so a bad
// pattern fails at load time, not mid-batch.
func LoadTemplates(path string) ([]*Template, error) {
	var templates []*Template
	if path == "" {
		templates = defaultTemplates()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read vendor templates: %w", err)
		}
		var tf templatesFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("failed to parse vendor templates: %w", err)
		}
		templates = tf.Templates
	}

	for _, t := range templates {
		if err := t.compile(); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Vendor, err)
		}
	}
	return templates, nil
}

func (t *Template) compile() error {
	t.compiled = make(map[string][]extract.Pattern, len(t.FieldPatterns))
	for field, exprs := range t.FieldPatterns {
		patterns := make([]extract.Pattern, 0, len(exprs))
		for i, e := range exprs {
			re, err := regexp.Compile(e)
			if err != nil {
				return fmt.Errorf("field %s pattern %d: %w", field, i+1, err)
			}
			patterns = append(patterns, extract.Pattern{Regexp: re, Priority: i + 1})
		}
		t.compiled[field] = patterns
	}

	if t.LogoPath != "" {
		img, err := loadLogoImage(t.LogoPath)
		if err != nil {
			// A missing logo reference degrades the template to text-only.
			logging.Get(logging.CategoryVendor).Warn("template %s: logo unavailable, text matching only: %v", t.Vendor, err)
		} else {
			t.logo = img
		}
	}
	return nil
}

// Patterns returns the compiled patterns for a field, or nil.
func (t *Template) Patterns(field string) []extract.Pattern {
	if t == nil || t.compiled == nil {
		return nil
	}
	return t.compiled[field]
}

// defaultTemplates is the built-in template set for the deployment's known
// haulers.
func defaultTemplates() []*Template {
	return []*Template{
		{
			Vendor:   "WASTE_MANAGEMENT",
			Aliases:  []string{"WASTE MANAGEMENT", "WM.COM", "WM NATIONAL SERVICES"},
			LogoText: []string{"WM", "THINK GREEN"},
			LogoROI:  ROI{X: 0.02, Y: 0.02, W: 0.30, H: 0.12},
			FieldPatterns: map[string][]string{
				"ticket":   {`\b(WM-\d{8})\b`, `(?i)TICKET\s*#?\s*(\d{8})`},
				"manifest": {`\b(WM-MAN-\d{4}-\d{6})\b`},
			},
		},
		{
			Vendor:   "WASTE_MANAGEMENT_LEWISVILLE",
			Aliases:  []string{"WM LEWISVILLE", "LEWISVILLE LANDFILL", "WASTE MANAGEMENT LEWISVILLE"},
			LogoText: []string{"WM", "LEWISVILLE"},
			LogoROI:  ROI{X: 0.02, Y: 0.02, W: 0.30, H: 0.12},
			FieldPatterns: map[string][]string{
				"ticket":   {`\b(WM-\d{8})\b`},
				"manifest": {`\b(WM-MAN-\d{4}-\d{6})\b`},
			},
		},
		{
			Vendor:   "REPUBLIC_SERVICES",
			Aliases:  []string{"REPUBLIC SERVICES", "REPUBLICSERVICES.COM"},
			LogoText: []string{"REPUBLIC"},
			FieldPatterns: map[string][]string{
				"ticket": {`(?i)TICKET\s*(?:NO|#)?[:.]?\s*(\d{7,10})`},
			},
		},
		{
			Vendor:   "LONE_STAR_TRUCKING",
			Aliases:  []string{"LONE STAR TRUCKING", "LONE STAR HAULING"},
			LogoText: []string{"LONE STAR"},
		},
		{
			Vendor:   "BIG_CITY_CRUSHED_CONCRETE",
			Aliases:  []string{"BIG CITY CRUSHED CONCRETE", "BIG CITY"},
			LogoText: []string{"BCCC"},
		},
	}
}
