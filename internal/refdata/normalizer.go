package refdata

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ticketflow/internal/logging"
)

// Synonym categories.
const (
	CategoryVendors      = "vendors"
	CategoryMaterials    = "materials"
	CategorySources      = "sources"
	CategoryDestinations = "destinations"
)

// Normalizer maps free-text surface forms to canonical identifiers using a
// static dictionary of {category: {surface -> canonical}}. Matching is
// case-insensitive exact; vendors additionally allow substring matches in
// both directions. Unmapped non-empty input passes through trimmed, never
// nil, so downstream consumers always see something usable.
type Normalizer struct {
	// lower-cased surface -> canonical, per category
	dict map[string]map[string]string
}

// synonymsFile is the on-disk yaml shape.
type synonymsFile struct {
	Vendors      map[string]string `yaml:"vendors"`
	Materials    map[string]string `yaml:"materials"`
	Sources      map[string]string `yaml:"sources"`
	Destinations map[string]string `yaml:"destinations"`
}

// NewNormalizer builds a normalizer from the dictionary file at path. An
// empty path selects the built-in dictionary. A missing or malformed file is
// logged and degrades to empty category maps.
func NewNormalizer(path string) *Normalizer {
	n := &Normalizer{dict: map[string]map[string]string{
		CategoryVendors:      {},
		CategoryMaterials:    {},
		CategorySources:      {},
		CategoryDestinations: {},
	}}

	if path == "" {
		n.load(defaultSynonyms())
		return n
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logging.Get(logging.CategoryExtract).Warn("synonyms file %s unreadable, continuing unmapped: %v", path, err)
		return n
	}
	var sf synonymsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		logging.Get(logging.CategoryExtract).Warn("synonyms file %s malformed, continuing unmapped: %v", path, err)
		return n
	}
	n.load(sf)
	return n
}

func (n *Normalizer) load(sf synonymsFile) {
	for surface, canonical := range sf.Vendors {
		n.dict[CategoryVendors][strings.ToLower(surface)] = canonical
	}
	for surface, canonical := range sf.Materials {
		n.dict[CategoryMaterials][strings.ToLower(surface)] = canonical
	}
	for surface, canonical := range sf.Sources {
		n.dict[CategorySources][strings.ToLower(surface)] = canonical
	}
	for surface, canonical := range sf.Destinations {
		n.dict[CategoryDestinations][strings.ToLower(surface)] = canonical
	}
}

// Normalize maps a surface form to its canonical identifier for the given
// category. Unknown categories and unmapped values return the trimmed input.
func (n *Normalizer) Normalize(category, surface string) string {
	trimmed := strings.TrimSpace(surface)
	if trimmed == "" {
		return ""
	}

	m, ok := n.dict[category]
	if !ok {
		return trimmed
	}

	lower := strings.ToLower(trimmed)
	if canonical, ok := m[lower]; ok {
		return canonical
	}

	// Vendors tolerate partial OCR reads: "WASTE MGMT OF TEXAS" should still
	// resolve through the "waste mgmt" key and vice versa.
	if category == CategoryVendors {
		for key, canonical := range m {
			if strings.Contains(lower, key) || strings.Contains(key, lower) {
				return canonical
			}
		}
	}

	return trimmed
}

// NormalizeVendor is shorthand for Normalize(CategoryVendors, s).
func (n *Normalizer) NormalizeVendor(s string) string {
	return n.Normalize(CategoryVendors, s)
}

// NormalizeMaterial is shorthand for Normalize(CategoryMaterials, s).
func (n *Normalizer) NormalizeMaterial(s string) string {
	return n.Normalize(CategoryMaterials, s)
}

// NormalizeSource is shorthand for Normalize(CategorySources, s).
func (n *Normalizer) NormalizeSource(s string) string {
	return n.Normalize(CategorySources, s)
}

// NormalizeDestination is shorthand for Normalize(CategoryDestinations, s).
func (n *Normalizer) NormalizeDestination(s string) string {
	return n.Normalize(CategoryDestinations, s)
}

// HasMapping reports whether the category maps the surface form to a
// canonical name (exact, case-insensitive).
func (n *Normalizer) HasMapping(category, surface string) bool {
	m, ok := n.dict[category]
	if !ok {
		return false
	}
	_, ok = m[strings.ToLower(strings.TrimSpace(surface))]
	return ok
}

// defaultSynonyms is the built-in dictionary used when no file is configured.
func defaultSynonyms() synonymsFile {
	return synonymsFile{
		Vendors: map[string]string{
			"waste management":            "WASTE_MANAGEMENT",
			"waste management lewisville": "WASTE_MANAGEMENT_LEWISVILLE",
			"wm":                          "WASTE_MANAGEMENT",
			"wm lewisville":               "WASTE_MANAGEMENT_LEWISVILLE",
			"republic services":           "REPUBLIC_SERVICES",
			"republic":                    "REPUBLIC_SERVICES",
			"lone star trucking":          "LONE_STAR_TRUCKING",
			"big city crushed concrete":   "BIG_CITY_CRUSHED_CONCRETE",
			"big city":                    "BIG_CITY_CRUSHED_CONCRETE",
		},
		Materials: map[string]string{
			"class 2":              "CLASS_2_CONTAMINATED",
			"class ii":             "CLASS_2_CONTAMINATED",
			"class 2 contaminated": "CLASS_2_CONTAMINATED",
			"contaminated":         "CLASS_2_CONTAMINATED",
			"contaminated soil":    "CONTAMINATED_SOIL",
			"hazardous":            "HAZARDOUS",
			"clean":                "NON_CONTAMINATED",
			"non-contaminated":     "NON_CONTAMINATED",
			"non contaminated":     "NON_CONTAMINATED",
			"spoils":               "SPOILS",
			"import":               "IMPORT_FILL",
			"import fill":          "IMPORT_FILL",
			"flex base":            "FLEX_BASE",
		},
		Sources: map[string]string{
			"spg":       "SPG",
			"north pit": "NORTH_PIT",
			"south pit": "SOUTH_PIT",
			"main site": "MAIN_SITE",
			"laydown":   "LAYDOWN_YARD",
		},
		Destinations: map[string]string{
			"wm lewisville":               "WASTE_MANAGEMENT_LEWISVILLE",
			"waste management lewisville": "WASTE_MANAGEMENT_LEWISVILLE",
			"lewisville landfill":         "WASTE_MANAGEMENT_LEWISVILLE",
			"dfw landfill":                "DFW_LANDFILL",
			"camelot":                     "CAMELOT_LANDFILL",
			"camelot landfill":            "CAMELOT_LANDFILL",
		},
	}
}
