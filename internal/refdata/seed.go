package refdata

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SeedSet is the idempotent reference-data payload applied at install time
// and before each run. Rows are matched by their unique name (or code for
// jobs); existing rows are left untouched.
type SeedSet struct {
	Jobs         []Job
	Materials    []Material
	Sources      []Source
	Destinations []Destination
	Vendors      []Vendor
	TicketTypes  []TicketType
}

// seedFile is the on-disk yaml shape for operator-supplied seed data.
type seedFile struct {
	Jobs []struct {
		Code      string `yaml:"code"`
		Name      string `yaml:"name"`
		StartDate string `yaml:"start_date"`
		EndDate   string `yaml:"end_date"`
	} `yaml:"jobs"`
	Materials []struct {
		Name             string `yaml:"name"`
		Class            string `yaml:"class"`
		RequiresManifest bool   `yaml:"requires_manifest"`
	} `yaml:"materials"`
	Sources []struct {
		Name        string `yaml:"name"`
		JobCode     string `yaml:"job_code"`
		Description string `yaml:"description"`
	} `yaml:"sources"`
	Destinations []struct {
		Name             string `yaml:"name"`
		FacilityType     string `yaml:"facility_type"`
		Address          string `yaml:"address"`
		RequiresManifest bool   `yaml:"requires_manifest"`
	} `yaml:"destinations"`
	Vendors []struct {
		Name        string `yaml:"name"`
		Code        string `yaml:"code"`
		ContactInfo string `yaml:"contact_info"`
	} `yaml:"vendors"`
	TicketTypes []struct {
		Name string `yaml:"name"`
	} `yaml:"ticket_types"`
}

// LoadSeedFile parses an operator seed file. Dates use YYYY-MM-DD.
func LoadSeedFile(path string) (*SeedSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	set := &SeedSet{}
	for _, j := range sf.Jobs {
		start, err := parseSeedDate(j.StartDate)
		if err != nil {
			return nil, fmt.Errorf("job %s: bad start_date: %w", j.Code, err)
		}
		end, err := parseSeedDate(j.EndDate)
		if err != nil {
			return nil, fmt.Errorf("job %s: bad end_date: %w", j.Code, err)
		}
		set.Jobs = append(set.Jobs, Job{Code: j.Code, Name: j.Name, StartDate: start, EndDate: end})
	}
	for _, m := range sf.Materials {
		set.Materials = append(set.Materials, Material{
			Name:             m.Name,
			Class:            MaterialClass(m.Class),
			RequiresManifest: m.RequiresManifest,
		})
	}
	for _, s := range sf.Sources {
		set.Sources = append(set.Sources, Source{Name: s.Name, Description: s.Description})
	}
	for _, d := range sf.Destinations {
		set.Destinations = append(set.Destinations, Destination{
			Name:             d.Name,
			FacilityType:     d.FacilityType,
			Address:          d.Address,
			RequiresManifest: d.RequiresManifest,
		})
	}
	for _, v := range sf.Vendors {
		set.Vendors = append(set.Vendors, Vendor{Name: v.Name, Code: v.Code, ContactInfo: v.ContactInfo})
	}
	for _, tt := range sf.TicketTypes {
		set.TicketTypes = append(set.TicketTypes, TicketType{Name: tt.Name})
	}
	return set, nil
}

func parseSeedDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// DefaultSeed returns the built-in reference data for the 24-105 deployment.
// Manifest requirements are encoded here, on the reference rows, rather than
// in validator code: WASTE_MANAGEMENT_LEWISVILLE requires manifests for every
// load regardless of material class.
func DefaultSeed() *SeedSet {
	return &SeedSet{
		Jobs: []Job{
			{
				Code:      "24-105",
				Name:      "Southgate Plaza Redevelopment",
				StartDate: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			},
		},
		Materials: []Material{
			{Name: "CLASS_2_CONTAMINATED", Class: MaterialContaminated, RequiresManifest: true},
			{Name: "CONTAMINATED_SOIL", Class: MaterialContaminated, RequiresManifest: true},
			{Name: "HAZARDOUS", Class: MaterialContaminated, RequiresManifest: true},
			{Name: "NON_CONTAMINATED", Class: MaterialClean, RequiresManifest: false},
			{Name: "SPOILS", Class: MaterialSpoils, RequiresManifest: false},
			{Name: "IMPORT_FILL", Class: MaterialImport, RequiresManifest: false},
			{Name: "FLEX_BASE", Class: MaterialImport, RequiresManifest: false},
			{Name: "GENERAL_WASTE", Class: MaterialWaste, RequiresManifest: false},
		},
		Sources: []Source{
			{Name: "SPG", Description: "Southgate Plaza garage excavation"},
			{Name: "NORTH_PIT", Description: "North retention pit"},
			{Name: "SOUTH_PIT", Description: "South retention pit"},
			{Name: "MAIN_SITE", Description: "Main site grading"},
			{Name: "LAYDOWN_YARD", Description: "Laydown yard"},
		},
		Destinations: []Destination{
			{Name: "WASTE_MANAGEMENT_LEWISVILLE", FacilityType: "LANDFILL", Address: "1600 Railroad St, Lewisville, TX", RequiresManifest: true},
			{Name: "DFW_LANDFILL", FacilityType: "LANDFILL", Address: "1195 S Railroad St, Lewisville, TX", RequiresManifest: false},
			{Name: "CAMELOT_LANDFILL", FacilityType: "LANDFILL", Address: "580 Huffines Blvd, Lewisville, TX", RequiresManifest: false},
			{Name: "ONSITE_STOCKPILE", FacilityType: "STOCKPILE", Address: "", RequiresManifest: false},
		},
		Vendors: []Vendor{
			{Name: "WASTE_MANAGEMENT", Code: "WM", ContactInfo: ""},
			{Name: "WASTE_MANAGEMENT_LEWISVILLE", Code: "WML", ContactInfo: ""},
			{Name: "REPUBLIC_SERVICES", Code: "RS", ContactInfo: ""},
			{Name: "LONE_STAR_TRUCKING", Code: "LST", ContactInfo: ""},
			{Name: "BIG_CITY_CRUSHED_CONCRETE", Code: "BCCC", ContactInfo: ""},
		},
		TicketTypes: []TicketType{
			{Name: "EXPORT"},
			{Name: "IMPORT"},
			{Name: "TRANSFER"},
		},
	}
}
