package config

// PipelineConfig configures per-page extraction and validation defaults.
type PipelineConfig struct {
	// Default job code assigned when the filename carries no job hint.
	JobCode string `yaml:"job_code" json:"job_code"`

	// Default ticket type (EXPORT, IMPORT, TRANSFER).
	TicketTypeName string `yaml:"ticket_type_name" json:"ticket_type_name"`

	// Rolling window for ticket duplicate detection.
	DuplicateWindowDays int `yaml:"duplicate_window_days" json:"duplicate_window_days"`

	// Whole-file SHA-256 duplicate check before any OCR.
	CheckDuplicateFiles bool `yaml:"check_duplicate_files" json:"check_duplicate_files"`

	// Material assigned when none can be determined. The safe default is
	// CLASS_2_CONTAMINATED so unknown loads fall under manifest scrutiny.
	DefaultMaterial string `yaml:"default_material" json:"default_material"`

	// Path to the synonyms dictionary (yaml). Empty = built-in defaults.
	SynonymsPath string `yaml:"synonyms_path" json:"synonyms_path"`

	// Path to the vendor templates file (yaml). Empty = built-in defaults.
	VendorTemplatesPath string `yaml:"vendor_templates_path" json:"vendor_templates_path"`

	// Logo template matching against page images.
	EnableLogoDetection bool    `yaml:"enable_logo_detection" json:"enable_logo_detection"`
	LogoMatchThreshold  float64 `yaml:"logo_match_threshold" json:"logo_match_threshold"`

	// Pages below this overall confidence get an advisory review entry.
	MinPageConfidence float64 `yaml:"min_page_confidence" json:"min_page_confidence"`
}
