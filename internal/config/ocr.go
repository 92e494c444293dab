package config

// OCRConfig selects the OCR engine and rasterization parameters.
type OCRConfig struct {
	// Engine selector: tesseract, easyocr, doctr, fallback.
	Engine string `yaml:"engine" json:"engine"`

	// Rasterization DPI for PDF pages.
	PDFDPI int `yaml:"pdf_dpi" json:"pdf_dpi"`

	// Orientation correction: tesseract, doctr, none.
	OrientationMethod string `yaml:"orientation_method" json:"orientation_method"`

	// OCR result cache entries (content-hash keyed, per process).
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// Fast per-page OCRability check.
	Preflight PreflightConfig `yaml:"preflight" json:"preflight"`
}

// PreflightConfig configures the pre-OCR page quality gate.
type PreflightConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	DPIThreshold      int     `yaml:"dpi_threshold" json:"dpi_threshold"`
	MinChars          int     `yaml:"min_chars" json:"min_chars"`
	BlankStdThreshold float64 `yaml:"blank_std_threshold" json:"blank_std_threshold"`
	MinResolution     int     `yaml:"min_resolution" json:"min_resolution"`
}
