package config

// ExportConfig toggles the derived artifacts written after a batch.
type ExportConfig struct {
	OutputDir   string `yaml:"output_dir" json:"output_dir"`
	Workbook    bool   `yaml:"workbook" json:"workbook"`
	InvoiceCSV  bool   `yaml:"invoice_csv" json:"invoice_csv"`
	ManifestCSV bool   `yaml:"manifest_csv" json:"manifest_csv"`
	ReviewCSV   bool   `yaml:"review_csv" json:"review_csv"`
	ReviewJSON  bool   `yaml:"review_json" json:"review_json"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
}
