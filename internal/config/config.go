// Package config holds all ticketflow configuration, loaded from
// ticketflow.yaml with environment-variable overrides for database
// credentials. A serialized snapshot of the effective config is attached to
// every processing run for audit.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all ticketflow configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	// Pipeline defaults (job, ticket type, material policy)
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`

	// OCR engine and rasterization
	OCR OCRConfig `yaml:"ocr" json:"ocr"`

	// Batch orchestration
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Database connection
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Export artifacts
	Export ExportConfig `yaml:"export" json:"export"`

	// Logging
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ticketflow",
		Version: "1.0.0",

		Pipeline: PipelineConfig{
			JobCode:             "24-105",
			TicketTypeName:      "EXPORT",
			DuplicateWindowDays: 120,
			CheckDuplicateFiles: true,
			DefaultMaterial:     "CLASS_2_CONTAMINATED",
			SynonymsPath:        "",
			VendorTemplatesPath: "",
			EnableLogoDetection: false,
			LogoMatchThreshold:  0.85,
			MinPageConfidence:   0.0,
		},

		OCR: OCRConfig{
			Engine:            "tesseract",
			PDFDPI:            300,
			OrientationMethod: "tesseract",
			CacheSize:         256,
			Preflight: PreflightConfig{
				Enabled:           false,
				DPIThreshold:      150,
				MinChars:          20,
				BlankStdThreshold: 8.0,
				MinResolution:     600,
			},
		},

		Batch: BatchConfig{
			MaxWorkers:         0, // 0 = host CPU count
			ChunkSize:          10,
			TimeoutPerFile:     "300s",
			RetryAttempts:      2,
			ContinueOnError:    true,
			RollbackOnCritical: true,
			FilePattern:        "*.pdf",
		},

		Database: DatabaseConfig{
			Path: "data/ticketflow.db",
		},

		Export: ExportConfig{
			OutputDir:   "exports",
			Workbook:    true,
			InvoiceCSV:  true,
			ManifestCSV: true,
			ReviewCSV:   true,
			ReviewJSON:  false,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Snapshot returns the JSON serialization stored on each processing run.
// Credentials are redacted before serialization.
func (c *Config) Snapshot() (string, error) {
	redacted := *c
	redacted.Database.Password = ""
	data, err := json.Marshal(&redacted)
	if err != nil {
		return "", fmt.Errorf("failed to snapshot config: %w", err)
	}
	return string(data), nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TICKETFLOW_DB_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("TICKETFLOW_DB_SERVER"); v != "" {
		c.Database.Server = v
	}
	if v := os.Getenv("TICKETFLOW_DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("TICKETFLOW_DB_USERNAME"); v != "" {
		c.Database.Username = v
	}
	if v := os.Getenv("TICKETFLOW_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("TICKETFLOW_DB_PATH"); v != "" {
		c.Database.Path = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Pipeline.DuplicateWindowDays <= 0 {
		return fmt.Errorf("pipeline.duplicate_window_days must be positive, got %d", c.Pipeline.DuplicateWindowDays)
	}
	if c.OCR.PDFDPI < 72 {
		return fmt.Errorf("ocr.pdf_dpi must be at least 72, got %d", c.OCR.PDFDPI)
	}
	switch c.OCR.Engine {
	case "tesseract", "easyocr", "doctr", "fallback":
	default:
		return fmt.Errorf("unknown ocr.engine %q (want tesseract, easyocr, doctr, or fallback)", c.OCR.Engine)
	}
	switch c.OCR.OrientationMethod {
	case "tesseract", "doctr", "none":
	default:
		return fmt.Errorf("unknown ocr.orientation_method %q (want tesseract, doctr, or none)", c.OCR.OrientationMethod)
	}
	if c.Batch.RetryAttempts < 0 {
		return fmt.Errorf("batch.retry_attempts must not be negative, got %d", c.Batch.RetryAttempts)
	}
	if c.Batch.MaxWorkers < 0 {
		return fmt.Errorf("batch.max_workers must not be negative, got %d", c.Batch.MaxWorkers)
	}
	if _, err := c.Batch.FileTimeout(); err != nil {
		return fmt.Errorf("invalid batch.timeout_per_file: %w", err)
	}
	if c.Database.Path == "" && c.Database.URL == "" && c.Database.Server == "" {
		return fmt.Errorf("no database configured (need database.path, database.url, or database.server)")
	}
	if c.Pipeline.EnableLogoDetection && (c.Pipeline.LogoMatchThreshold <= 0 || c.Pipeline.LogoMatchThreshold > 1) {
		return fmt.Errorf("pipeline.logo_match_threshold must be in (0, 1], got %v", c.Pipeline.LogoMatchThreshold)
	}
	return nil
}
