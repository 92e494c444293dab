// ticketflow ingests scanned truck tickets: OCR, field extraction, manifest
// validation, duplicate detection, and SQLite persistence, with exports for
// the tracking workbook, invoicing, and the regulatory manifest log.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ticketflow/internal/config"
	"ticketflow/internal/logging"
	"ticketflow/internal/refdata"
	"ticketflow/internal/store"
)

var (
	// Global flags
	cfgPath   string
	dbPath    string
	verbose   bool
	operator  string
	workspace string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ticketflow",
	Short: "Truck ticket ingestion and reporting",
	Long: `ticketflow turns scanned disposal tickets (PDF and image files) into
structured records: OCR, vendor identification, field extraction, manifest
validation, and duplicate detection, persisted to SQLite. Pages that cannot
be trusted land in a review queue instead of the ticket table.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfgPath == "" {
			cfgPath = filepath.Join(".ticketflow", "config.yaml")
		}
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
			cfg.Database.URL = ""
		}
		if operator == "" {
			operator = os.Getenv("USER")
		}
		if workspace != "" {
			if err := logging.Initialize(workspace); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
}

// openStore opens the configured database and seeds the built-in reference
// data so a fresh install works without a separate setup step.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Seed(cmd.Context(), refdata.DefaultSeed()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default .ticketflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&operator, "operator", "", "operator name recorded on runs (default $USER)")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "", "workspace dir for category log files (off when empty)")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
