package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ticketflow/internal/export"
)

var (
	exportJob  string
	exportFrom string
	exportTo   string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the tracking workbook and reports",
	Long: `Write the reports enabled in config (tracking workbook sheets, invoice
reconciliation CSV, manifest log, review queue) for one job and date range.
Dates use YYYY-MM-DD; the range defaults to the last 30 days.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := exportRange()
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		outDir := exportOut
		if outDir == "" {
			outDir = cfg.Export.OutputDir
		}
		e, err := export.New(s, outDir)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var written []string

		if cfg.Export.Workbook {
			paths, err := e.Workbook(ctx, exportJob, from, to)
			if err != nil {
				return err
			}
			written = append(written, paths...)
		}
		if cfg.Export.InvoiceCSV {
			p, err := e.InvoiceCSV(ctx, exportJob, from, to)
			if err != nil {
				return err
			}
			written = append(written, p)
		}
		if cfg.Export.ManifestCSV {
			p, err := e.ManifestLog(ctx, exportJob, from, to)
			if err != nil {
				return err
			}
			written = append(written, p)
		}
		if cfg.Export.ReviewCSV {
			p, err := e.ReviewCSV(ctx)
			if err != nil {
				return err
			}
			written = append(written, p)
		}
		if cfg.Export.ReviewJSON {
			p, err := e.ReviewJSON(ctx)
			if err != nil {
				return err
			}
			written = append(written, p)
		}

		if len(written) == 0 {
			return fmt.Errorf("all exports are disabled in config")
		}
		for _, p := range written {
			fmt.Println(p)
		}
		return nil
	},
}

// exportRange parses --from/--to, defaulting to the trailing 30 days.
func exportRange() (time.Time, time.Time, error) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)
	var err error
	if exportTo != "" {
		to, err = time.Parse("2006-01-02", exportTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --to date %q", exportTo)
		}
	}
	if exportFrom != "" {
		from, err = time.Parse("2006-01-02", exportFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --from date %q", exportFrom)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}
	return from, to, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportJob, "job", "", "job code, e.g. 24-105")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "end date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default from config)")
	_ = exportCmd.MarkFlagRequired("job")
}
