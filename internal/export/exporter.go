package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ticketflow/internal/logging"
	"ticketflow/internal/refdata"
	"ticketflow/internal/store"
)

// Exporter writes report files under one output directory. File names are
// fixed; the directory is the operator's choice.
type Exporter struct {
	store  *store.Store
	outDir string
}

// New builds an exporter rooted at outDir, creating it if needed. Paths
// that resolve outside the directory are rejected at write time.
func New(s *store.Store, outDir string) (*Exporter, error) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Exporter{store: s, outDir: abs}, nil
}

// outPath joins a report name onto the output directory, refusing anything
// that would escape it.
func (e *Exporter) outPath(name string) (string, error) {
	p := filepath.Join(e.outDir, name)
	if !strings.HasPrefix(p, e.outDir+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing export path outside %s: %s", e.outDir, name)
	}
	return p, nil
}

func (e *Exporter) writeCSV(name string, comma rune, rows [][]string) (string, error) {
	path, err := e.outPath(name)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	logging.Export("Wrote %s (%d rows)", path, len(rows))
	return path, nil
}

// loadJob resolves the job row the reports are scoped to.
func (e *Exporter) loadJob(ctx context.Context, jobCode string) (*refdata.Job, error) {
	job, err := e.store.JobByCode(ctx, jobCode)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("unknown job %q", jobCode)
	}
	return job, nil
}

func fmtQty(q float64) string {
	return fmt.Sprintf("%.2f", q)
}

func fmtDate(d time.Time) string {
	return d.Format("2006-01-02")
}
