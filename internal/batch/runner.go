// Package batch orchestrates multi-file ingestion runs: input discovery, a
// bounded worker pool, per-file retries and timeouts, progress reporting, and
// the processing-run ledger entry that audits every invocation.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ticketflow/internal/config"
	"ticketflow/internal/logging"
	"ticketflow/internal/ocr"
	"ticketflow/internal/pipeline"
	"ticketflow/internal/store"
)

// Progress is a point-in-time view of a running batch, delivered to the
// OnProgress callback after each file.
type Progress struct {
	FilesTotal int
	FilesDone  int

	Created    int
	Duplicates int
	Reviews    int
	Skipped    int
	Errors     int

	CurrentFile string
}

// Summary is the terminal state of a batch run.
type Summary struct {
	RequestGUID string
	Status      string
	Duration    time.Duration

	FilesProcessed int
	PagesProcessed int
	Created        int
	Duplicates     int
	Reviews        int
	Skipped        int
	Errors         int

	FailedFiles []string
}

// Runner drives one or more batch runs over a shared pipeline and store.
type Runner struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *pipeline.Pipeline
	operator string

	// OnProgress, when set, is called after every finished file. It runs
	// on a worker goroutine and must be fast.
	OnProgress func(Progress)
}

// NewRunner builds a batch runner.
func NewRunner(cfg *config.Config, s *store.Store, p *pipeline.Pipeline, operator string) *Runner {
	return &Runner{cfg: cfg, store: s, pipeline: p, operator: operator}
}

// DiscoverFiles expands the input arguments into a sorted list of
// processable files. Directories are searched one level deep with the
// configured glob pattern; explicit file arguments are taken as-is when
// their extension is recognized.
func DiscoverFiles(inputs []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input %s: %w", in, err)
		}
		if !info.IsDir() {
			if ocr.AcceptedExtensions[strings.ToLower(filepath.Ext(in))] {
				add(in)
			}
			continue
		}
		matches, err := filepath.Glob(filepath.Join(in, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && !fi.IsDir() &&
				ocr.AcceptedExtensions[strings.ToLower(filepath.Ext(m))] {
				add(m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run processes the inputs under one ledger entry and returns the summary.
// Page-level problems land in the review queue and never abort the run;
// file-level failures retry, then either skip (continue_on_error) or cancel
// the remaining work.
func (r *Runner) Run(ctx context.Context, inputs []string) (*Summary, error) {
	timer := logging.StartTimer(logging.CategoryBatch, "Runner.Run")
	defer timer.StopWithInfo()

	files, err := DiscoverFiles(inputs, r.cfg.Batch.FilePattern)
	if err != nil {
		return nil, err
	}

	fileTimeout, err := r.cfg.Batch.FileTimeout()
	if err != nil {
		return nil, fmt.Errorf("bad timeout_per_file: %w", err)
	}

	requestGUID := uuid.NewString()
	snapshot, err := r.cfg.Snapshot()
	if err != nil {
		return nil, err
	}
	if _, err := r.store.StartRun(ctx, requestGUID, r.operator, snapshot); err != nil {
		return nil, err
	}

	// An empty enumeration is a successful no-op run, not a failure; the
	// ledger still records the invocation.
	if len(files) == 0 {
		sum := &Summary{RequestGUID: requestGUID, Status: store.RunCompleted}
		if err := r.store.FinishRun(context.Background(), requestGUID, sum.Status); err != nil {
			logging.Get(logging.CategoryBatch).Warn("Failed to finish run %s: %v", requestGUID, err)
		}
		logging.Batch("Run %s %s: no processable files in %s", requestGUID, sum.Status, strings.Join(inputs, ", "))
		return sum, nil
	}

	workers := r.cfg.Batch.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}
	logging.Batch("Run %s: %d files, %d workers, timeout %s", requestGUID, len(files), workers, fileTimeout)

	start := time.Now()
	sum := &Summary{RequestGUID: requestGUID}
	var mu sync.Mutex

	chunk := r.cfg.Batch.ChunkSize
	if chunk <= 0 {
		chunk = 10
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			res, ferr := r.processWithRetry(gctx, file, fileTimeout, requestGUID)

			mu.Lock()
			defer mu.Unlock()
			counters := store.RunCounters{FilesProcessed: 1}
			if ferr != nil {
				sum.Errors++
				sum.FailedFiles = append(sum.FailedFiles, file)
				counters.ErrorCount = 1
				logging.Get(logging.CategoryBatch).Error("File failed after retries: %s: %v", file, ferr)
				if r.cfg.Batch.RollbackOnCritical {
					if n, derr := r.store.SoftDeleteTicketsByFile(context.Background(), file); derr == nil && n > 0 {
						logging.Batch("Rolled back %d tickets from failed file %s", n, file)
					}
				}
			} else if res.SkippedDuplicate {
				sum.Skipped++
				sum.FilesProcessed++
			} else {
				sum.FilesProcessed++
				sum.PagesProcessed += len(res.Pages)
				sum.Created += res.Created
				sum.Duplicates += res.Duplicates
				sum.Reviews += res.Reviews
				counters.PagesProcessed = len(res.Pages)
				counters.TicketsCreated = res.Created
				counters.DuplicatesFound = res.Duplicates
				counters.ReviewQueueCount = res.Reviews
			}
			// Ledger updates best-effort mid-run; the terminal update is
			// authoritative.
			if uerr := r.store.UpdateRunProgress(context.Background(), requestGUID, counters); uerr != nil {
				logging.Get(logging.CategoryBatch).Warn("Failed to update run progress: %v", uerr)
			}

			done := sum.FilesProcessed + sum.Errors
			if done%chunk == 0 || done == len(files) {
				logging.Batch("Progress %d/%d: %d tickets, %d duplicates, %d review, %d errors",
					done, len(files), sum.Created, sum.Duplicates, sum.Reviews, sum.Errors)
			}
			if r.OnProgress != nil {
				r.OnProgress(Progress{
					FilesTotal: len(files), FilesDone: done,
					Created: sum.Created, Duplicates: sum.Duplicates,
					Reviews: sum.Reviews, Skipped: sum.Skipped, Errors: sum.Errors,
					CurrentFile: file,
				})
			}

			if ferr != nil && !r.cfg.Batch.ContinueOnError {
				return fmt.Errorf("file %s: %w", file, ferr)
			}
			return nil
		})
	}

	runErr := g.Wait()
	sum.Duration = time.Since(start)
	sum.Status = terminalStatus(sum, runErr)

	if err := r.store.FinishRun(context.Background(), requestGUID, sum.Status); err != nil {
		logging.Get(logging.CategoryBatch).Warn("Failed to finish run %s: %v", requestGUID, err)
	}
	hits, misses := r.pipeline.CacheStats()
	logging.Batch("Run %s %s in %s: %d tickets, %d duplicates, %d review, %d errors (OCR cache %d/%d)",
		requestGUID, sum.Status, sum.Duration.Round(time.Millisecond),
		sum.Created, sum.Duplicates, sum.Reviews, sum.Errors, hits, hits+misses)

	if runErr != nil && !r.cfg.Batch.ContinueOnError {
		return sum, runErr
	}
	return sum, nil
}

// processWithRetry gives each file its own deadline and linear backoff
// between attempts. Context cancellation is never retried.
func (r *Runner) processWithRetry(ctx context.Context, file string, timeout time.Duration, requestGUID string) (*pipeline.FileResult, error) {
	attempts := r.cfg.Batch.RetryAttempts + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fctx, cancel := context.WithTimeout(ctx, timeout)
		res, err := r.pipeline.ProcessFile(fctx, file, requestGUID)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt < attempts {
			backoff := time.Duration(attempt) * time.Second
			logging.BatchDebug("Retrying %s in %s (attempt %d/%d): %v", file, backoff, attempt+1, attempts, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// terminalStatus folds the counters into the ledger status: FAILED when not
// a single file made it through, PARTIAL when some did and some did not.
func terminalStatus(sum *Summary, runErr error) string {
	switch {
	case sum.FilesProcessed == 0 && (sum.Errors > 0 || runErr != nil):
		return store.RunFailed
	case sum.Errors > 0 || runErr != nil:
		return store.RunPartial
	default:
		return store.RunCompleted
	}
}
