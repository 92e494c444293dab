package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticketflow/internal/logging"
)

// Run statuses. A run starts IN_PROGRESS and ends in exactly one terminal
// state; terminal rows never change again.
const (
	RunInProgress = "IN_PROGRESS"
	RunCompleted  = "COMPLETED"
	RunPartial    = "PARTIAL"
	RunFailed     = "FAILED"
)

// ProcessingRun is one batch invocation's audit row.
type ProcessingRun struct {
	ID          int64
	RequestGUID string
	StartedAt   time.Time
	CompletedAt *time.Time
	ProcessedBy string
	Status      string
	ConfigJSON  string

	FilesProcessed   int
	PagesProcessed   int
	TicketsCreated   int
	TicketsUpdated   int
	DuplicatesFound  int
	ReviewQueueCount int
	ErrorCount       int
}

// RunCounters is the incremental progress update applied to a live run.
type RunCounters struct {
	FilesProcessed   int
	PagesProcessed   int
	TicketsCreated   int
	TicketsUpdated   int
	DuplicatesFound  int
	ReviewQueueCount int
	ErrorCount       int
}

// StartRun opens a new IN_PROGRESS run. configJSON is the redacted config
// snapshot recorded for the audit trail.
func (s *Store) StartRun(ctx context.Context, requestGUID, processedBy, configJSON string) (*ProcessingRun, error) {
	if configJSON == "" {
		configJSON = "{}"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processing_runs (request_guid, processed_by, status, config_snapshot) VALUES (?, ?, ?, ?)",
		requestGUID, processedBy, RunInProgress, configJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(KindConflict, "run %s already exists", requestGUID)
		}
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	logging.Ledger("Run %s started by %s", requestGUID, processedBy)
	return s.runByGUIDLocked(ctx, requestGUID)
}

// UpdateRunProgress adds the counters to a live run. Terminal runs reject
// the update.
func (s *Store) UpdateRunProgress(ctx context.Context, requestGUID string, c RunCounters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE processing_runs SET
			files_processed = files_processed + ?,
			pages_processed = pages_processed + ?,
			tickets_created = tickets_created + ?,
			tickets_updated = tickets_updated + ?,
			duplicates_found = duplicates_found + ?,
			review_queue_count = review_queue_count + ?,
			error_count = error_count + ?
		WHERE request_guid = ? AND status = ?`,
		c.FilesProcessed, c.PagesProcessed, c.TicketsCreated, c.TicketsUpdated,
		c.DuplicatesFound, c.ReviewQueueCount, c.ErrorCount,
		requestGUID, RunInProgress)
	if err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(KindConflict, "run %s is not in progress", requestGUID)
	}
	return nil
}

// FinishRun moves a live run to its terminal status and stamps completion.
func (s *Store) FinishRun(ctx context.Context, requestGUID, status string) error {
	if status != RunCompleted && status != RunPartial && status != RunFailed {
		return newError(KindValidation, "invalid terminal run status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"UPDATE processing_runs SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE request_guid = ? AND status = ?",
		status, requestGUID, RunInProgress)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(KindConflict, "run %s is not in progress", requestGUID)
	}
	logging.Ledger("Run %s finished: %s", requestGUID, status)
	return nil
}

// RunByGUID returns one run, or a KindNotFound error.
func (s *Store) RunByGUID(ctx context.Context, requestGUID string) (*ProcessingRun, error) {
	return s.runByGUIDLocked(ctx, requestGUID)
}

func (s *Store) runByGUIDLocked(ctx context.Context, requestGUID string) (*ProcessingRun, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM processing_runs WHERE request_guid = ?", requestGUID))
	if err == sql.ErrNoRows {
		return nil, newError(KindNotFound, "run %s not found", requestGUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return r, nil
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]ProcessingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRuns(ctx,
		"SELECT "+runColumns+" FROM processing_runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
}

// RunsByStatus returns runs in one status, newest first.
func (s *Store) RunsByStatus(ctx context.Context, status string) ([]ProcessingRun, error) {
	return s.queryRuns(ctx,
		"SELECT "+runColumns+" FROM processing_runs WHERE status = ? ORDER BY started_at DESC, id DESC", status)
}

// RunsByUser returns runs recorded under one operator, newest first.
func (s *Store) RunsByUser(ctx context.Context, processedBy string) ([]ProcessingRun, error) {
	return s.queryRuns(ctx,
		"SELECT "+runColumns+" FROM processing_runs WHERE processed_by = ? ORDER BY started_at DESC, id DESC", processedBy)
}

// CleanupOldRuns deletes terminal runs older than the cutoff and returns
// how many went. Live runs are never touched.
func (s *Store) CleanupOldRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM processing_runs WHERE status != ? AND started_at < ?",
		RunInProgress, olderThan.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Ledger("Cleaned up %d old runs", n)
	}
	return n, nil
}

// RunStatistics aggregates the ledger for the stats command.
type RunStatistics struct {
	TotalRuns       int64
	CompletedRuns   int64
	PartialRuns     int64
	FailedRuns      int64
	InProgressRuns  int64
	TotalFiles      int64
	TotalPages      int64
	TotalTickets    int64
	TotalDuplicates int64
	TotalReviews    int64
	TotalErrors     int64
}

// Statistics aggregates all runs.
func (s *Store) Statistics(ctx context.Context) (*RunStatistics, error) {
	var st RunStatistics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'PARTIAL' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'FAILED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'IN_PROGRESS' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(files_processed), 0),
			COALESCE(SUM(pages_processed), 0),
			COALESCE(SUM(tickets_created), 0),
			COALESCE(SUM(duplicates_found), 0),
			COALESCE(SUM(review_queue_count), 0),
			COALESCE(SUM(error_count), 0)
		FROM processing_runs`).
		Scan(&st.TotalRuns, &st.CompletedRuns, &st.PartialRuns, &st.FailedRuns, &st.InProgressRuns,
			&st.TotalFiles, &st.TotalPages, &st.TotalTickets, &st.TotalDuplicates, &st.TotalReviews, &st.TotalErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate runs: %w", err)
	}
	return &st, nil
}

const runColumns = `id, request_guid, started_at, completed_at, processed_by, status, config_snapshot,
	files_processed, pages_processed, tickets_created, tickets_updated,
	duplicates_found, review_queue_count, error_count`

func scanRun(row rowScanner) (*ProcessingRun, error) {
	var r ProcessingRun
	var started, completed sql.NullTime
	err := row.Scan(&r.ID, &r.RequestGUID, &started, &completed, &r.ProcessedBy, &r.Status, &r.ConfigJSON,
		&r.FilesProcessed, &r.PagesProcessed, &r.TicketsCreated, &r.TicketsUpdated,
		&r.DuplicatesFound, &r.ReviewQueueCount, &r.ErrorCount)
	if err != nil {
		return nil, err
	}
	r.StartedAt = started.Time
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...interface{}) ([]ProcessingRun, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []ProcessingRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
