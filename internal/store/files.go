package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticketflow/internal/logging"
)

// ProcessedFile records one ingested file by content hash, so re-submitted
// copies are skipped no matter what they are named.
type ProcessedFile struct {
	ID          int64
	FileHash    string
	FilePath    string
	RequestGUID string
	ProcessedAt time.Time
}

// RecordProcessedFile stores the hash of an ingested file. Re-recording the
// same hash is a no-op; the first sighting wins.
func (s *Store) RecordProcessedFile(ctx context.Context, fileHash, filePath, requestGUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO processed_files (file_hash, file_path, request_guid) VALUES (?, ?, ?)",
		fileHash, filePath, requestGUID)
	if err != nil {
		return fmt.Errorf("failed to record processed file: %w", err)
	}
	logging.StoreDebug("Recorded processed file %s hash=%s", filePath, fileHash)
	return nil
}

// FileByHash returns the first sighting of a content hash, or (nil, nil).
func (s *Store) FileByHash(ctx context.Context, fileHash string) (*ProcessedFile, error) {
	var f ProcessedFile
	var processed sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT id, file_hash, file_path, request_guid, processed_at FROM processed_files WHERE file_hash = ?",
		fileHash).Scan(&f.ID, &f.FileHash, &f.FilePath, &f.RequestGUID, &processed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query processed file: %w", err)
	}
	f.ProcessedAt = processed.Time
	return &f, nil
}

// TicketsByFileHash returns the tickets a previously ingested copy of the
// file produced, for the duplicate-file report.
func (s *Store) TicketsByFileHash(ctx context.Context, fileHash string) ([]TruckTicket, error) {
	return s.queryTickets(ctx,
		"SELECT "+ticketColumns+" FROM truck_tickets WHERE file_hash = ? AND deleted = 0 ORDER BY file_page ASC, id ASC",
		fileHash)
}
