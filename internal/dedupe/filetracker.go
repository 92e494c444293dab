package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"ticketflow/internal/logging"
	"ticketflow/internal/store"
)

const hashChunkSize = 8 * 1024

// FileDuplicate reports a previously ingested copy of a file.
type FileDuplicate struct {
	OriginalPath string
	ProcessedAt  time.Time
	RequestGUID  string
	Tickets      []store.TruckTicket // what the first copy produced
}

// FileTracker short-circuits whole files that were already processed,
// keyed by content hash so renames do not defeat it.
type FileTracker struct {
	store *store.Store
}

// NewFileTracker wraps a store.
func NewFileTracker(s *store.Store) *FileTracker {
	return &FileTracker{store: s}
}

// HashFile computes the SHA-256 of a file in fixed-size chunks, so large
// scan batches never load fully into memory.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Check hashes the file and reports whether that content was already
// ingested. The hash is returned either way so the caller can record it
// after processing.
func (t *FileTracker) Check(ctx context.Context, path string) (string, *FileDuplicate, error) {
	hash, err := HashFile(path)
	if err != nil {
		return "", nil, err
	}

	prior, err := t.store.FileByHash(ctx, hash)
	if err != nil {
		return hash, nil, err
	}
	if prior == nil {
		return hash, nil, nil
	}

	tickets, err := t.store.TicketsByFileHash(ctx, hash)
	if err != nil {
		return hash, nil, err
	}
	logging.Dedupe("File %s matches already-processed %s (%d tickets)", path, prior.FilePath, len(tickets))
	return hash, &FileDuplicate{
		OriginalPath: prior.FilePath,
		ProcessedAt:  prior.ProcessedAt,
		RequestGUID:  prior.RequestGUID,
		Tickets:      tickets,
	}, nil
}

// Record remembers a file's content hash after successful processing.
func (t *FileTracker) Record(ctx context.Context, hash, path, requestGUID string) error {
	return t.store.RecordProcessedFile(ctx, hash, path, requestGUID)
}
