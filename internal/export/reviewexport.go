package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"ticketflow/internal/logging"
	"ticketflow/internal/store"
)

const (
	reviewCSVFile  = "review_queue.csv"
	reviewJSONFile = "review_queue.json"
)

// ReviewCSV writes the unresolved review queue as a worksheet, CRITICAL
// entries first so the operator works top to bottom.
func (e *Exporter) ReviewCSV(ctx context.Context) (string, error) {
	entries, err := e.store.ListReviewEntries(ctx, store.ReviewFilter{})
	if err != nil {
		return "", err
	}

	rows := [][]string{{
		"severity", "reason", "file", "page", "ticket_id", "detected_fields", "created_at",
	}}
	for _, en := range entries {
		ticketID := ""
		if en.TicketID != nil {
			ticketID = strconv.FormatInt(*en.TicketID, 10)
		}
		detected := ""
		if len(en.DetectedFields) > 0 {
			if b, err := json.Marshal(en.DetectedFields); err == nil {
				detected = string(b)
			}
		}
		rows = append(rows, []string{
			string(en.Severity),
			string(en.Reason),
			en.FilePath,
			strconv.Itoa(en.PageNum),
			ticketID,
			detected,
			en.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return e.writeCSV(reviewCSVFile, ',', rows)
}

// ReviewJSON writes the same queue as indented JSON for tooling.
func (e *Exporter) ReviewJSON(ctx context.Context) (string, error) {
	entries, err := e.store.ListReviewEntries(ctx, store.ReviewFilter{})
	if err != nil {
		return "", err
	}
	path, err := e.outPath(reviewJSONFile)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode review queue: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Export("Wrote %s (%d entries)", path, len(entries))
	return path, nil
}
