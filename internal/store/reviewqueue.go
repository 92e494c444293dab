package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ticketflow/internal/logging"
	"ticketflow/internal/review"
)

// AddReviewEntry persists one review-queue entry. The detected fields and
// suggested fixes are stored as JSON blobs for the operator tooling.
func (s *Store) AddReviewEntry(ctx context.Context, e *review.Entry) (int64, error) {
	detected, err := marshalFields(e.DetectedFields)
	if err != nil {
		return 0, fmt.Errorf("failed to encode detected fields: %w", err)
	}
	fixes, err := marshalFields(e.SuggestedFixes)
	if err != nil {
		return 0, fmt.Errorf("failed to encode suggested fixes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO review_queue (ticket_id, page_id, reason, severity, file_path, page_num, detected_fields, suggested_fixes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TicketID, e.PageID, string(e.Reason), string(e.Severity), e.FilePath, e.PageNum, detected, fixes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert review entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read review entry id: %w", err)
	}
	logging.Review("Review entry #%d: %s %s page=%s", id, e.Severity, e.Reason, e.PageID)
	return id, nil
}

// ReviewFilter narrows ListReviewEntries. Zero fields are not applied.
type ReviewFilter struct {
	Severity        review.Severity
	Reason          review.Reason
	IncludeResolved bool
	Limit           int
}

// ListReviewEntries returns queue entries ordered by severity (CRITICAL
// first), then oldest first.
func (s *Store) ListReviewEntries(ctx context.Context, f ReviewFilter) ([]review.Entry, error) {
	q := `SELECT id, ticket_id, page_id, reason, severity, file_path, page_num,
		detected_fields, suggested_fixes, resolved, resolved_by, resolved_at, created_at
		FROM review_queue WHERE 1=1`
	var args []interface{}

	if !f.IncludeResolved {
		q += " AND resolved = 0"
	}
	if f.Severity != "" {
		q += " AND severity = ?"
		args = append(args, string(f.Severity))
	}
	if f.Reason != "" {
		q += " AND reason = ?"
		args = append(args, string(f.Reason))
	}
	q += ` ORDER BY CASE severity WHEN 'CRITICAL' THEN 0 WHEN 'WARNING' THEN 1 ELSE 2 END, created_at ASC, id ASC`
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer rows.Close()

	var out []review.Entry
	for rows.Next() {
		var e review.Entry
		var ticketID sql.NullInt64
		var reason, severity string
		var detected, fixes string
		var resolvedBy sql.NullString
		var resolvedAt, createdAt sql.NullTime
		err := rows.Scan(&e.ID, &ticketID, &e.PageID, &reason, &severity, &e.FilePath, &e.PageNum,
			&detected, &fixes, &e.Resolved, &resolvedBy, &resolvedAt, &createdAt)
		if err != nil {
			return nil, err
		}
		if ticketID.Valid {
			e.TicketID = &ticketID.Int64
		}
		e.Reason = review.Reason(reason)
		e.Severity = review.Severity(severity)
		e.DetectedFields = unmarshalFields(detected)
		e.SuggestedFixes = unmarshalFields(fixes)
		e.ResolvedBy = resolvedBy.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			e.ResolvedAt = &t
		}
		e.CreatedAt = createdAt.Time
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResolveReviewEntry marks an entry handled and records who did it.
func (s *Store) ResolveReviewEntry(ctx context.Context, id int64, resolvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"UPDATE review_queue SET resolved = 1, resolved_by = ?, resolved_at = CURRENT_TIMESTAMP WHERE id = ? AND resolved = 0",
		resolvedBy, id)
	if err != nil {
		return fmt.Errorf("failed to resolve review entry %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(KindNotFound, "review entry %d not found or already resolved", id)
	}
	return nil
}

// CountUnresolvedReviews returns unresolved entries grouped by severity.
func (s *Store) CountUnresolvedReviews(ctx context.Context) (map[review.Severity]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT severity, COUNT(*) FROM review_queue WHERE resolved = 0 GROUP BY severity")
	if err != nil {
		return nil, fmt.Errorf("failed to count review queue: %w", err)
	}
	defer rows.Close()

	out := make(map[review.Severity]int64)
	for rows.Next() {
		var sev string
		var n int64
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, err
		}
		out[review.Severity(sev)] = n
	}
	return out, rows.Err()
}

func marshalFields(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalFields(s string) map[string]any {
	if s == "" || s == "{}" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}
