package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"ticketflow/internal/logging"
	"ticketflow/internal/manifest"
	"ticketflow/internal/refdata"
	"ticketflow/internal/review"
)

// DefaultDuplicateWindow bounds how far apart two sightings of the same
// ticket number may be and still count as the same physical ticket.
const DefaultDuplicateWindow = 120 * 24 * time.Hour

// TruckTicket is one persisted ticket row.
type TruckTicket struct {
	ID            int64
	TicketNumber  string
	TicketDate    time.Time
	JobID         int64
	MaterialID    int64
	TicketTypeID  int64
	SourceID      *int64
	DestinationID *int64
	VendorID      *int64

	Quantity     float64
	QuantityUnit string

	TruckNumber    string
	ManifestNumber string

	FileID   string
	FilePage int
	FileHash string

	RequestGUID     string
	ConfidenceScore float64
	ProcessedBy     string

	ReviewRequired bool
	ReviewReason   string
	DuplicateOf    *int64
	Deleted        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpandedTicket is a ticket row joined with its reference names, for
// exports and operator listings.
type ExpandedTicket struct {
	TruckTicket

	JobCode         string
	MaterialName    string
	MaterialClass   string
	TicketTypeName  string
	SourceName      string
	DestinationName string
	VendorName      string
}

// TicketDraft is the pipeline's input to CreateTicket: canonical names, not
// row IDs. The store resolves and validates everything in one place.
type TicketDraft struct {
	TicketNumber string
	TicketDate   time.Time

	JobCode         string // resolved first; JobName is the fallback
	JobName         string
	MaterialName    string
	TicketTypeName  string
	SourceName      string
	DestinationName string
	VendorName      string

	Quantity     float64
	QuantityUnit string

	TruckNumber    string
	ManifestNumber string

	FileID   string
	FilePage int
	FileHash string

	RequestGUID     string
	ConfidenceScore float64
	ProcessedBy     string
}

// CreateOptions tunes CreateTicket. The zero value means full checks with
// the default duplicate window.
type CreateOptions struct {
	// Lookup resolves reference names; nil means the store itself. The
	// pipeline passes its per-run cache here.
	Lookup refdata.Lookup

	SkipManifestCheck  bool
	SkipDuplicateCheck bool
	DuplicateWindow    time.Duration

	// DuplicateOf inserts the row as a confirmed duplicate of an existing
	// ticket, bypassing the duplicate window check. The row always lands
	// flagged for review.
	DuplicateOf *int64
}

// CreateTicket resolves the draft's reference names, enforces the manifest
// rule, checks the duplicate window, and inserts the row, all before one
// commit. Rejections come back as *Error with the kind the pipeline maps to
// a review reason; no partial row is ever left behind.
func (s *Store) CreateTicket(ctx context.Context, draft TicketDraft, opts CreateOptions) (*TruckTicket, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Store.CreateTicket")
	defer timer.Stop()

	if strings.TrimSpace(draft.TicketNumber) == "" {
		return nil, newError(KindValidation, "ticket number is required")
	}
	if draft.TicketDate.IsZero() {
		return nil, newError(KindValidation, "ticket date is required")
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = refdata.Lookup(s)
	}

	// Resolve references before the transaction; the single SQLite
	// connection cannot serve lookups while a transaction holds it.
	refs, err := s.resolveDraft(ctx, lookup, draft)
	if err != nil {
		return nil, err
	}

	if !opts.SkipManifestCheck {
		res := manifest.Validate(manifest.Input{
			MaterialName:    draft.MaterialName,
			DestinationName: draft.DestinationName,
			ManifestNumber:  draft.ManifestNumber,
			Material:        refs.material,
			Destination:     refs.destination,
		})
		if !res.IsValid {
			if res.Severity == review.SeverityCritical {
				e := newError(KindValidation, "manifest validation failed: %s", res.Message)
				e.Manifest = &res
				return nil, e
			}
			// Malformed but present: persist, flag for review.
			refs.reviewRequired = true
			refs.reviewReason = string(res.Reason)
		}
	}

	if opts.DuplicateOf != nil {
		// Confirmed duplicates always carry the review flag; the queue
		// entry is written by the caller that confirmed the match.
		refs.reviewRequired = true
		refs.reviewReason = string(review.ReasonDuplicateTicket)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The window query under mu is the sole duplicate arbiter; a number
	// reused beyond the window is a legitimate new ticket.
	if opts.DuplicateOf == nil && !opts.SkipDuplicateCheck {
		window := opts.DuplicateWindow
		if window <= 0 {
			window = DefaultDuplicateWindow
		}
		match, err := findOriginal(ctx, tx, draft.TicketNumber, refs.vendorID, draft.TicketDate, window)
		if err != nil {
			return nil, err
		}
		if match != nil {
			e := newError(KindDuplicateTicket, "ticket %s duplicates #%d from %s",
				draft.TicketNumber, match.OriginalID, match.OriginalDate.Format(dateOnly))
			e.Duplicate = match
			return nil, e
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO truck_tickets (
			ticket_number, ticket_date, job_id, material_id, ticket_type_id,
			source_id, destination_id, vendor_id,
			quantity, quantity_unit, truck_number, manifest_number,
			file_id, file_page, file_hash, request_guid,
			confidence_score, processed_by, review_required, review_reason, duplicate_of
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(draft.TicketNumber), draft.TicketDate.Format(dateOnly),
		refs.jobID, refs.materialID, refs.ticketTypeID,
		refs.sourceID, refs.destinationID, refs.vendorID,
		draft.Quantity, draft.QuantityUnit, draft.TruckNumber, draft.ManifestNumber,
		draft.FileID, draft.FilePage, draft.FileHash, draft.RequestGUID,
		draft.ConfidenceScore, draft.ProcessedBy, refs.reviewRequired, nullStr(refs.reviewReason), opts.DuplicateOf)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ticket: %w", err)
	}

	logging.StoreDebug("Created ticket #%d number=%s date=%s", id, draft.TicketNumber, draft.TicketDate.Format(dateOnly))
	return s.ticketByIDLocked(ctx, id)
}

type resolvedRefs struct {
	jobID         int64
	materialID    int64
	ticketTypeID  int64
	sourceID      *int64
	destinationID *int64
	vendorID      *int64

	material    *refdata.Material
	destination *refdata.Destination

	reviewRequired bool
	reviewReason   string
}

// resolveDraft maps the draft's names to row IDs. Job, material, and ticket
// type are mandatory; source, destination, and vendor degrade to NULL.
func (s *Store) resolveDraft(ctx context.Context, lookup refdata.Lookup, draft TicketDraft) (*resolvedRefs, error) {
	refs := &resolvedRefs{}

	var job *refdata.Job
	var err error
	if draft.JobCode != "" {
		if job, err = lookup.JobByCode(ctx, draft.JobCode); err != nil {
			return nil, err
		}
	}
	if job == nil && draft.JobName != "" {
		if job, err = lookup.JobByName(ctx, draft.JobName); err != nil {
			return nil, err
		}
	}
	if job == nil {
		return nil, newError(KindForeignKey, "unknown job %q", firstNonEmpty(draft.JobCode, draft.JobName))
	}
	refs.jobID = job.ID

	refs.material, err = lookup.MaterialByName(ctx, draft.MaterialName)
	if err != nil {
		return nil, err
	}
	if refs.material == nil {
		return nil, newError(KindForeignKey, "unknown material %q", draft.MaterialName)
	}
	refs.materialID = refs.material.ID

	tt, err := lookup.TicketTypeByName(ctx, draft.TicketTypeName)
	if err != nil {
		return nil, err
	}
	if tt == nil {
		return nil, newError(KindForeignKey, "unknown ticket type %q", draft.TicketTypeName)
	}
	refs.ticketTypeID = tt.ID

	if draft.SourceName != "" {
		src, err := lookup.SourceByName(ctx, draft.SourceName)
		if err != nil {
			return nil, err
		}
		if src != nil {
			refs.sourceID = &src.ID
		}
	}
	if draft.DestinationName != "" {
		refs.destination, err = lookup.DestinationByName(ctx, draft.DestinationName)
		if err != nil {
			return nil, err
		}
		if refs.destination != nil {
			refs.destinationID = &refs.destination.ID
		}
	}
	if draft.VendorName != "" {
		v, err := lookup.VendorByName(ctx, draft.VendorName)
		if err != nil {
			return nil, err
		}
		if v != nil {
			refs.vendorID = &v.ID
		}
	}
	return refs, nil
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// findOriginal looks for a surviving ticket with the same number inside the
// window around date. Vendor must match unless either side is unknown. Ties
// break to the earliest date, then the smallest id.
func findOriginal(ctx context.Context, q execQuerier, ticketNumber string, vendorID *int64, date time.Time, window time.Duration) (*DuplicateMatch, error) {
	lo := date.Add(-window).Format(dateOnly)
	hi := date.Add(window).Format(dateOnly)

	var m DuplicateMatch
	var origDate string
	var origVendor sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT id, ticket_date, file_id, vendor_id
		FROM truck_tickets
		WHERE ticket_number = ?
		  AND duplicate_of IS NULL AND deleted = 0
		  AND ticket_date >= ? AND ticket_date <= ?
		  AND (? IS NULL OR vendor_id IS NULL OR vendor_id = ?)
		ORDER BY ticket_date ASC, id ASC
		LIMIT 1`,
		strings.TrimSpace(ticketNumber), lo, hi, vendorID, vendorID).
		Scan(&m.OriginalID, &origDate, &m.OriginalFileID, &origVendor)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate window: %w", err)
	}

	m.OriginalDate = parseStoredDate(origDate)
	m.VendorMatched = origVendor.Valid && vendorID != nil
	days := int(date.Sub(m.OriginalDate).Hours() / 24)
	if days < 0 {
		days = -days
	}
	m.DaysApart = days
	return &m, nil
}

const ticketColumns = `id, ticket_number, ticket_date, job_id, material_id, ticket_type_id,
	source_id, destination_id, vendor_id, quantity, quantity_unit,
	truck_number, manifest_number, file_id, file_page, file_hash,
	request_guid, confidence_score, processed_by,
	review_required, review_reason, duplicate_of, deleted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*TruckTicket, error) {
	var t TruckTicket
	var ticketDate string
	var sourceID, destID, vendorID, dupOf sql.NullInt64
	var truck, man, reason sql.NullString
	var created, updated sql.NullTime
	err := row.Scan(&t.ID, &t.TicketNumber, &ticketDate, &t.JobID, &t.MaterialID, &t.TicketTypeID,
		&sourceID, &destID, &vendorID, &t.Quantity, &t.QuantityUnit,
		&truck, &man, &t.FileID, &t.FilePage, &t.FileHash,
		&t.RequestGUID, &t.ConfidenceScore, &t.ProcessedBy,
		&t.ReviewRequired, &reason, &dupOf, &t.Deleted, &created, &updated)
	if err != nil {
		return nil, err
	}

	t.TicketDate = parseStoredDate(ticketDate)
	if sourceID.Valid {
		t.SourceID = &sourceID.Int64
	}
	if destID.Valid {
		t.DestinationID = &destID.Int64
	}
	if vendorID.Valid {
		t.VendorID = &vendorID.Int64
	}
	if dupOf.Valid {
		t.DuplicateOf = &dupOf.Int64
	}
	t.TruckNumber = truck.String
	t.ManifestNumber = man.String
	t.ReviewReason = reason.String
	t.CreatedAt = created.Time
	t.UpdatedAt = updated.Time
	return &t, nil
}

// TicketByID returns one ticket, or a KindNotFound error.
func (s *Store) TicketByID(ctx context.Context, id int64) (*TruckTicket, error) {
	return s.ticketByIDLocked(ctx, id)
}

func (s *Store) ticketByIDLocked(ctx context.Context, id int64) (*TruckTicket, error) {
	t, err := scanTicket(s.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM truck_tickets WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, newError(KindNotFound, "ticket %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket %d: %w", id, err)
	}
	return t, nil
}

// TicketsByNumber returns every sighting of a ticket number, originals and
// duplicates, newest first.
func (s *Store) TicketsByNumber(ctx context.Context, ticketNumber string) ([]TruckTicket, error) {
	return s.queryTickets(ctx,
		"SELECT "+ticketColumns+" FROM truck_tickets WHERE ticket_number = ? AND deleted = 0 ORDER BY ticket_date DESC, id DESC",
		strings.TrimSpace(ticketNumber))
}

// TicketsByDateRange returns surviving tickets in [from, to], inclusive,
// ordered by date then id.
func (s *Store) TicketsByDateRange(ctx context.Context, from, to time.Time, includeDuplicates bool) ([]TruckTicket, error) {
	q := "SELECT " + ticketColumns + ` FROM truck_tickets
		WHERE ticket_date >= ? AND ticket_date <= ? AND deleted = 0`
	if !includeDuplicates {
		q += " AND duplicate_of IS NULL"
	}
	q += " ORDER BY ticket_date ASC, id ASC"
	return s.queryTickets(ctx, q, from.Format(dateOnly), to.Format(dateOnly))
}

// CountTicketsByJob counts surviving non-duplicate tickets for a job.
func (s *Store) CountTicketsByJob(ctx context.Context, jobID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM truck_tickets WHERE job_id = ? AND duplicate_of IS NULL AND deleted = 0", jobID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return n, nil
}

// DuplicateTickets returns rows recorded as duplicates.
func (s *Store) DuplicateTickets(ctx context.Context) ([]TruckTicket, error) {
	return s.queryTickets(ctx,
		"SELECT "+ticketColumns+" FROM truck_tickets WHERE duplicate_of IS NOT NULL AND deleted = 0 ORDER BY ticket_date ASC, id ASC")
}

// TicketsRequiringReview returns surviving tickets flagged for review.
func (s *Store) TicketsRequiringReview(ctx context.Context) ([]TruckTicket, error) {
	return s.queryTickets(ctx,
		"SELECT "+ticketColumns+" FROM truck_tickets WHERE review_required = 1 AND deleted = 0 ORDER BY ticket_date ASC, id ASC")
}

// TicketFilter narrows SearchTickets. Nil fields are not applied.
type TicketFilter struct {
	TicketNumber string // substring match
	JobID        *int64
	VendorID     *int64
	MaterialID   *int64
	SourceID     *int64
	DateFrom     *time.Time
	DateTo       *time.Time

	ReviewRequired    *bool
	IncludeDuplicates bool
	Limit             int
}

// SearchTickets runs an AND of the filter's populated fields. Limit defaults
// to 500 rows.
func (s *Store) SearchTickets(ctx context.Context, f TicketFilter) ([]TruckTicket, error) {
	q := "SELECT " + ticketColumns + " FROM truck_tickets WHERE deleted = 0"
	var args []interface{}

	if !f.IncludeDuplicates {
		q += " AND duplicate_of IS NULL"
	}
	if f.TicketNumber != "" {
		q += " AND ticket_number LIKE ?"
		args = append(args, "%"+strings.TrimSpace(f.TicketNumber)+"%")
	}
	if f.JobID != nil {
		q += " AND job_id = ?"
		args = append(args, *f.JobID)
	}
	if f.VendorID != nil {
		q += " AND vendor_id = ?"
		args = append(args, *f.VendorID)
	}
	if f.MaterialID != nil {
		q += " AND material_id = ?"
		args = append(args, *f.MaterialID)
	}
	if f.SourceID != nil {
		q += " AND source_id = ?"
		args = append(args, *f.SourceID)
	}
	if f.DateFrom != nil {
		q += " AND ticket_date >= ?"
		args = append(args, f.DateFrom.Format(dateOnly))
	}
	if f.DateTo != nil {
		q += " AND ticket_date <= ?"
		args = append(args, f.DateTo.Format(dateOnly))
	}
	if f.ReviewRequired != nil {
		q += " AND review_required = ?"
		args = append(args, *f.ReviewRequired)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	q += " ORDER BY ticket_date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	return s.queryTickets(ctx, q, args...)
}

// ExpandedTicketsByDateRange joins reference names onto surviving tickets
// for exports. Duplicates are excluded.
func (s *Store) ExpandedTicketsByDateRange(ctx context.Context, jobID int64, from, to time.Time) ([]ExpandedTicket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.ticket_number, t.ticket_date, t.job_id, t.material_id, t.ticket_type_id,
			t.source_id, t.destination_id, t.vendor_id, t.quantity, t.quantity_unit,
			t.truck_number, t.manifest_number, t.file_id, t.file_page, t.file_hash,
			t.request_guid, t.confidence_score, t.processed_by,
			t.review_required, t.review_reason, t.duplicate_of, t.deleted, t.created_at, t.updated_at,
			j.code, m.name, m.class, tt.name,
			COALESCE(src.name, ''), COALESCE(d.name, ''), COALESCE(v.name, '')
		FROM truck_tickets t
		JOIN jobs j ON j.id = t.job_id
		JOIN materials m ON m.id = t.material_id
		JOIN ticket_types tt ON tt.id = t.ticket_type_id
		LEFT JOIN sources src ON src.id = t.source_id
		LEFT JOIN destinations d ON d.id = t.destination_id
		LEFT JOIN vendors v ON v.id = t.vendor_id
		WHERE t.job_id = ? AND t.ticket_date >= ? AND t.ticket_date <= ?
		  AND t.duplicate_of IS NULL AND t.deleted = 0
		ORDER BY t.ticket_date ASC, t.id ASC`,
		jobID, from.Format(dateOnly), to.Format(dateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to query expanded tickets: %w", err)
	}
	defer rows.Close()

	var out []ExpandedTicket
	for rows.Next() {
		var e ExpandedTicket
		var ticketDate string
		var sourceID, destID, vendorID, dupOf sql.NullInt64
		var truck, man, reason sql.NullString
		var created, updated sql.NullTime
		err := rows.Scan(&e.ID, &e.TicketNumber, &ticketDate, &e.JobID, &e.MaterialID, &e.TicketTypeID,
			&sourceID, &destID, &vendorID, &e.Quantity, &e.QuantityUnit,
			&truck, &man, &e.FileID, &e.FilePage, &e.FileHash,
			&e.RequestGUID, &e.ConfidenceScore, &e.ProcessedBy,
			&e.ReviewRequired, &reason, &dupOf, &e.Deleted, &created, &updated,
			&e.JobCode, &e.MaterialName, &e.MaterialClass, &e.TicketTypeName,
			&e.SourceName, &e.DestinationName, &e.VendorName)
		if err != nil {
			return nil, err
		}
		e.TicketDate = parseStoredDate(ticketDate)
		if sourceID.Valid {
			e.SourceID = &sourceID.Int64
		}
		if destID.Valid {
			e.DestinationID = &destID.Int64
		}
		if vendorID.Valid {
			e.VendorID = &vendorID.Int64
		}
		if dupOf.Valid {
			e.DuplicateOf = &dupOf.Int64
		}
		e.TruckNumber = truck.String
		e.ManifestNumber = man.String
		e.ReviewReason = reason.String
		e.CreatedAt = created.Time
		e.UpdatedAt = updated.Time
		out = append(out, e)
	}
	return out, rows.Err()
}

// TicketUpdate holds operator corrections. Nil fields are untouched.
type TicketUpdate struct {
	Quantity       *float64
	QuantityUnit   *string
	TruckNumber    *string
	ManifestNumber *string
	ReviewRequired *bool
	ReviewReason   *string
}

// UpdateTicket applies operator corrections and bumps updated_at.
func (s *Store) UpdateTicket(ctx context.Context, id int64, upd TicketUpdate) error {
	var sets []string
	var args []interface{}
	if upd.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *upd.Quantity)
	}
	if upd.QuantityUnit != nil {
		sets = append(sets, "quantity_unit = ?")
		args = append(args, *upd.QuantityUnit)
	}
	if upd.TruckNumber != nil {
		sets = append(sets, "truck_number = ?")
		args = append(args, *upd.TruckNumber)
	}
	if upd.ManifestNumber != nil {
		sets = append(sets, "manifest_number = ?")
		args = append(args, *upd.ManifestNumber)
	}
	if upd.ReviewRequired != nil {
		sets = append(sets, "review_required = ?")
		args = append(args, *upd.ReviewRequired)
	}
	if upd.ReviewReason != nil {
		sets = append(sets, "review_reason = ?")
		args = append(args, nullStr(*upd.ReviewReason))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"UPDATE truck_tickets SET "+strings.Join(sets, ", ")+" WHERE id = ? AND deleted = 0", args...)
	if err != nil {
		return fmt.Errorf("failed to update ticket %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(KindNotFound, "ticket %d not found", id)
	}
	return nil
}

// MarkDuplicate points a ticket at its surviving original. Rows with
// duplicate_of set are excluded from window matching, so the original
// stays the canonical row.
func (s *Store) MarkDuplicate(ctx context.Context, id, originalID int64) error {
	if id == originalID {
		return newError(KindConflict, "ticket %d cannot duplicate itself", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"UPDATE truck_tickets SET duplicate_of = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted = 0",
		originalID, id)
	if err != nil {
		return fmt.Errorf("failed to mark duplicate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(KindNotFound, "ticket %d not found", id)
	}
	return nil
}

// SoftDeleteTicketsByFile hides every ticket a file produced. Used to roll
// back a file whose processing failed partway through.
func (s *Store) SoftDeleteTicketsByFile(ctx context.Context, fileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"UPDATE truck_tickets SET deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE file_id = ? AND deleted = 0", fileID)
	if err != nil {
		return 0, fmt.Errorf("failed to roll back tickets for %s: %w", fileID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SoftDeleteTicket hides a ticket from queries and exports; the row stays
// for the audit trail.
func (s *Store) SoftDeleteTicket(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"UPDATE truck_tickets SET deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted = 0", id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(KindNotFound, "ticket %d not found", id)
	}
	return nil
}

// HardDeleteTicket removes a row permanently. Refused while other tickets
// reference it as their original.
func (s *Store) HardDeleteTicket(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM truck_tickets WHERE duplicate_of = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check duplicate references: %w", err)
	}
	if n > 0 {
		return newError(KindConflict, "ticket %d is the original of %d duplicates", id, n)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM truck_tickets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to hard-delete ticket %d: %w", id, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return newError(KindNotFound, "ticket %d not found", id)
	}
	return nil
}

func (s *Store) queryTickets(ctx context.Context, query string, args ...interface{}) ([]TruckTicket, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var out []TruckTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if se, ok := err.(sqlite3.Error); ok {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
