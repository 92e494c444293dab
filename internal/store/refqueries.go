package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticketflow/internal/logging"
	"ticketflow/internal/refdata"
)

// Store implements refdata.Catalog. All ByName lookups return (nil, nil) on a
// clean miss so callers can distinguish "unknown name" from database failure.
var _ refdata.Catalog = (*Store)(nil)

const dateOnly = "2006-01-02"

func (s *Store) JobByName(ctx context.Context, name string) (*refdata.Job, error) {
	return s.scanJob(s.db.QueryRowContext(ctx,
		"SELECT id, code, name, start_date, end_date FROM jobs WHERE name = ?", name))
}

func (s *Store) JobByCode(ctx context.Context, code string) (*refdata.Job, error) {
	return s.scanJob(s.db.QueryRowContext(ctx,
		"SELECT id, code, name, start_date, end_date FROM jobs WHERE code = ?", code))
}

func (s *Store) scanJob(row *sql.Row) (*refdata.Job, error) {
	var j refdata.Job
	var start, end sql.NullString
	err := row.Scan(&j.ID, &j.Code, &j.Name, &start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	j.StartDate = parseStoredDate(start.String)
	j.EndDate = parseStoredDate(end.String)
	return &j, nil
}

func (s *Store) MaterialByName(ctx context.Context, name string) (*refdata.Material, error) {
	var m refdata.Material
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, class, requires_manifest FROM materials WHERE name = ?", name).
		Scan(&m.ID, &m.Name, &m.Class, &m.RequiresManifest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query material: %w", err)
	}
	return &m, nil
}

func (s *Store) SourceByName(ctx context.Context, name string) (*refdata.Source, error) {
	var src refdata.Source
	var jobID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, job_id, description FROM sources WHERE name = ?", name).
		Scan(&src.ID, &src.Name, &jobID, &src.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}
	if jobID.Valid {
		src.JobID = &jobID.Int64
	}
	return &src, nil
}

func (s *Store) DestinationByName(ctx context.Context, name string) (*refdata.Destination, error) {
	var d refdata.Destination
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, facility_type, address, requires_manifest FROM destinations WHERE name = ?", name).
		Scan(&d.ID, &d.Name, &d.FacilityType, &d.Address, &d.RequiresManifest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query destination: %w", err)
	}
	return &d, nil
}

func (s *Store) VendorByName(ctx context.Context, name string) (*refdata.Vendor, error) {
	var v refdata.Vendor
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, code, contact_info FROM vendors WHERE name = ?", name).
		Scan(&v.ID, &v.Name, &v.Code, &v.ContactInfo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor: %w", err)
	}
	return &v, nil
}

func (s *Store) TicketTypeByName(ctx context.Context, name string) (*refdata.TicketType, error) {
	var tt refdata.TicketType
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM ticket_types WHERE name = ?", name).
		Scan(&tt.ID, &tt.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket type: %w", err)
	}
	return &tt, nil
}

func (s *Store) AllJobs(ctx context.Context) ([]refdata.Job, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, code, name, start_date, end_date FROM jobs ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []refdata.Job
	for rows.Next() {
		var j refdata.Job
		var start, end sql.NullString
		if err := rows.Scan(&j.ID, &j.Code, &j.Name, &start, &end); err != nil {
			return nil, err
		}
		j.StartDate = parseStoredDate(start.String)
		j.EndDate = parseStoredDate(end.String)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) AllMaterials(ctx context.Context) ([]refdata.Material, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, class, requires_manifest FROM materials ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	var out []refdata.Material
	for rows.Next() {
		var m refdata.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Class, &m.RequiresManifest); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) AllSources(ctx context.Context) ([]refdata.Source, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, job_id, description FROM sources ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var out []refdata.Source
	for rows.Next() {
		var src refdata.Source
		var jobID sql.NullInt64
		if err := rows.Scan(&src.ID, &src.Name, &jobID, &src.Description); err != nil {
			return nil, err
		}
		if jobID.Valid {
			src.JobID = &jobID.Int64
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) AllDestinations(ctx context.Context) ([]refdata.Destination, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, facility_type, address, requires_manifest FROM destinations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	defer rows.Close()

	var out []refdata.Destination
	for rows.Next() {
		var d refdata.Destination
		if err := rows.Scan(&d.ID, &d.Name, &d.FacilityType, &d.Address, &d.RequiresManifest); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) AllVendors(ctx context.Context) ([]refdata.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, code, contact_info FROM vendors ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var out []refdata.Vendor
	for rows.Next() {
		var v refdata.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Code, &v.ContactInfo); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) AllTicketTypes(ctx context.Context) ([]refdata.TicketType, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM ticket_types ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var out []refdata.TicketType
	for rows.Next() {
		var tt refdata.TicketType
		if err := rows.Scan(&tt.ID, &tt.Name); err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

// Seed inserts reference rows that are not already present, matching on the
// unique name (code for jobs). Existing rows are never modified, so operator
// edits survive re-seeding.
func (s *Store) Seed(ctx context.Context, set *refdata.SeedSet) error {
	timer := logging.StartTimer(logging.CategoryStore, "Store.Seed")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, j := range set.Jobs {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO jobs(code, name, start_date, end_date) VALUES (?, ?, ?, ?)",
			j.Code, j.Name, formatStoredDate(j.StartDate), formatStoredDate(j.EndDate))
		if err != nil {
			return fmt.Errorf("failed to seed job %s: %w", j.Code, err)
		}
	}
	for _, m := range set.Materials {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO materials(name, class, requires_manifest) VALUES (?, ?, ?)",
			m.Name, string(m.Class), m.RequiresManifest)
		if err != nil {
			return fmt.Errorf("failed to seed material %s: %w", m.Name, err)
		}
	}
	for _, src := range set.Sources {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO sources(name, job_id, description) VALUES (?, ?, ?)",
			src.Name, src.JobID, src.Description)
		if err != nil {
			return fmt.Errorf("failed to seed source %s: %w", src.Name, err)
		}
	}
	for _, d := range set.Destinations {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO destinations(name, facility_type, address, requires_manifest) VALUES (?, ?, ?, ?)",
			d.Name, d.FacilityType, d.Address, d.RequiresManifest)
		if err != nil {
			return fmt.Errorf("failed to seed destination %s: %w", d.Name, err)
		}
	}
	for _, v := range set.Vendors {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO vendors(name, code, contact_info) VALUES (?, ?, ?)",
			v.Name, v.Code, v.ContactInfo)
		if err != nil {
			return fmt.Errorf("failed to seed vendor %s: %w", v.Name, err)
		}
	}
	for _, tt := range set.TicketTypes {
		_, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO ticket_types(name) VALUES (?)", tt.Name)
		if err != nil {
			return fmt.Errorf("failed to seed ticket type %s: %w", tt.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	logging.Store("Seeded reference data: %d jobs, %d materials, %d sources, %d destinations, %d vendors",
		len(set.Jobs), len(set.Materials), len(set.Sources), len(set.Destinations), len(set.Vendors))
	return nil
}

func parseStoredDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatStoredDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateOnly)
}
