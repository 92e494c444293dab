package store

import (
	"database/sql"
	"fmt"

	"ticketflow/internal/logging"
)

// Schema versions:
// v1: reference tables + truck_tickets
// v2: review_queue and processing_runs
// v3: processed_files and truck_tickets.file_hash
// v4: requires_manifest columns on materials and destinations
// v5: dropped the (ticket_number, vendor_id) unique index; the duplicate
//     window query is the arbiter, and the index rejected numbers
//     legitimately reused beyond the window
const CurrentSchemaVersion = 5

// Migration adds one column to one table when upgrading older databases.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists column additions for databases created before the
// current schema. New installs get everything from SchemaSQL directly.
var pendingMigrations = []Migration{
	{"truck_tickets", "file_hash", "TEXT NOT NULL DEFAULT ''"},
	{"truck_tickets", "request_guid", "TEXT NOT NULL DEFAULT ''"},
	{"truck_tickets", "confidence_score", "REAL NOT NULL DEFAULT 0"},
	{"truck_tickets", "review_required", "INTEGER NOT NULL DEFAULT 0"},
	{"truck_tickets", "review_reason", "TEXT"},
	{"truck_tickets", "duplicate_of", "INTEGER REFERENCES truck_tickets(id)"},
	{"truck_tickets", "deleted", "INTEGER NOT NULL DEFAULT 0"},
	{"materials", "requires_manifest", "INTEGER NOT NULL DEFAULT 0"},
	{"destinations", "requires_manifest", "INTEGER NOT NULL DEFAULT 0"},
	{"processing_runs", "tickets_updated", "INTEGER NOT NULL DEFAULT 0"},
	{"processing_runs", "review_queue_count", "INTEGER NOT NULL DEFAULT 0"},
	{"review_queue", "suggested_fixes", "TEXT NOT NULL DEFAULT '{}'"},
}

// RunMigrations applies column migrations for existing databases.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied := 0
	skipped := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			skipped++
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		logging.StoreDebug("Executing migration: %s", query)
		if _, err := db.Exec(query); err != nil {
			// The column may already exist under a different definition.
			logging.Get(logging.CategoryStore).Warn("Migration failed (may already exist): %s.%s: %v", m.Table, m.Column, err)
			skipped++
			continue
		}
		applied++
	}

	// v5: databases created before the window query became the sole
	// duplicate arbiter still carry the unique index.
	if _, err := db.Exec("DROP INDEX IF EXISTS uq_tickets_number_vendor"); err != nil {
		return fmt.Errorf("failed to drop legacy ticket number index: %w", err)
	}

	logging.Store("Schema migrations complete: applied=%d, skipped=%d", applied, skipped)
	return nil
}

func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	return err == nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
