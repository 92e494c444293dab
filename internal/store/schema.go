package store

// SchemaSQL is the complete schema for fresh ticketflow databases and the
// single source of truth for tests. Existing databases are upgraded by the
// column migrations in migrations.go; keep both in sync when adding columns.
const SchemaSQL = `
-- Reference tables. Seeded idempotently; effectively immutable during a run.
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	start_date TEXT,
	end_date TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS materials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	class TEXT NOT NULL CHECK(class IN ('CONTAMINATED', 'CLEAN', 'WASTE', 'IMPORT', 'SPOILS')),
	requires_manifest INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	job_id INTEGER REFERENCES jobs(id),
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS destinations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	facility_type TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	requires_manifest INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS vendors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	code TEXT NOT NULL DEFAULT '',
	contact_info TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ticket_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE CHECK(name IN ('EXPORT', 'IMPORT', 'TRANSFER'))
);

-- One row per accepted page.
CREATE TABLE IF NOT EXISTS truck_tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket_number TEXT NOT NULL,
	ticket_date TEXT NOT NULL,
	job_id INTEGER NOT NULL REFERENCES jobs(id),
	material_id INTEGER NOT NULL REFERENCES materials(id),
	ticket_type_id INTEGER NOT NULL REFERENCES ticket_types(id),
	source_id INTEGER REFERENCES sources(id),
	destination_id INTEGER REFERENCES destinations(id),
	vendor_id INTEGER REFERENCES vendors(id),
	quantity NUMERIC(10,2) NOT NULL DEFAULT 0,
	quantity_unit TEXT NOT NULL DEFAULT 'LOADS',
	truck_number TEXT,
	manifest_number TEXT,
	file_id TEXT NOT NULL DEFAULT '',
	file_page INTEGER NOT NULL DEFAULT 1,
	file_hash TEXT NOT NULL DEFAULT '',
	request_guid TEXT NOT NULL DEFAULT '',
	confidence_score REAL NOT NULL DEFAULT 0,
	processed_by TEXT NOT NULL DEFAULT '',
	review_required INTEGER NOT NULL DEFAULT 0,
	review_reason TEXT,
	duplicate_of INTEGER REFERENCES truck_tickets(id),
	deleted INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tickets_date ON truck_tickets(ticket_date);
CREATE INDEX IF NOT EXISTS idx_tickets_job_date ON truck_tickets(job_id, ticket_date);
CREATE INDEX IF NOT EXISTS idx_tickets_manifest ON truck_tickets(manifest_number);
CREATE INDEX IF NOT EXISTS idx_tickets_request_guid ON truck_tickets(request_guid);
CREATE INDEX IF NOT EXISTS idx_tickets_file_hash ON truck_tickets(file_hash);
CREATE INDEX IF NOT EXISTS idx_tickets_number ON truck_tickets(ticket_number);

-- One row per page that did not produce a ticket (or advisory on one that did).
CREATE TABLE IF NOT EXISTS review_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket_id INTEGER REFERENCES truck_tickets(id),
	page_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	severity TEXT NOT NULL CHECK(severity IN ('CRITICAL', 'WARNING', 'INFO')),
	file_path TEXT NOT NULL,
	page_num INTEGER NOT NULL,
	detected_fields TEXT NOT NULL DEFAULT '{}',
	suggested_fixes TEXT NOT NULL DEFAULT '{}',
	resolved INTEGER NOT NULL DEFAULT 0,
	resolved_by TEXT,
	resolved_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_review_page ON review_queue(page_id);
CREATE INDEX IF NOT EXISTS idx_review_severity ON review_queue(severity, resolved);

-- Audit record of each batch invocation.
CREATE TABLE IF NOT EXISTS processing_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_guid TEXT NOT NULL UNIQUE,
	started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	processed_by TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'IN_PROGRESS'
		CHECK(status IN ('IN_PROGRESS', 'COMPLETED', 'PARTIAL', 'FAILED')),
	config_snapshot TEXT NOT NULL DEFAULT '{}',
	files_processed INTEGER NOT NULL DEFAULT 0,
	pages_processed INTEGER NOT NULL DEFAULT 0,
	tickets_created INTEGER NOT NULL DEFAULT 0,
	tickets_updated INTEGER NOT NULL DEFAULT 0,
	duplicates_found INTEGER NOT NULL DEFAULT 0,
	review_queue_count INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON processing_runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started ON processing_runs(started_at);

-- Whole-file duplicate tracking by content hash.
CREATE TABLE IF NOT EXISTS processed_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_hash TEXT NOT NULL UNIQUE,
	file_path TEXT NOT NULL,
	request_guid TEXT NOT NULL DEFAULT '',
	processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
`
