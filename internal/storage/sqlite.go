package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage archives crawl runs and their product records in SQLite
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		seed_count INTEGER DEFAULT 0,
		record_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS product_records (
		record_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		product_name TEXT,
		error TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_run ON product_records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_url ON product_records(url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartRun registers a new run
func (s *Storage) StartRun(runID string, startedAt time.Time) error {
	_, err := s.db.Exec(`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`, runID, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun stores a run's final counts
func (s *Storage) FinishRun(runID string, finishedAt time.Time, seedCount, recordCount int) error {
	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, seed_count = ?, record_count = ?
		WHERE run_id = ?
	`, finishedAt.UTC(), seedCount, recordCount, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run: run %s not found", runID)
	}
	return nil
}

// SaveRecords writes a batch of records for a run in one transaction
func (s *Storage) SaveRecords(runID string, records []ProductRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO product_records (run_id, url, product_name, error) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(runID, r.URL, nullable(r.ProductName), nullable(r.Error)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert record %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// LoadRecords returns the records archived for a run
func (s *Storage) LoadRecords(runID string) ([]ProductRecord, error) {
	rows, err := s.db.Query(`
		SELECT url, product_name, error
		FROM product_records
		WHERE run_id = ?
		ORDER BY record_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	var records []ProductRecord
	for rows.Next() {
		var (
			r           ProductRecord
			name, cause sql.NullString
		)
		if err := rows.Scan(&r.URL, &name, &cause); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.ProductName = name.String
		r.Error = cause.String
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// GetRun retrieves a run by id, returns nil if not found
func (s *Storage) GetRun(runID string) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
	)
	err := s.db.QueryRow(`
		SELECT run_id, started_at, finished_at, seed_count, record_count
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.StartedAt, &finished, &run.SeedCount, &run.RecordCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.FinishedAt = finished.Time
	return &run, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
