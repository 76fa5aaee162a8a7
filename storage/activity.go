package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Upload is one document sent to /ingest.
type Upload struct {
	ID          string
	ThreadID    string // empty for uploads made from the command line
	Filename    string
	Path        string
	ChunksAdded int
	Error       string
	CreatedAt   time.Time
}

func (u Upload) Succeeded() bool {
	return u.Error == ""
}

// ScrapeRun is one batch sent to /scrape.
type ScrapeRun struct {
	ID          string
	URLs        []string
	Status      string
	Message     string
	FilesQueued int
	Error       string
	CreatedAt   time.Time
}

// ActivityStore keeps a local history of uploads and scrape requests.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(dataDir string) (*ActivityStore, error) {
	dbPath := filepath.Join(dataDir, "activity.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &ActivityStore{db: db}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (as *ActivityStore) Close() error {
	return as.db.Close()
}

func (as *ActivityStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		chunks_added INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at);

	CREATE TABLE IF NOT EXISTS scrapes (
		id TEXT PRIMARY KEY,
		urls TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		files_queued INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scrapes_created ON scrapes(created_at);
	`

	if _, err := as.db.Exec(schema); err != nil {
		return err
	}

	if err := as.migrateSchema(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	return nil
}

// migrateSchema adds the thread_id column to upload tables created by the
// command line before chat uploads were recorded.
func (as *ActivityStore) migrateSchema() error {
	hasThreadID, err := as.columnExists("uploads", "thread_id")
	if err != nil {
		return fmt.Errorf("failed to check for thread_id column: %w", err)
	}

	if !hasThreadID {
		if _, err := as.db.Exec(`ALTER TABLE uploads ADD COLUMN thread_id TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add thread_id column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info
func (as *ActivityStore) columnExists(tableName, columnName string) (bool, error) {
	rows, err := as.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var dataType string
		var notNull int
		var defaultValue interface{}
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}

	return false, rows.Err()
}

// RecordUpload stores u, filling in ID and CreatedAt when unset.
func (as *ActivityStore) RecordUpload(u Upload) (Upload, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO uploads (id, thread_id, filename, path, chunks_added, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := as.db.Exec(query, u.ID, u.ThreadID, u.Filename, u.Path, u.ChunksAdded, u.Error, u.CreatedAt)
	if err != nil {
		return Upload{}, fmt.Errorf("failed to record upload: %w", err)
	}
	return u, nil
}

// ListUploads returns the most recent uploads first. limit <= 0 means all.
func (as *ActivityStore) ListUploads(limit int) ([]Upload, error) {
	query := `
	SELECT id, thread_id, filename, path, chunks_added, error, created_at
	FROM uploads
	ORDER BY created_at DESC
	`
	rows, err := as.db.Query(withLimit(query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.ThreadID, &u.Filename, &u.Path, &u.ChunksAdded, &u.Error, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}

	return uploads, rows.Err()
}

// RecordScrape stores r, filling in ID and CreatedAt when unset.
func (as *ActivityStore) RecordScrape(r ScrapeRun) (ScrapeRun, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO scrapes (id, urls, status, message, files_queued, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := as.db.Exec(query, r.ID, strings.Join(r.URLs, "\n"), r.Status, r.Message, r.FilesQueued, r.Error, r.CreatedAt)
	if err != nil {
		return ScrapeRun{}, fmt.Errorf("failed to record scrape: %w", err)
	}
	return r, nil
}

// ListScrapes returns the most recent scrape requests first. limit <= 0 means all.
func (as *ActivityStore) ListScrapes(limit int) ([]ScrapeRun, error) {
	query := `
	SELECT id, urls, status, message, files_queued, error, created_at
	FROM scrapes
	ORDER BY created_at DESC
	`
	rows, err := as.db.Query(withLimit(query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list scrapes: %w", err)
	}
	defer rows.Close()

	var runs []ScrapeRun
	for rows.Next() {
		var r ScrapeRun
		var urls string
		if err := rows.Scan(&r.ID, &urls, &r.Status, &r.Message, &r.FilesQueued, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scrape: %w", err)
		}
		if urls != "" {
			r.URLs = strings.Split(urls, "\n")
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func withLimit(query string, limit int) string {
	if limit > 0 {
		return fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return query
}
