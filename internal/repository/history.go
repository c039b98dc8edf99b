// Package repository persists the download history.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vidfetch/vidfetch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	quality      TEXT NOT NULL,
	status       TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	filename     TEXT NOT NULL DEFAULT '',
	file_path    TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_downloads_created_at ON downloads(created_at);
`

// Record is one row of download history. It is an audit copy of a
// request/result pair; the domain entities themselves stay request-scoped.
type Record struct {
	ID          domain.DownloadID
	URL         string
	Quality     domain.Quality
	Status      domain.DownloadStatus
	Category    domain.ErrorCategory
	Filename    string
	FilePath    string
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// HistoryRepository stores download records in SQLite.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository opens (and if needed initializes) the history database.
func NewHistoryRepository(path string) (*HistoryRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// The driver serializes access; a single connection avoids SQLITE_BUSY
	// between the blocking download writer and history readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &HistoryRepository{db: db}, nil
}

// Close releases the database handle.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

// Ping verifies the database is reachable.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Begin records a new in-flight download.
func (r *HistoryRepository) Begin(ctx context.Context, id domain.DownloadID, req domain.DownloadRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO downloads (id, url, quality, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), req.URL, string(req.Quality), string(domain.StatusDownloading), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// Complete records the terminal outcome of a download.
func (r *HistoryRepository) Complete(ctx context.Context, res *domain.DownloadResult) error {
	out, err := r.db.ExecContext(ctx,
		`UPDATE downloads
		 SET status = ?, category = ?, filename = ?, file_path = ?, error = ?, completed_at = ?
		 WHERE id = ?`,
		string(res.Status()), string(res.Category), res.FileName, res.FilePath,
		res.RawMessage, time.Now().UTC(), res.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update download: %w", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("update download: %w", err)
	}
	if n == 0 {
		return domain.ErrDownloadNotFound
	}
	return nil
}

// Get returns one download record by ID.
func (r *HistoryRepository) Get(ctx context.Context, id domain.DownloadID) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, url, quality, status, category, filename, file_path, error, created_at, completed_at
		 FROM downloads WHERE id = ?`, id.String(),
	)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDownloadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get download: %w", err)
	}
	return rec, nil
}

// List returns the most recent download records, newest first.
func (r *HistoryRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, quality, status, category, filename, file_path, error, created_at, completed_at
		 FROM downloads ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list downloads: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var id, quality, status, category string
	var completedAt sql.NullTime

	err := row.Scan(&id, &rec.URL, &quality, &status, &category,
		&rec.Filename, &rec.FilePath, &rec.Error, &rec.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	rec.ID = domain.DownloadID(id)
	rec.Quality = domain.Quality(quality)
	rec.Status = domain.DownloadStatus(status)
	rec.Category = domain.ErrorCategory(category)
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}

	return &rec, nil
}
