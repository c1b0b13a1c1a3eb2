package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// SQLiteStore keeps archive records in a standalone SQLite file, for
// deployments that want the archive queryable outside the engine.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS archives (
	archive_id    TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	summary       TEXT NOT NULL DEFAULT '',
	review_status TEXT NOT NULL DEFAULT 'none',
	record        TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archives_created_at ON archives(created_at);
`

func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewEngineError("archive", "init", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, domain.NewEngineError("archive", "init", err)
	}
	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "archive", "backend", "sqlite"),
	}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, record *domain.ArchiveRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return domain.NewEngineError("archive", "save", err)
	}
	title, summary := "", ""
	if record.Artifact != nil {
		title = record.Artifact.Title
		summary = record.Artifact.Summary
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO archives (archive_id, run_id, title, summary, review_status, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ArchiveID, record.RunID, title, summary,
		string(record.ReviewStatus), string(data), record.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domain.NewEngineError("archive", "save", err)
	}
	s.logger.Debug("archive record saved",
		"archive_id", record.ArchiveID,
		"run_id", record.RunID)
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, archiveID string) (*domain.ArchiveRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM archives WHERE archive_id = ?`, archiveID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewEngineError("archive", "get",
			fmt.Errorf("%w: archive %s", domain.ErrNotFound, archiveID))
	}
	if err != nil {
		return nil, domain.NewEngineError("archive", "get", err)
	}
	var record domain.ArchiveRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, domain.NewEngineError("archive", "get", err)
	}
	return &record, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]ports.ArchiveSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT archive_id, run_id, title, review_status, created_at
		 FROM archives ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, domain.NewEngineError("archive", "list", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]ports.ArchiveSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT archive_id, run_id, title, review_status, created_at
		 FROM archives
		 WHERE title LIKE ? COLLATE NOCASE OR summary LIKE ? COLLATE NOCASE
		 ORDER BY created_at DESC LIMIT ?`,
		pattern, pattern, limit)
	if err != nil {
		return nil, domain.NewEngineError("archive", "search", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSummaries(rows *sql.Rows) ([]ports.ArchiveSummary, error) {
	var summaries []ports.ArchiveSummary
	for rows.Next() {
		var summary ports.ArchiveSummary
		var status, createdAt string
		if err := rows.Scan(&summary.ArchiveID, &summary.RunID, &summary.Title, &status, &createdAt); err != nil {
			return nil, domain.NewEngineError("archive", "scan", err)
		}
		summary.ReviewStatus = domain.ReviewStatus(status)
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, domain.NewEngineError("archive", "scan", err)
		}
		summary.CreatedAt = ts
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewEngineError("archive", "scan", err)
	}
	return summaries, nil
}
