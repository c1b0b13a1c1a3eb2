package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v3"
	json "github.com/goccy/go-json"

	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// BadgerStore keeps archive records in the engine's badger database
// under the archive key prefix.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

func NewBadgerStore(db *badger.DB, logger *slog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With("component", "archive", "backend", "badger"),
	}
}

func (s *BadgerStore) Save(ctx context.Context, record *domain.ArchiveRecord) error {
	if err := ctx.Err(); err != nil {
		return domain.NewEngineError("archive", "save", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.NewEngineError("archive", "save", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(domain.ArchiveKey(record.ArchiveID), data)
	})
	if err != nil {
		return domain.NewEngineError("archive", "save", err)
	}
	s.logger.Debug("archive record saved",
		"archive_id", record.ArchiveID,
		"run_id", record.RunID)
	return nil
}

func (s *BadgerStore) Get(ctx context.Context, archiveID string) (*domain.ArchiveRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewEngineError("archive", "get", err)
	}
	var record domain.ArchiveRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(domain.ArchiveKey(archiveID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: archive %s", domain.ErrNotFound, archiveID)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, domain.NewEngineError("archive", "get", err)
	}
	return &record, nil
}

func (s *BadgerStore) List(ctx context.Context, limit, offset int) ([]ports.ArchiveSummary, error) {
	records, err := s.scan(ctx, nil)
	if err != nil {
		return nil, err
	}
	return paginate(records, limit, offset), nil
}

// Search matches the query case-insensitively against artifact titles
// and summaries.
func (s *BadgerStore) Search(ctx context.Context, query string, limit int) ([]ports.ArchiveSummary, error) {
	q := strings.ToLower(query)
	records, err := s.scan(ctx, func(record *domain.ArchiveRecord) bool {
		if record.Artifact == nil {
			return false
		}
		return strings.Contains(strings.ToLower(record.Artifact.Title), q) ||
			strings.Contains(strings.ToLower(record.Artifact.Summary), q)
	})
	if err != nil {
		return nil, err
	}
	return paginate(records, limit, 0), nil
}

func (s *BadgerStore) Close() error { return nil }

func (s *BadgerStore) scan(ctx context.Context, match func(*domain.ArchiveRecord) bool) ([]ports.ArchiveSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewEngineError("archive", "scan", err)
	}
	var summaries []ports.ArchiveSummary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(domain.ArchivePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record domain.ArchiveRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			if match != nil && !match(&record) {
				continue
			}
			summaries = append(summaries, summarize(&record))
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewEngineError("archive", "scan", err)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func summarize(record *domain.ArchiveRecord) ports.ArchiveSummary {
	title := ""
	if record.Artifact != nil {
		title = record.Artifact.Title
	}
	return ports.ArchiveSummary{
		ArchiveID:    record.ArchiveID,
		RunID:        record.RunID,
		Title:        title,
		ReviewStatus: record.ReviewStatus,
		CreatedAt:    record.CreatedAt,
	}
}

func paginate(summaries []ports.ArchiveSummary, limit, offset int) []ports.ArchiveSummary {
	if offset >= len(summaries) {
		return nil
	}
	summaries = summaries[offset:]
	if limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}
	return summaries
}
