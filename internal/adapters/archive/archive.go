package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"

	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// NewStore builds the archive backend selected by the configuration.
// The none backend discards everything, for callers that handle results
// inline and do not want persistence.
func NewStore(cfg domain.ArchiveConfig, db *badger.DB, logger *slog.Logger) (ports.ArchiveStore, error) {
	switch cfg.Backend {
	case domain.ArchiveBackendNone:
		return noopStore{}, nil
	case domain.ArchiveBackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case domain.ArchiveBackendBadger:
		return NewBadgerStore(db, logger), nil
	default:
		return nil, domain.NewEngineError("archive", "init",
			fmt.Errorf("%w: unknown archive backend %q", domain.ErrInvalidConfig, cfg.Backend))
	}
}

type noopStore struct{}

func (noopStore) Save(context.Context, *domain.ArchiveRecord) error { return nil }

func (noopStore) Get(_ context.Context, archiveID string) (*domain.ArchiveRecord, error) {
	return nil, domain.NewEngineError("archive", "get",
		fmt.Errorf("%w: archive %s", domain.ErrNotFound, archiveID))
}

func (noopStore) List(context.Context, int, int) ([]ports.ArchiveSummary, error) {
	return nil, nil
}

func (noopStore) Search(context.Context, string, int) ([]ports.ArchiveSummary, error) {
	return nil, nil
}

func (noopStore) Close() error { return nil }
