package ports

import (
	"context"
	"time"

	"github.com/adventurelabs/waypoint/internal/domain"
)

// ArchiveSummary is the listing projection of an archived run.
type ArchiveSummary struct {
	ArchiveID    string              `json:"archive_id"`
	RunID        string              `json:"run_id"`
	Title        string              `json:"title"`
	ReviewStatus domain.ReviewStatus `json:"review_status"`
	CreatedAt    time.Time           `json:"created_at"`
}

// ArchiveStore persists finished runs for later retrieval.
type ArchiveStore interface {
	Save(ctx context.Context, record *domain.ArchiveRecord) error
	Get(ctx context.Context, archiveID string) (*domain.ArchiveRecord, error)
	List(ctx context.Context, limit, offset int) ([]ArchiveSummary, error)
	Search(ctx context.Context, query string, limit int) ([]ArchiveSummary, error)
	Close() error
}
