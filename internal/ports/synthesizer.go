package ports

import (
	"context"

	"github.com/adventurelabs/waypoint/internal/domain"
)

// Synthesizer folds accumulated run state into the final artifact.
// Feedback is non-empty when re-synthesizing after a reviewer requested
// revisions.
type Synthesizer interface {
	Synthesize(ctx context.Context, state *domain.RunState, feedback string) (*domain.Artifact, error)
}
