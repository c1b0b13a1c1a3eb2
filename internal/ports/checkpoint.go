package ports

import (
	"context"

	"github.com/adventurelabs/waypoint/internal/domain"
)

// CheckpointGate persists a paused run and restores it exactly once.
type CheckpointGate interface {
	Pause(ctx context.Context, state *domain.RunState) (*domain.Checkpoint, error)

	// Resume consumes the checkpoint and applies the review decision.
	// A second resume of the same checkpoint fails with
	// domain.ErrCheckpointConsumed.
	Resume(ctx context.Context, checkpointID string, decision domain.ReviewDecision) (*domain.RunState, error)
}
