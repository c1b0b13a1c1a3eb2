package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/adventurelabs/waypoint/internal/domain"
)

// Gate persists paused runs in badger and restores each checkpoint at
// most once.
type Gate struct {
	db     *badger.DB
	logger *slog.Logger
}

func NewGate(db *badger.DB, logger *slog.Logger) *Gate {
	return &Gate{
		db:     db,
		logger: logger.With("component", "checkpoint"),
	}
}

func (g *Gate) Pause(ctx context.Context, state *domain.RunState) (*domain.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewEngineError("checkpoint", "pause", err)
	}

	snapshot, err := state.Snapshot()
	if err != nil {
		return nil, err
	}
	checkpoint := &domain.Checkpoint{
		ID:        uuid.NewString(),
		RunID:     state.RunID,
		State:     snapshot,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return nil, domain.NewEngineError("checkpoint", "pause", err)
	}

	err = g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(domain.CheckpointKey(checkpoint.ID), data)
	})
	if err != nil {
		return nil, domain.NewEngineError("checkpoint", "pause", err)
	}

	g.logger.Debug("checkpoint written",
		"run_id", state.RunID,
		"checkpoint_id", checkpoint.ID)
	return checkpoint, nil
}

// Resume reads and deletes the checkpoint in a single transaction, so a
// checkpoint can only ever be consumed once.
func (g *Gate) Resume(ctx context.Context, checkpointID string, decision domain.ReviewDecision) (*domain.RunState, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewEngineError("checkpoint", "resume", err)
	}

	switch decision.Status {
	case domain.ReviewApproved, domain.ReviewRejected, domain.ReviewNeedsRevision:
	default:
		return nil, domain.NewEngineError("checkpoint", "resume",
			fmt.Errorf("%w: %q", domain.ErrInvalidDecision, decision.Status))
	}

	var data []byte
	err := g.db.Update(func(txn *badger.Txn) error {
		key := domain.CheckpointKey(checkpointID)
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrCheckpointConsumed
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return nil, domain.NewEngineError("checkpoint", "resume", err)
	}

	var checkpoint domain.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, domain.NewEngineError("checkpoint", "resume", err)
	}
	state, err := domain.RestoreRunState(checkpoint.State)
	if err != nil {
		return nil, err
	}

	state.ReviewStatus = decision.Status
	state.ReviewFeedback = decision.Feedback

	g.logger.Debug("checkpoint consumed",
		"run_id", state.RunID,
		"checkpoint_id", checkpointID,
		"decision", decision.Status)
	return state, nil
}
