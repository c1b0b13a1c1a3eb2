package checkpoint

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adventurelabs/waypoint/internal/domain"
)

func newGate(t *testing.T) *Gate {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewGate(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func pausedState(t *testing.T, g *Gate) (*domain.RunState, *domain.Checkpoint) {
	t.Helper()
	state := domain.NewRunState("run-1", "weekend hike", map[string]string{"user": "alex"})
	state.SetRequired([]string{"geo", "trail"})
	state.MarkCompleted("geo")
	state.Fields["geo"] = "region data"
	state.ReviewStatus = domain.ReviewPending

	checkpoint, err := g.Pause(context.Background(), state)
	require.NoError(t, err)
	return state, checkpoint
}

func TestPauseAndResume(t *testing.T) {
	g := newGate(t)
	state, checkpoint := pausedState(t, g)

	assert.NotEmpty(t, checkpoint.ID)
	assert.Equal(t, "run-1", checkpoint.RunID)

	restored, err := g.Resume(context.Background(), checkpoint.ID,
		domain.ReviewDecision{Status: domain.ReviewApproved})
	require.NoError(t, err)

	assert.Equal(t, state.RunID, restored.RunID)
	assert.Equal(t, state.Input, restored.Input)
	assert.Equal(t, state.Completed, restored.Completed)
	assert.Equal(t, "region data", restored.Fields["geo"])
	assert.Equal(t, domain.ReviewApproved, restored.ReviewStatus)
}

func TestResumeAppliesFeedback(t *testing.T) {
	g := newGate(t)
	_, checkpoint := pausedState(t, g)

	restored, err := g.Resume(context.Background(), checkpoint.ID,
		domain.ReviewDecision{Status: domain.ReviewNeedsRevision, Feedback: "add gear advice"})
	require.NoError(t, err)

	assert.Equal(t, domain.ReviewNeedsRevision, restored.ReviewStatus)
	assert.Equal(t, "add gear advice", restored.ReviewFeedback)
}

func TestResumeConsumesCheckpoint(t *testing.T) {
	g := newGate(t)
	_, checkpoint := pausedState(t, g)

	_, err := g.Resume(context.Background(), checkpoint.ID,
		domain.ReviewDecision{Status: domain.ReviewApproved})
	require.NoError(t, err)

	_, err = g.Resume(context.Background(), checkpoint.ID,
		domain.ReviewDecision{Status: domain.ReviewApproved})
	assert.ErrorIs(t, err, domain.ErrCheckpointConsumed)
}

func TestResumeUnknownCheckpoint(t *testing.T) {
	g := newGate(t)
	_, err := g.Resume(context.Background(), "ghost",
		domain.ReviewDecision{Status: domain.ReviewApproved})
	assert.ErrorIs(t, err, domain.ErrCheckpointConsumed)
}

func TestResumeInvalidDecision(t *testing.T) {
	g := newGate(t)
	_, checkpoint := pausedState(t, g)

	_, err := g.Resume(context.Background(), checkpoint.ID,
		domain.ReviewDecision{Status: "maybe"})
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)

	// an invalid decision does not consume the checkpoint
	_, err = g.Resume(context.Background(), checkpoint.ID,
		domain.ReviewDecision{Status: domain.ReviewRejected})
	assert.NoError(t, err)
}

func TestPauseCancelledContext(t *testing.T) {
	g := newGate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Pause(ctx, domain.NewRunState("run-1", "input", nil))
	assert.Error(t, err)
}
