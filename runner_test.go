package waypoint_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	waypoint "github.com/adventurelabs/waypoint"
)

type tripWorker struct {
	desc    waypoint.WorkerDescriptor
	execute func(ctx context.Context, view waypoint.StateView, instruction string) (map[string]interface{}, error)
}

func (w *tripWorker) Descriptor() waypoint.WorkerDescriptor { return w.desc }

func (w *tripWorker) CanRunWithout(string, waypoint.StateView) bool { return false }

func (w *tripWorker) Execute(ctx context.Context, view waypoint.StateView, instruction string) (map[string]interface{}, error) {
	if w.execute != nil {
		return w.execute(ctx, view, instruction)
	}
	return map[string]interface{}{w.desc.Name: w.desc.Name + " output"}, nil
}

type staticPlanner struct {
	required []string
}

func (p *staticPlanner) Plan(context.Context, string, []waypoint.ErrorRecord) (*waypoint.Plan, error) {
	return &waypoint.Plan{Required: p.required}, nil
}

func testConfig() waypoint.Config {
	cfg := waypoint.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func newRunner(t *testing.T, cfg waypoint.Config, planner waypoint.Planner) *waypoint.Runner {
	t.Helper()
	r, err := waypoint.New(cfg, planner)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRunnerEndToEnd(t *testing.T) {
	r := newRunner(t, testConfig(), &staticPlanner{required: []string{"geo", "trail"}})
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "geo"}}))
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "trail", Dependencies: []string{"geo"}}}))

	result, err := r.Run(context.Background(), waypoint.RunRequest{Input: "weekend hike near Oslo"})
	require.NoError(t, err)

	assert.Equal(t, waypoint.PhaseDone, result.Phase)
	require.NotNil(t, result.Artifact)
	assert.Contains(t, result.Artifact.Sections, "geo")
	assert.Contains(t, result.Artifact.Sections, "trail")
	require.NotEmpty(t, result.ArchiveID)

	record, err := r.Archives().Get(context.Background(), result.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, record.RunID)

	summaries, err := r.Archives().List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestRunnerPersistentDataDir(t *testing.T) {
	cfg := testConfig()
	cfg.DataDir = t.TempDir()
	r := newRunner(t, cfg, &staticPlanner{required: []string{"geo"}})
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "geo"}}))

	result, err := r.Run(context.Background(), waypoint.RunRequest{Input: "input"})
	require.NoError(t, err)
	assert.Equal(t, waypoint.PhaseDone, result.Phase)
}

func TestRunnerReviewRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Review.AlwaysReview = true
	r := newRunner(t, cfg, &staticPlanner{required: []string{"geo"}})
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "geo"}}))

	paused, err := r.Run(context.Background(), waypoint.RunRequest{Input: "input"})
	require.NoError(t, err)
	require.Equal(t, waypoint.PhaseAwaitingReview, paused.Phase)
	require.NotEmpty(t, paused.CheckpointID)

	done, err := r.Resume(context.Background(), paused.CheckpointID,
		waypoint.ReviewDecision{Status: waypoint.ReviewApproved})
	require.NoError(t, err)
	assert.Equal(t, waypoint.PhaseDone, done.Phase)
	assert.NotEmpty(t, done.ArchiveID)

	_, err = r.Resume(context.Background(), paused.CheckpointID,
		waypoint.ReviewDecision{Status: waypoint.ReviewApproved})
	assert.ErrorIs(t, err, waypoint.ErrCheckpointConsumed)
}

func TestRunnerCustomReviewPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Review.AlwaysReview = true
	r := newRunner(t, cfg, &staticPlanner{required: []string{"geo"}})
	r.WithReviewPolicy(func(*waypoint.RunState) bool { return false })
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "geo"}}))

	result, err := r.Run(context.Background(), waypoint.RunRequest{Input: "input"})
	require.NoError(t, err)
	assert.Equal(t, waypoint.PhaseDone, result.Phase)
}

func TestRunnerCustomSynthesizer(t *testing.T) {
	r := newRunner(t, testConfig(), &staticPlanner{required: []string{"geo"}})
	r.WithSynthesizer(synthesizerFunc(func(_ context.Context, state *waypoint.RunState, _ string) (*waypoint.Artifact, error) {
		return &waypoint.Artifact{Title: "custom", Sections: map[string]interface{}{}}, nil
	}))
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "geo"}}))

	result, err := r.Run(context.Background(), waypoint.RunRequest{Input: "input"})
	require.NoError(t, err)
	require.NotNil(t, result.Artifact)
	assert.Equal(t, "custom", result.Artifact.Title)
}

type synthesizerFunc func(ctx context.Context, state *waypoint.RunState, feedback string) (*waypoint.Artifact, error)

func (f synthesizerFunc) Synthesize(ctx context.Context, state *waypoint.RunState, feedback string) (*waypoint.Artifact, error) {
	return f(ctx, state, feedback)
}

func TestRunnerRejectsCyclicWorkers(t *testing.T) {
	r := newRunner(t, testConfig(), &staticPlanner{required: []string{"geo"}})
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "geo", Dependencies: []string{"trail"}}}))
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "trail", Dependencies: []string{"geo"}}}))

	_, err := r.Run(context.Background(), waypoint.RunRequest{Input: "input"})
	assert.ErrorIs(t, err, waypoint.ErrDependencyCycle)
}

func TestRunnerRequiresPlanner(t *testing.T) {
	_, err := waypoint.New(testConfig(), nil)
	assert.ErrorIs(t, err, waypoint.ErrInvalidConfig)
}

func TestRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.MaxConcurrency = 0
	_, err := waypoint.New(cfg, &staticPlanner{})
	assert.ErrorIs(t, err, waypoint.ErrInvalidConfig)
}

func TestRunnerClosed(t *testing.T) {
	r, err := waypoint.New(testConfig(), &staticPlanner{required: []string{"geo"}})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Run(context.Background(), waypoint.RunRequest{Input: "input"})
	assert.ErrorIs(t, err, waypoint.ErrClosed)
}

func TestRunnerDegradedWorkerStillFinishes(t *testing.T) {
	r := newRunner(t, testConfig(), &staticPlanner{required: []string{"geo", "trail"}})
	require.NoError(t, r.RegisterWorker(&tripWorker{
		desc: waypoint.WorkerDescriptor{Name: "geo"},
		execute: func(context.Context, waypoint.StateView, string) (map[string]interface{}, error) {
			return nil, errors.New("boom")
		},
	}))
	require.NoError(t, r.RegisterWorker(&tripWorker{desc: waypoint.WorkerDescriptor{Name: "trail"}}))

	result, err := r.Run(context.Background(), waypoint.RunRequest{Input: "input"})
	require.NoError(t, err)

	assert.Equal(t, waypoint.PhaseDone, result.Phase)
	require.NotNil(t, result.Artifact)
	assert.Contains(t, result.Artifact.Sections, "trail")
	assert.NotEmpty(t, result.Errors)
}
