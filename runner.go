package waypoint

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/adventurelabs/waypoint/internal/adapters/archive"
	"github.com/adventurelabs/waypoint/internal/adapters/checkpoint"
	"github.com/adventurelabs/waypoint/internal/adapters/executor"
	"github.com/adventurelabs/waypoint/internal/adapters/registry"
	"github.com/adventurelabs/waypoint/internal/adapters/scheduler"
	"github.com/adventurelabs/waypoint/internal/adapters/synthesis"
	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// Runner is the engine entry point. Create one with New, register
// workers, then call Run per request.
type Runner struct {
	mu     sync.Mutex
	closed bool

	config       domain.Config
	logger       *slog.Logger
	db           *badger.DB
	registry     *registry.Registry
	gate         *checkpoint.Gate
	archive      ports.ArchiveStore
	planner      ports.Planner
	synthesizer  ports.Synthesizer
	reviewPolicy scheduler.ReviewPolicy
	scheduler    *scheduler.Scheduler
}

// New opens the engine's stores and wires the pipeline. An empty
// DataDir runs fully in memory, which is what the tests use.
func New(config Config, planner Planner) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if planner == nil {
		return nil, domain.NewEngineError("engine", "init",
			fmt.Errorf("%w: planner is required", domain.ErrInvalidConfig))
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions("").WithInMemory(true)
	if config.DataDir != "" {
		opts = badger.DefaultOptions(filepath.Join(config.DataDir, "engine"))
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.NewEngineError("engine", "init", err)
	}

	store, err := archive.NewStore(config.Archive, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	r := &Runner{
		config:      config,
		logger:      logger,
		db:          db,
		registry:    registry.NewRegistry(logger),
		gate:        checkpoint.NewGate(db, logger),
		archive:     store,
		planner:     planner,
		synthesizer: synthesis.NewBuilder(logger),
	}
	r.rebuildScheduler()
	return r, nil
}

// WithSynthesizer replaces the default field-assembly synthesizer.
// Call before the first Run.
func (r *Runner) WithSynthesizer(s Synthesizer) *Runner {
	r.synthesizer = s
	r.rebuildScheduler()
	return r
}

// WithReviewPolicy replaces the default review trigger. Call before the
// first Run.
func (r *Runner) WithReviewPolicy(policy func(state *RunState) bool) *Runner {
	r.reviewPolicy = policy
	r.rebuildScheduler()
	return r
}

func (r *Runner) rebuildScheduler() {
	r.scheduler = scheduler.NewScheduler(r.config.Scheduler, r.config.Review, scheduler.Deps{
		Planner:      r.planner,
		Registry:     r.registry,
		Executor:     executor.NewExecutor(r.config.Executor, r.logger),
		Synthesizer:  r.synthesizer,
		Gate:         r.gate,
		Archive:      r.archive,
		ReviewPolicy: r.reviewPolicy,
	}, r.logger)
}

func (r *Runner) RegisterWorker(worker Worker) error {
	return r.registry.Register(worker)
}

// Run executes one request end to end. The returned result is either a
// finished run or a pause awaiting review.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if err := r.registry.Validate(); err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	state := domain.NewRunState(runID, req.Input, req.Metadata)
	return r.scheduler.Run(ctx, state)
}

// Resume continues a run paused for review. Each checkpoint can be
// resumed exactly once.
func (r *Runner) Resume(ctx context.Context, checkpointID string, decision ReviewDecision) (*RunResult, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.scheduler.Resume(ctx, checkpointID, decision)
}

// Archives exposes the archive store for retrieval and search.
func (r *Runner) Archives() ArchiveStore {
	return r.archive
}

func (r *Runner) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.NewEngineError("engine", "run", domain.ErrClosed)
	}
	return nil
}

func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if err := r.archive.Close(); err != nil {
		firstErr = err
	}
	if err := r.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return domain.NewEngineError("engine", "close", firstErr)
	}
	return nil
}
