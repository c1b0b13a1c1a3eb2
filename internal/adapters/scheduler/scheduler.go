package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// ReviewPolicy decides whether a run must pause for human review before
// archiving. The default policy pauses when a user-fixable error was
// recorded or the configuration forces review on every run.
type ReviewPolicy func(state *domain.RunState) bool

// Executor is the narrow execution contract the scheduler needs; the
// concrete executor adapter satisfies it.
type Executor interface {
	Run(ctx context.Context, worker ports.Worker, view domain.StateView, instruction string) domain.Outcome
}

// Scheduler drives a run through the phase machine: planning, batched
// dispatch, synthesis, optional review pause, and archiving.
type Scheduler struct {
	config       domain.SchedulerConfig
	review       domain.ReviewConfig
	planner      ports.Planner
	registry     ports.WorkerRegistry
	executor     Executor
	synthesizer  ports.Synthesizer
	gate         ports.CheckpointGate
	archive      ports.ArchiveStore
	reviewPolicy ReviewPolicy
	logger       *slog.Logger
}

type Deps struct {
	Planner      ports.Planner
	Registry     ports.WorkerRegistry
	Executor     Executor
	Synthesizer  ports.Synthesizer
	Gate         ports.CheckpointGate
	Archive      ports.ArchiveStore
	ReviewPolicy ReviewPolicy
}

func NewScheduler(config domain.SchedulerConfig, review domain.ReviewConfig, deps Deps, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		config:       config,
		review:       review,
		planner:      deps.Planner,
		registry:     deps.Registry,
		executor:     deps.Executor,
		synthesizer:  deps.Synthesizer,
		gate:         deps.Gate,
		archive:      deps.Archive,
		reviewPolicy: deps.ReviewPolicy,
		logger:       logger.With("component", "scheduler"),
	}
}

// Run drives a fresh run from planning to completion or a review pause.
func (s *Scheduler) Run(ctx context.Context, state *domain.RunState) (*domain.RunResult, error) {
	s.logger.Debug("run starting",
		"run_id", state.RunID,
		"input_length", len(state.Input))
	return s.drive(ctx, state, domain.PhasePlanning)
}

// Resume consumes a checkpoint, applies the review decision, and drives
// the restored run to completion.
func (s *Scheduler) Resume(ctx context.Context, checkpointID string, decision domain.ReviewDecision) (*domain.RunResult, error) {
	if s.gate == nil {
		return nil, domain.NewEngineError("scheduler", "resume", domain.ErrCheckpointConsumed)
	}
	state, err := s.gate.Resume(ctx, checkpointID, decision)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("run resumed",
		"run_id", state.RunID,
		"checkpoint_id", checkpointID,
		"decision", decision.Status)

	phase := domain.PhaseArchiving
	if state.ReviewStatus == domain.ReviewNeedsRevision {
		phase = domain.PhaseSynthesizing
	}
	return s.drive(ctx, state, phase)
}

func (s *Scheduler) drive(ctx context.Context, state *domain.RunState, phase domain.Phase) (*domain.RunResult, error) {
	for {
		switch phase {
		case domain.PhasePlanning:
			phase = s.plan(ctx, state)

		case domain.PhaseRunning:
			phase = s.runLoop(ctx, state)

		case domain.PhaseEarlySynthesis:
			s.logger.Info("core workers complete, synthesizing early",
				"run_id", state.RunID,
				"skipped", state.Remaining())
			phase = s.synthesize(ctx, state)

		case domain.PhaseSynthesizing:
			phase = s.synthesize(ctx, state)

		case domain.PhaseAwaitingReview:
			result, next := s.pauseForReview(ctx, state)
			if result != nil {
				return result, nil
			}
			phase = next

		case domain.PhaseArchiving:
			phase = s.archiveRun(ctx, state)

		case domain.PhaseDone:
			return &domain.RunResult{
				RunID:     state.RunID,
				Phase:     domain.PhaseDone,
				Artifact:  state.Artifact,
				ArchiveID: state.ArchiveID,
				Errors:    state.Errors,
			}, nil
		}
	}
}

// plan asks the planner for the required worker set. Planner failure is
// never fatal: the configured fallback set keeps the run moving.
func (s *Scheduler) plan(ctx context.Context, state *domain.RunState) domain.Phase {
	plan, err := s.planner.Plan(ctx, state.Input, state.Errors)
	if err != nil {
		state.RecordError(domain.NewErrorRecord("planner", domain.Classify(err), err))
		s.logger.Warn("planner failed, using fallback set",
			"run_id", state.RunID,
			"fallback", s.config.FallbackRequired,
			"error", err)
		plan = &ports.Plan{Required: s.config.FallbackRequired}
	}

	required := s.normalizeRequired(state.RunID, plan.Required)
	if len(required) == 0 {
		required = s.normalizeRequired(state.RunID, s.config.FallbackRequired)
	}
	state.SetRequired(required)

	if plan.Instructions != nil {
		instructions := make(map[string]string, len(plan.Instructions))
		for name, instruction := range plan.Instructions {
			if canonical, ok := domain.NormalizeWorkerName(name); ok {
				instructions[canonical] = instruction
			}
		}
		state.Instructions = instructions
	}

	s.logger.Debug("plan established",
		"run_id", state.RunID,
		"required", required,
		"replans", state.Replans)

	if len(state.Remaining()) == 0 {
		return domain.PhaseSynthesizing
	}
	return domain.PhaseRunning
}

// normalizeRequired canonicalizes planner output and drops names that do
// not resolve to a registered worker.
func (s *Scheduler) normalizeRequired(runID string, names []string) []string {
	seen := make(map[string]bool, len(names))
	var required []string
	for _, raw := range names {
		name, ok := domain.NormalizeWorkerName(raw)
		if !ok {
			s.logger.Warn("dropping unrecognizable worker name",
				"run_id", runID,
				"name", raw)
			continue
		}
		if _, err := s.registry.Resolve(name); err != nil {
			s.logger.Warn("dropping unregistered worker",
				"run_id", runID,
				"name", name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		required = append(required, name)
	}
	sort.Strings(required)
	return required
}

func (s *Scheduler) runLoop(ctx context.Context, state *domain.RunState) domain.Phase {
	for {
		if ctx.Err() != nil {
			s.logger.Warn("run cancelled, synthesizing with partial results",
				"run_id", state.RunID,
				"remaining", state.Remaining())
			return domain.PhaseSynthesizing
		}

		remaining := state.Remaining()
		if len(remaining) == 0 {
			return domain.PhaseSynthesizing
		}
		if s.earlyExit(state, remaining) {
			return domain.PhaseEarlySynthesis
		}

		ready := s.readySet(state, remaining)
		if len(ready) == 0 {
			// Nothing is dispatchable but work remains: dependencies
			// reference workers that will never complete. Force the
			// first remaining worker so the loop always makes progress.
			forced := remaining[0]
			s.logger.Warn("no worker ready, forcing dispatch",
				"run_id", state.RunID,
				"worker", forced,
				"remaining", remaining)
			ready = []string{forced}
		}

		outcomes := s.dispatch(ctx, state, ready)
		if next, done := s.fold(state, outcomes); done {
			return next
		}
	}
}

// earlyExit reports whether the core worker set has delivered enough to
// synthesize without waiting for the remaining non-core workers.
func (s *Scheduler) earlyExit(state *domain.RunState, remaining []string) bool {
	es := s.config.EarlySynthesis
	if !es.Enabled || len(es.CoreWorkers) == 0 {
		return false
	}

	core := make(map[string]bool, len(es.CoreWorkers))
	for _, name := range es.CoreWorkers {
		core[name] = true
	}
	for _, name := range remaining {
		if core[name] {
			return false
		}
	}

	completed := 0
	fieldPresent := false
	for _, name := range state.Completed {
		if !core[name] {
			continue
		}
		completed++
		if v, ok := state.Fields[name]; ok && v != nil {
			fieldPresent = true
		}
	}
	return completed >= es.MinCoreCompleted && fieldPresent
}

// readySet returns the remaining workers whose dependencies are either
// completed or declared skippable via CanRunWithout.
func (s *Scheduler) readySet(state *domain.RunState, remaining []string) []string {
	view := state.View()
	var ready []string
	for _, name := range remaining {
		worker, err := s.registry.Resolve(name)
		if err != nil {
			continue
		}
		blocked := false
		for _, dep := range worker.Descriptor().Dependencies {
			depName, ok := domain.NormalizeWorkerName(dep)
			if !ok {
				continue
			}
			if state.IsCompleted(depName) {
				continue
			}
			if worker.CanRunWithout(depName, view) {
				continue
			}
			blocked = true
			break
		}
		if !blocked {
			ready = append(ready, name)
		}
	}
	return ready
}

// dispatch runs a batch of ready workers concurrently, bounded by
// MaxConcurrency. Outcomes land in a slice indexed by batch position so
// folding is deterministic regardless of completion order.
func (s *Scheduler) dispatch(ctx context.Context, state *domain.RunState, ready []string) []domain.Outcome {
	s.logger.Debug("dispatching batch",
		"run_id", state.RunID,
		"workers", ready)

	view := state.View()
	outcomes := make([]domain.Outcome, len(ready))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrency)
	for i, name := range ready {
		i, name := i, name
		g.Go(func() error {
			worker, err := s.registry.Resolve(name)
			if err != nil {
				rec := domain.NewErrorRecord(name, domain.ErrorKindPermanent, err)
				outcomes[i] = domain.NewDegraded(name, nil, &rec)
				return nil
			}
			out := s.executor.Run(gctx, worker, view, state.Instructions[name])
			// Bookkeeping is keyed on the canonical name, which may
			// differ from the descriptor's spelling.
			out.Worker = name
			if out.Record != nil {
				out.Record.Worker = name
			}
			outcomes[i] = out
			return nil
		})
	}
	g.Wait()
	return outcomes
}

// fold applies a batch of outcomes to the state serially. A halt outcome
// wins over a replan request in the same batch; the other outcomes in
// the batch are still folded so their fields and errors are not lost.
func (s *Scheduler) fold(state *domain.RunState, outcomes []domain.Outcome) (domain.Phase, bool) {
	var replan, halt *domain.Outcome
	for i := range outcomes {
		out := &outcomes[i]
		switch out.Kind {
		case domain.OutcomeCompleted, domain.OutcomeDegraded:
			if len(out.Update) > 0 {
				merged, err := domain.MergeFields(state.Fields, out.Update)
				if err != nil {
					state.RecordError(domain.NewErrorRecord(out.Worker, domain.ErrorKindPermanent, err))
				} else {
					state.Fields = merged
				}
			}
			state.MarkCompleted(out.Worker)
			if out.Record != nil {
				state.RecordError(*out.Record)
			}
		case domain.OutcomeReplan:
			if out.Record != nil {
				state.RecordError(*out.Record)
			}
			replan = out
		case domain.OutcomeHalt:
			if out.Record != nil {
				state.RecordError(*out.Record)
			}
			halt = out
		}
	}

	if halt != nil {
		s.logger.Error("halting run after fatal worker fault",
			"run_id", state.RunID,
			"worker", halt.Worker)
		return domain.PhaseSynthesizing, true
	}
	if replan != nil {
		return s.routeReplan(state, replan.Worker), true
	}
	return "", false
}

func (s *Scheduler) routeReplan(state *domain.RunState, worker string) domain.Phase {
	if state.Replans >= s.config.MaxReplans {
		s.logger.Warn("replan budget exhausted, synthesizing with partial results",
			"run_id", state.RunID,
			"worker", worker,
			"replans", state.Replans)
		return domain.PhaseSynthesizing
	}
	state.Replans++
	s.logger.Info("replanning",
		"run_id", state.RunID,
		"worker", worker,
		"replans", state.Replans)
	return domain.PhasePlanning
}

// synthesize builds the artifact. Cancellation and synthesis failure
// both degrade to the minimal artifact rather than failing the run.
func (s *Scheduler) synthesize(ctx context.Context, state *domain.RunState) domain.Phase {
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	synthCtx, cancel := context.WithTimeout(ctx, s.config.SynthesisTimeout)
	defer cancel()

	feedback := ""
	if state.ReviewStatus == domain.ReviewNeedsRevision {
		feedback = state.ReviewFeedback
	}

	artifact, err := s.synthesizer.Synthesize(synthCtx, state, feedback)
	if err != nil {
		state.RecordError(domain.NewErrorRecord("synthesizer", domain.Classify(err), err))
		s.logger.Error("synthesis failed, using minimal artifact",
			"run_id", state.RunID,
			"error", err)
		artifact = domain.MinimalArtifact(state)
	}
	state.Artifact = artifact

	// A revision round goes straight to archiving; the reviewer already
	// weighed in once.
	if state.ReviewStatus == domain.ReviewNeedsRevision {
		return domain.PhaseArchiving
	}

	if s.needsReview(state) {
		state.ReviewStatus = domain.ReviewPending
		artifact.ReviewStatus = domain.ReviewPending
		return domain.PhaseAwaitingReview
	}
	return domain.PhaseArchiving
}

func (s *Scheduler) needsReview(state *domain.RunState) bool {
	if s.gate == nil || !s.review.Enabled {
		return false
	}
	if s.reviewPolicy != nil {
		return s.reviewPolicy(state)
	}
	return s.review.AlwaysReview || state.HasErrorKind(domain.ErrorKindUserFixable)
}

// pauseForReview checkpoints the run. On success it returns the paused
// result; on failure the run proceeds to archiving with the error
// recorded.
func (s *Scheduler) pauseForReview(ctx context.Context, state *domain.RunState) (*domain.RunResult, domain.Phase) {
	checkpoint, err := s.gate.Pause(ctx, state)
	if err != nil {
		state.RecordError(domain.NewErrorRecord("checkpoint", domain.Classify(err), err))
		s.logger.Error("checkpoint failed, archiving without review",
			"run_id", state.RunID,
			"error", err)
		return nil, domain.PhaseArchiving
	}

	s.logger.Info("run paused for review",
		"run_id", state.RunID,
		"checkpoint_id", checkpoint.ID)
	return &domain.RunResult{
		RunID:        state.RunID,
		Phase:        domain.PhaseAwaitingReview,
		Artifact:     state.Artifact,
		CheckpointID: checkpoint.ID,
		Errors:       state.Errors,
	}, ""
}

// archiveRun persists the finished run. Archiving is best effort and
// never blocks completion.
func (s *Scheduler) archiveRun(ctx context.Context, state *domain.RunState) domain.Phase {
	if s.archive == nil {
		return domain.PhaseDone
	}

	record := &domain.ArchiveRecord{
		ArchiveID:    uuid.NewString(),
		RunID:        state.RunID,
		Artifact:     state.Artifact,
		Metadata:     state.Metadata,
		ReviewStatus: state.ReviewStatus,
		CreatedAt:    time.Now(),
	}
	if err := s.archive.Save(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Error("archive failed",
			"run_id", state.RunID,
			"error", err)
		return domain.PhaseDone
	}
	state.ArchiveID = record.ArchiveID

	s.logger.Debug("run archived",
		"run_id", state.RunID,
		"archive_id", record.ArchiveID)
	return domain.PhaseDone
}
