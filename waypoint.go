// Package waypoint is an execution engine for multi-worker
// recommendation pipelines. A planner selects a set of specialist
// workers, the engine runs them concurrently in dependency order while
// classifying and absorbing their failures, and a synthesizer folds the
// accumulated results into a single artifact that can pause for human
// review before being archived.
package waypoint

import (
	"github.com/adventurelabs/waypoint/internal/adapters/scheduler"
	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// Worker is implemented by each specialist in the pipeline.
type Worker = ports.Worker

// Planner decides which workers a run needs.
type Planner = ports.Planner

// Plan is the planner's worker selection.
type Plan = ports.Plan

// Synthesizer folds run state into the final artifact.
type Synthesizer = ports.Synthesizer

// ArchiveStore persists finished runs.
type ArchiveStore = ports.ArchiveStore

// ArchiveSummary is the listing projection of an archived run.
type ArchiveSummary = ports.ArchiveSummary

// ReviewPolicy decides whether a run pauses for human review.
type ReviewPolicy = scheduler.ReviewPolicy

type (
	WorkerDescriptor = domain.WorkerDescriptor
	StateView        = domain.StateView
	RunState         = domain.RunState
	RunRequest       = domain.RunRequest
	RunResult        = domain.RunResult
	Artifact         = domain.Artifact
	Checkpoint       = domain.Checkpoint
	ReviewDecision   = domain.ReviewDecision
	ArchiveRecord    = domain.ArchiveRecord
	ErrorRecord      = domain.ErrorRecord
	ErrorKind        = domain.ErrorKind
	Outcome          = domain.Outcome
	OutcomeKind      = domain.OutcomeKind
	Phase            = domain.Phase
	ReviewStatus     = domain.ReviewStatus

	Config               = domain.Config
	SchedulerConfig      = domain.SchedulerConfig
	EarlySynthesisConfig = domain.EarlySynthesisConfig
	ExecutorConfig       = domain.ExecutorConfig
	ReviewConfig         = domain.ReviewConfig
	ArchiveConfig        = domain.ArchiveConfig
)

const (
	ErrorKindTransient   = domain.ErrorKindTransient
	ErrorKindPermanent   = domain.ErrorKindPermanent
	ErrorKindUserFixable = domain.ErrorKindUserFixable
	ErrorKindReplanning  = domain.ErrorKindReplanning

	OutcomeCompleted = domain.OutcomeCompleted
	OutcomeDegraded  = domain.OutcomeDegraded
	OutcomeReplan    = domain.OutcomeReplan
	OutcomeHalt      = domain.OutcomeHalt

	PhasePlanning       = domain.PhasePlanning
	PhaseRunning        = domain.PhaseRunning
	PhaseEarlySynthesis = domain.PhaseEarlySynthesis
	PhaseSynthesizing   = domain.PhaseSynthesizing
	PhaseAwaitingReview = domain.PhaseAwaitingReview
	PhaseArchiving      = domain.PhaseArchiving
	PhaseDone           = domain.PhaseDone

	ReviewNone          = domain.ReviewNone
	ReviewPending       = domain.ReviewPending
	ReviewApproved      = domain.ReviewApproved
	ReviewRejected      = domain.ReviewRejected
	ReviewNeedsRevision = domain.ReviewNeedsRevision

	ArchiveBackendBadger = domain.ArchiveBackendBadger
	ArchiveBackendSQLite = domain.ArchiveBackendSQLite
	ArchiveBackendNone   = domain.ArchiveBackendNone
)

var (
	ErrNotFound           = domain.ErrNotFound
	ErrDuplicateWorker    = domain.ErrDuplicateWorker
	ErrDependencyCycle    = domain.ErrDependencyCycle
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrInvalidDecision    = domain.ErrInvalidDecision
	ErrCheckpointConsumed = domain.ErrCheckpointConsumed
	ErrClosed             = domain.ErrClosed
	ErrHalt               = domain.ErrHalt
	ErrRequestReplan      = domain.ErrRequestReplan
)

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return domain.DefaultConfig()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	return domain.LoadConfig(path)
}

// NormalizeWorkerName maps a free-form worker reference to its
// canonical name.
func NormalizeWorkerName(name string) (string, bool) {
	return domain.NormalizeWorkerName(name)
}

// ClassifyError maps an error to the kind that decides the engine's
// reaction to it.
func ClassifyError(err error) ErrorKind {
	return domain.Classify(err)
}
