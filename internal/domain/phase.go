package domain

// Phase names a stage of the run state machine.
type Phase string

const (
	PhasePlanning       Phase = "planning"
	PhaseRunning        Phase = "running"
	PhaseEarlySynthesis Phase = "early_synthesis"
	PhaseSynthesizing   Phase = "synthesizing"
	PhaseAwaitingReview Phase = "awaiting_review"
	PhaseArchiving      Phase = "archiving"
	PhaseDone           Phase = "done"
)
