package domain

import (
	"time"

	json "github.com/goccy/go-json"
)

// Checkpoint is a durable snapshot of a paused run.
type Checkpoint struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReviewDecision is the reviewer's verdict applied on resume.
type ReviewDecision struct {
	Status   ReviewStatus `json:"status"`
	Feedback string       `json:"feedback,omitempty"`
}

// ArchiveRecord is the persisted form of a finished run.
type ArchiveRecord struct {
	ArchiveID    string            `json:"archive_id"`
	RunID        string            `json:"run_id"`
	Artifact     *Artifact         `json:"artifact"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ReviewStatus ReviewStatus      `json:"review_status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RunRequest carries the caller's input for a new run.
type RunRequest struct {
	RunID    string            `json:"run_id,omitempty"`
	Input    string            `json:"input"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RunResult reports where a run ended up. Phase is PhaseDone for a
// finished run and PhaseAwaitingReview for a paused one.
type RunResult struct {
	RunID        string        `json:"run_id"`
	Phase        Phase         `json:"phase"`
	Artifact     *Artifact     `json:"artifact,omitempty"`
	ArchiveID    string        `json:"archive_id,omitempty"`
	CheckpointID string        `json:"checkpoint_id,omitempty"`
	Errors       []ErrorRecord `json:"errors,omitempty"`
}
