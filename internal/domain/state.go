package domain

import (
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

type ReviewStatus string

const (
	ReviewNone          ReviewStatus = "none"
	ReviewPending       ReviewStatus = "pending"
	ReviewApproved      ReviewStatus = "approved"
	ReviewRejected      ReviewStatus = "rejected"
	ReviewNeedsRevision ReviewStatus = "needs_revision"
)

// RunState is the single mutable record accumulated over one run. It is
// owned exclusively by the scheduler; workers only ever see a StateView.
type RunState struct {
	RunID          string                 `json:"run_id"`
	Input          string                 `json:"input"`
	Instructions   map[string]string      `json:"instructions,omitempty"`
	Required       []string               `json:"required"`
	Completed      []string               `json:"completed"`
	Fields         map[string]interface{} `json:"fields"`
	Errors         []ErrorRecord          `json:"errors"`
	ReviewStatus   ReviewStatus           `json:"review_status"`
	ReviewFeedback string                 `json:"review_feedback,omitempty"`
	Artifact       *Artifact              `json:"artifact,omitempty"`
	ArchiveID      string                 `json:"archive_id,omitempty"`
	Replans        int                    `json:"replans"`
	Metadata       map[string]string      `json:"metadata,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
}

func NewRunState(runID, input string, metadata map[string]string) *RunState {
	return &RunState{
		RunID:        runID,
		Input:        input,
		Fields:       make(map[string]interface{}),
		ReviewStatus: ReviewNone,
		Metadata:     metadata,
		StartedAt:    time.Now(),
	}
}

func (s *RunState) IsCompleted(name string) bool {
	for _, c := range s.Completed {
		if c == name {
			return true
		}
	}
	return false
}

// MarkCompleted appends name to the completed set. The set is append-only
// within a run; marking an already-completed worker is a no-op.
func (s *RunState) MarkCompleted(name string) {
	if s.IsCompleted(name) {
		return
	}
	s.Completed = append(s.Completed, name)
}

// Remaining returns required minus completed, sorted for deterministic
// iteration order.
func (s *RunState) Remaining() []string {
	var remaining []string
	for _, name := range s.Required {
		if !s.IsCompleted(name) {
			remaining = append(remaining, name)
		}
	}
	sort.Strings(remaining)
	return remaining
}

// SetRequired replaces the required set. Completed workers are preserved,
// so a re-plan never causes finished work to be re-run.
func (s *RunState) SetRequired(names []string) {
	s.Required = append([]string(nil), names...)
}

func (s *RunState) RecordError(rec ErrorRecord) {
	s.Errors = append(s.Errors, rec)
}

func (s *RunState) HasErrorKind(kind ErrorKind) bool {
	for _, rec := range s.Errors {
		if rec.Kind == kind {
			return true
		}
	}
	return false
}

// View builds the read-only projection handed to workers. Maps are copied
// shallowly; the scheduler never mutates state while a batch is in flight,
// so the projection is stable for the duration of a dispatch.
func (s *RunState) View() StateView {
	fields := make(map[string]interface{}, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	completed := append([]string(nil), s.Completed...)
	return StateView{
		RunID:     s.RunID,
		Input:     s.Input,
		Fields:    fields,
		Completed: completed,
		Metadata:  s.Metadata,
	}
}

func (s *RunState) Snapshot() (json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, NewEngineError("state", "snapshot", err)
	}
	return data, nil
}

func RestoreRunState(data json.RawMessage) (*RunState, error) {
	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, NewEngineError("state", "restore", err)
	}
	if state.Fields == nil {
		state.Fields = make(map[string]interface{})
	}
	return &state, nil
}

// StateView is the read-only projection of RunState that workers receive.
type StateView struct {
	RunID     string
	Input     string
	Fields    map[string]interface{}
	Completed []string
	Metadata  map[string]string
}

func (v StateView) Field(name string) (interface{}, bool) {
	value, ok := v.Fields[name]
	return value, ok
}

func (v StateView) HasCompleted(name string) bool {
	for _, c := range v.Completed {
		if c == name {
			return true
		}
	}
	return false
}
