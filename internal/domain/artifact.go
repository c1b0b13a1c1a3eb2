package domain

import (
	"fmt"
	"time"
)

// Artifact is the synthesized end product of a run.
type Artifact struct {
	Title        string                 `json:"title"`
	Summary      string                 `json:"summary"`
	Sections     map[string]interface{} `json:"sections"`
	Errors       []ErrorRecord          `json:"errors,omitempty"`
	ReviewStatus ReviewStatus           `json:"review_status"`
	Revision     int                    `json:"revision"`
	GeneratedAt  time.Time              `json:"generated_at"`
}

// MinimalArtifact builds the degraded fallback artifact used when
// synthesis fails or no worker produced output. It carries the error
// trace so the caller can see what went wrong.
func MinimalArtifact(state *RunState) *Artifact {
	summary := "No recommendation could be produced for this request."
	if len(state.Errors) > 0 {
		summary = fmt.Sprintf("%s %d worker error(s) were recorded.", summary, len(state.Errors))
	}
	return &Artifact{
		Title:        "Recommendation",
		Summary:      summary,
		Sections:     make(map[string]interface{}),
		Errors:       append([]ErrorRecord(nil), state.Errors...),
		ReviewStatus: state.ReviewStatus,
		GeneratedAt:  time.Now(),
	}
}
