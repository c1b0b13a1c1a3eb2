package ports

import (
	"context"

	"github.com/adventurelabs/waypoint/internal/domain"
)

// Plan is the planner's selection of workers for a run, with an optional
// per-worker instruction.
type Plan struct {
	Required     []string          `json:"required"`
	Instructions map[string]string `json:"instructions,omitempty"`
}

// Planner decides which workers a run needs. On a re-plan the prior
// errors are passed so the planner can route around failed workers.
type Planner interface {
	Plan(ctx context.Context, input string, priorErrors []domain.ErrorRecord) (*Plan, error)
}
