package ports

import (
	"context"

	"github.com/adventurelabs/waypoint/internal/domain"
)

// Worker executes one unit of specialist work against a read-only view
// of the run state and returns the fields it produced.
type Worker interface {
	Descriptor() domain.WorkerDescriptor

	// CanRunWithout reports whether the worker can still do useful work
	// when the named dependency never completed.
	CanRunWithout(dep string, view domain.StateView) bool

	Execute(ctx context.Context, view domain.StateView, instruction string) (map[string]interface{}, error)
}
