package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// Registry is the in-memory worker registry. Registration normally
// happens at startup, but the lock keeps concurrent use safe.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]ports.Worker
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		workers: make(map[string]ports.Worker),
		logger:  logger.With("component", "registry"),
	}
}

func (r *Registry) Register(worker ports.Worker) error {
	desc := worker.Descriptor()
	name, ok := domain.NormalizeWorkerName(desc.Name)
	if !ok {
		return domain.NewEngineError("registry", "register",
			fmt.Errorf("%w: invalid worker name %q", domain.ErrInvalidConfig, desc.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[name]; exists {
		return domain.NewEngineError("registry", "register",
			fmt.Errorf("%w: %s", domain.ErrDuplicateWorker, name))
	}
	r.workers[name] = worker

	r.logger.Debug("worker registered",
		"name", name,
		"dependencies", desc.Dependencies,
		"fields", desc.OwnedFields())
	return nil
}

func (r *Registry) Resolve(name string) (ports.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	worker, ok := r.workers[name]
	if !ok {
		return nil, domain.NewEngineError("registry", "resolve",
			fmt.Errorf("%w: worker %s", domain.ErrNotFound, name))
	}
	return worker, nil
}

func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate walks the declared dependency graph and rejects cycles.
// Dependencies on unregistered workers are allowed; the scheduler treats
// them as never-completing and falls back to CanRunWithout.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		visited
	)
	states := make(map[string]int, len(r.workers))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch states[name] {
		case visited:
			return nil
		case visiting:
			return domain.NewEngineError("registry", "validate",
				fmt.Errorf("%w: %v -> %s", domain.ErrDependencyCycle, path, name))
		}
		states[name] = visiting

		worker, ok := r.workers[name]
		if ok {
			for _, dep := range worker.Descriptor().Dependencies {
				depName, valid := domain.NormalizeWorkerName(dep)
				if !valid {
					continue
				}
				if _, registered := r.workers[depName]; !registered {
					continue
				}
				if err := visit(depName, append(path, name)); err != nil {
					return err
				}
			}
		}
		states[name] = visited
		return nil
	}

	for name := range r.workers {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
