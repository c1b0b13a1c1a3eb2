package ports

// WorkerRegistry holds the set of registered workers by canonical name.
type WorkerRegistry interface {
	Register(worker Worker) error
	Resolve(name string) (Worker, error)
	AllNames() []string

	// Validate checks the registered dependency graph for cycles.
	Validate() error
}
