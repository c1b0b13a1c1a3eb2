package domain

import "time"

// WorkerDescriptor declares a worker's identity and execution contract.
type WorkerDescriptor struct {
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Fields       []string      `json:"fields,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	Retryable    bool          `json:"retryable,omitempty"`
}

// OwnedFields returns the state fields the worker is allowed to write.
// A worker with no declared fields owns the single field named after it.
func (d WorkerDescriptor) OwnedFields() []string {
	if len(d.Fields) == 0 {
		return []string{d.Name}
	}
	return d.Fields
}

type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeDegraded  OutcomeKind = "degraded"
	OutcomeReplan    OutcomeKind = "replan"
	OutcomeHalt      OutcomeKind = "halt"
)

// Outcome is the executor's verdict on a single worker invocation.
type Outcome struct {
	Worker string                 `json:"worker"`
	Kind   OutcomeKind            `json:"kind"`
	Update map[string]interface{} `json:"update,omitempty"`
	Record *ErrorRecord           `json:"record,omitempty"`
}

func NewCompleted(worker string, update map[string]interface{}) Outcome {
	return Outcome{Worker: worker, Kind: OutcomeCompleted, Update: update}
}

func NewDegraded(worker string, update map[string]interface{}, record *ErrorRecord) Outcome {
	return Outcome{Worker: worker, Kind: OutcomeDegraded, Update: update, Record: record}
}

func NewReplan(worker string, record *ErrorRecord) Outcome {
	return Outcome{Worker: worker, Kind: OutcomeReplan, Record: record}
}

func NewHalt(worker string, record *ErrorRecord) Outcome {
	return Outcome{Worker: worker, Kind: OutcomeHalt, Record: record}
}
