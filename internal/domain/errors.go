package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorKind classifies a worker failure by how the engine should react.
type ErrorKind string

const (
	ErrorKindTransient   ErrorKind = "transient"
	ErrorKindPermanent   ErrorKind = "permanent"
	ErrorKindUserFixable ErrorKind = "user_fixable"
	ErrorKindReplanning  ErrorKind = "recoverable_by_replanning"
)

// ErrorRecord is the durable trace of a single worker failure.
type ErrorRecord struct {
	Worker    string    `json:"worker"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewErrorRecord(worker string, kind ErrorKind, err error) ErrorRecord {
	return ErrorRecord{
		Worker:    worker,
		Kind:      kind,
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateWorker    = errors.New("worker already registered")
	ErrDependencyCycle    = errors.New("dependency cycle detected")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidDecision    = errors.New("invalid review decision")
	ErrCheckpointConsumed = errors.New("checkpoint not found or already consumed")
	ErrClosed             = errors.New("engine closed")
	ErrHalt               = errors.New("fatal worker fault")
	ErrRequestReplan      = errors.New("replanning requested")
)

// EngineError wraps a failure with the component and operation it
// occurred in.
type EngineError struct {
	Component string
	Op        string
	Err       error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func NewEngineError(component, op string, err error) *EngineError {
	return &EngineError{Component: component, Op: op, Err: err}
}

// WorkerPanicError captures a panic raised inside a worker's Execute.
type WorkerPanicError struct {
	Worker     string
	PanicValue interface{}
	StackTrace string
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("worker %s panicked: %v", e.Worker, e.PanicValue)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Classify maps an error to the kind that decides the engine's reaction.
// The mapping is pure: typed errors first, then message heuristics, and
// permanent as the default for anything unrecognized.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindPermanent
	}
	if errors.Is(err, ErrRequestReplan) {
		return ErrorKindReplanning
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorKindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorKindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "rate limit", "429", "too many requests", "quota"):
		return ErrorKindTransient
	case containsAny(msg, "connection", "timeout", "timed out", "network", "dns", "unreachable", "unavailable"):
		return ErrorKindTransient
	case containsAny(msg, "parse", "malformed", "invalid json", "unexpected token", "schema"):
		return ErrorKindReplanning
	case containsAny(msg, "missing", "required", "not provided", "not found"):
		if containsAny(msg, "api key", "api_key", "credential", "configuration", "config") {
			return ErrorKindPermanent
		}
		return ErrorKindUserFixable
	}
	return ErrorKindPermanent
}

func IsTransient(err error) bool {
	return Classify(err) == ErrorKindTransient
}

func IsUserFixable(err error) bool {
	return Classify(err) == ErrorKindUserFixable
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
