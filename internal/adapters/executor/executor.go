package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/adventurelabs/waypoint/internal/domain"
	"github.com/adventurelabs/waypoint/internal/ports"
)

// Executor runs a single worker invocation with timeout, retry, panic
// isolation, and field-ownership enforcement, and folds the result into
// an outcome the scheduler can act on.
type Executor struct {
	config domain.ExecutorConfig
	logger *slog.Logger
}

func NewExecutor(config domain.ExecutorConfig, logger *slog.Logger) *Executor {
	return &Executor{
		config: config,
		logger: logger.With("component", "executor"),
	}
}

// Run executes the worker and classifies the result. It never returns a
// raw error; every failure mode maps to an Outcome so the scheduler's
// fold stays total.
func (e *Executor) Run(ctx context.Context, worker ports.Worker, view domain.StateView, instruction string) domain.Outcome {
	desc := worker.Descriptor()
	name := desc.Name

	attempts := 1
	if desc.Retryable {
		attempts = e.config.RetryAttempts
	}
	backoff := e.config.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		update, err := e.invoke(ctx, worker, desc, view, instruction)
		if err == nil {
			if violated := e.validateUpdate(desc, update); violated != nil {
				rec := domain.NewErrorRecord(name, domain.ErrorKindPermanent, violated)
				e.logger.Error("worker wrote fields it does not own",
					"worker", name,
					"error", violated)
				return domain.NewDegraded(name, nil, &rec)
			}
			e.logger.Debug("worker completed",
				"worker", name,
				"attempt", attempt,
				"fields", len(update))
			return domain.NewCompleted(name, update)
		}
		lastErr = err

		var panicErr *domain.WorkerPanicError
		if errors.As(err, &panicErr) || errors.Is(err, domain.ErrHalt) {
			rec := domain.NewErrorRecord(name, domain.ErrorKindPermanent, err)
			e.logger.Error("worker raised fatal fault",
				"worker", name,
				"error", err)
			return domain.NewHalt(name, &rec)
		}
		if ctx.Err() != nil {
			break
		}

		kind := domain.Classify(err)
		if kind != domain.ErrorKindTransient {
			rec := domain.NewErrorRecord(name, kind, err)
			if kind == domain.ErrorKindReplanning {
				e.logger.Warn("worker requested replanning",
					"worker", name,
					"error", err)
				return domain.NewReplan(name, &rec)
			}
			e.logger.Warn("worker failed permanently",
				"worker", name,
				"kind", kind,
				"error", err)
			return domain.NewDegraded(name, nil, &rec)
		}

		if attempt < attempts {
			e.logger.Debug("transient worker failure, retrying",
				"worker", name,
				"attempt", attempt,
				"backoff", backoff,
				"error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				attempt = attempts
			}
			backoff = time.Duration(float64(backoff) * e.config.BackoffFactor)
		}
	}

	rec := domain.NewErrorRecord(name, domain.ErrorKindTransient, lastErr)
	e.logger.Warn("worker exhausted retries",
		"worker", name,
		"attempts", attempts,
		"error", lastErr)
	return domain.NewDegraded(name, nil, &rec)
}

// invoke runs a single attempt in its own goroutine so a hung worker
// cannot block the batch past its timeout, and a panic is converted to
// an error instead of taking down the run.
func (e *Executor) invoke(ctx context.Context, worker ports.Worker, desc domain.WorkerDescriptor, view domain.StateView, instruction string) (map[string]interface{}, error) {
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = e.config.DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		update map[string]interface{}
		err    error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &domain.WorkerPanicError{
					Worker:     desc.Name,
					PanicValue: r,
					StackTrace: string(debug.Stack()),
				}}
			}
		}()
		update, err := worker.Execute(execCtx, view, instruction)
		done <- result{update: update, err: err}
	}()

	select {
	case res := <-done:
		return res.update, res.err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("worker %s timed out after %s: %w",
			desc.Name, timeout, context.DeadlineExceeded)
	}
}

func (e *Executor) validateUpdate(desc domain.WorkerDescriptor, update map[string]interface{}) error {
	owned := make(map[string]bool, len(desc.OwnedFields()))
	for _, f := range desc.OwnedFields() {
		owned[f] = true
	}
	for key := range update {
		if !owned[key] {
			return fmt.Errorf("worker %s wrote undeclared field %q", desc.Name, key)
		}
	}
	return nil
}
