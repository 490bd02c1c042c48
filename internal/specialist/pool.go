package specialist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Worker is one analysis backend. Implementations are stateless between
// calls and must honor context cancellation.
type Worker interface {
	Invoke(ctx context.Context, ref ArtifactRef) (Result, error)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, ref ArtifactRef) (Result, error)

func (f WorkerFunc) Invoke(ctx context.Context, ref ArtifactRef) (Result, error) {
	return f(ctx, ref)
}

const defaultCallTimeout = 8 * time.Second

// Pool holds the Role → Worker registry and enforces the per-call timeout.
// It carries no other shared mutable state.
type Pool struct {
	mu      sync.RWMutex
	workers map[Role]Worker
	timeout time.Duration
}

// NewPool constructs an empty pool. A non-positive timeout falls back to
// the 8-second default.
func NewPool(timeout time.Duration) *Pool {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Pool{
		workers: make(map[Role]Worker),
		timeout: timeout,
	}
}

// Register installs a worker for a role, replacing any previous one.
func (p *Pool) Register(role Role, w Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers[role] = w
}

// Roles returns the registered roles.
func (p *Pool) Roles() []Role {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Role, 0, len(p.workers))
	for _, r := range AllRoles() {
		if _, ok := p.workers[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

type invokeOutcome struct {
	result Result
	err    error
}

// Invoke runs the worker registered for role under the per-call timeout.
// Failures always come back as *Error with a classified kind; a panicking
// worker is contained and reported as backend_unavailable. The worker
// goroutine is not forcibly stopped on timeout; its eventual outcome is
// dropped.
func (p *Pool) Invoke(ctx context.Context, role Role, ref ArtifactRef) (Result, error) {
	p.mu.RLock()
	w, ok := p.workers[role]
	p.mu.RUnlock()
	if !ok {
		return Result{}, &Error{Role: role, Kind: KindBackendUnavailable, Err: ErrUnknownRole}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan invokeOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeOutcome{err: &Error{
					Role: role,
					Kind: KindBackendUnavailable,
					Err:  fmt.Errorf("worker panic: %v", r),
				}}
			}
		}()
		res, err := w.Invoke(callCtx, ref)
		done <- invokeOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Result{}, classify(role, out.err)
		}
		res := out.result
		res.Role = role
		res.Score = clamp01(res.Score)
		res.Confidence = clamp01(res.Confidence)
		return res, nil
	case <-callCtx.Done():
		return Result{}, classify(role, callCtx.Err())
	}
}

func classify(role Role, err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	kind := KindBackendUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &Error{Role: role, Kind: kind, Err: err}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
