package specialist

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPoolInvokeUnknownRole(t *testing.T) {
	pool := NewPool(time.Second)
	_, err := pool.Invoke(context.Background(), RoleTrading, ArtifactRef{ID: "a-1", ContentSHA: "abc"})
	if err == nil {
		t.Fatalf("expected error for unregistered role")
	}
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if se.Kind != KindBackendUnavailable {
		t.Fatalf("expected backend_unavailable, got %s", se.Kind)
	}
}

func TestPoolInvokeEnforcesTimeout(t *testing.T) {
	pool := NewPool(20 * time.Millisecond)
	pool.Register(RoleLegal, WorkerFunc(func(ctx context.Context, ref ArtifactRef) (Result, error) {
		// Ignore the context to simulate a stuck backend.
		time.Sleep(500 * time.Millisecond)
		return Result{Score: 1, Confidence: 1}, nil
	}))

	start := time.Now()
	_, err := pool.Invoke(context.Background(), RoleLegal, ArtifactRef{ID: "a-1", ContentSHA: "abc"})
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("invoke did not return at timeout, took %v", elapsed)
	}
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if se.Role != RoleLegal {
		t.Fatalf("expected role legal on error, got %s", se.Role)
	}
}

func TestPoolInvokeClampsAndStampsRole(t *testing.T) {
	pool := NewPool(time.Second)
	pool.Register(RoleTrading, WorkerFunc(func(ctx context.Context, ref ArtifactRef) (Result, error) {
		return Result{Score: 1.7, Confidence: -0.2, Summary: "ok"}, nil
	}))

	res, err := pool.Invoke(context.Background(), RoleTrading, ArtifactRef{ID: "a-1", ContentSHA: "abc"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if res.Role != RoleTrading {
		t.Fatalf("expected role stamped, got %q", res.Role)
	}
	if res.Score != 1 || res.Confidence != 0 {
		t.Fatalf("expected clamped score/confidence, got %v/%v", res.Score, res.Confidence)
	}
}

func TestPoolInvokeWrapsWorkerError(t *testing.T) {
	backendDown := errors.New("connection refused")
	pool := NewPool(time.Second)
	pool.Register(RoleMediaForensics, WorkerFunc(func(ctx context.Context, ref ArtifactRef) (Result, error) {
		return Result{}, backendDown
	}))

	_, err := pool.Invoke(context.Background(), RoleMediaForensics, ArtifactRef{ID: "a-1", ContentSHA: "abc"})
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if se.Kind != KindBackendUnavailable {
		t.Fatalf("expected backend_unavailable, got %s", se.Kind)
	}
	if !errors.Is(err, backendDown) {
		t.Fatalf("expected wrapped cause to survive")
	}
}

func TestPoolInvokeContainsWorkerPanic(t *testing.T) {
	pool := NewPool(time.Second)
	pool.Register(RoleTrading, WorkerFunc(func(ctx context.Context, ref ArtifactRef) (Result, error) {
		panic("backend blew up")
	}))

	_, err := pool.Invoke(context.Background(), RoleTrading, ArtifactRef{ID: "a-1", ContentSHA: "abc"})
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if se.Kind != KindBackendUnavailable {
		t.Fatalf("expected backend_unavailable, got %s", se.Kind)
	}
	if se.Role != RoleTrading {
		t.Fatalf("expected role trading on error, got %s", se.Role)
	}

	// The pool must stay usable after a panic.
	pool.Register(RoleTrading, WorkerFunc(func(ctx context.Context, ref ArtifactRef) (Result, error) {
		return Result{Score: 0.5, Confidence: 0.5}, nil
	}))
	if _, err := pool.Invoke(context.Background(), RoleTrading, ArtifactRef{ID: "a-1", ContentSHA: "abc"}); err != nil {
		t.Fatalf("invoke after panic: %v", err)
	}
}

func TestLocalWorkerDeterministic(t *testing.T) {
	w := NewLocalWorker(RoleTrading)
	ref := ArtifactRef{ID: "a-1", ContentSHA: "feedface"}

	first, err := w.Invoke(context.Background(), ref)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	second, err := w.Invoke(context.Background(), ref)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
	if first.Score < 0 || first.Score > 1 {
		t.Fatalf("score out of range: %v", first.Score)
	}
	if first.Confidence < 0.4 || first.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", first.Confidence)
	}
}

func TestLocalWorkerRejectsMissingHash(t *testing.T) {
	w := NewLocalWorker(RoleLegal)
	_, err := w.Invoke(context.Background(), ArtifactRef{ID: "a-1"})
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindInvalidArtifact {
		t.Fatalf("expected invalid_artifact, got %v", err)
	}
}
