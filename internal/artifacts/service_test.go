package artifacts

import (
	"context"
	"strings"
	"testing"

	"pait-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Store: local.New(t.TempDir()),
		Repo:  NewMemoryRepo(),
	}
}

func TestUploadRecordsContentDigest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	artifact, err := svc.Upload(ctx, "sub-1", "evidence.txt", strings.NewReader("signal data"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if artifact.ID == "" {
		t.Fatalf("expected artifact id")
	}
	if artifact.ContentSHA == "" {
		t.Fatalf("expected content digest")
	}
	if artifact.SizeBytes != int64(len("signal data")) {
		t.Fatalf("size mismatch: got %d", artifact.SizeBytes)
	}

	got, err := svc.Get(ctx, "sub-1", artifact.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContentSHA != artifact.ContentSHA {
		t.Fatalf("digest lost on round trip")
	}
}

func TestUploadSameBytesSameDigest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "sub-1", "a.txt", strings.NewReader("identical"))
	if err != nil {
		t.Fatalf("upload first: %v", err)
	}
	second, err := svc.Upload(ctx, "sub-1", "b.txt", strings.NewReader("identical"))
	if err != nil {
		t.Fatalf("upload second: %v", err)
	}
	if first.ContentSHA != second.ContentSHA {
		t.Fatalf("same bytes produced different digests: %s vs %s", first.ContentSHA, second.ContentSHA)
	}
	if first.ID == second.ID {
		t.Fatalf("distinct uploads must get distinct ids")
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	artifact, err := svc.Upload(ctx, "sub-1", "mine.txt", strings.NewReader("private"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.Get(ctx, "sub-2", artifact.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "sub-1", "first.txt", strings.NewReader("one")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.Upload(ctx, "sub-1", "second.txt", strings.NewReader("two")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	list, err := svc.List(ctx, "sub-1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(list))
	}
}
