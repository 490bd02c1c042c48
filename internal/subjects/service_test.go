package subjects

import (
	"context"
	"testing"

	"pait-backend/internal/quota"
)

func TestUpsertFromAuthDefaultsTier(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if err := svc.UpsertFromAuth(ctx, Subject{ID: "sub-1", Email: "a@example.com"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := svc.GetByID(ctx, "sub-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tier != quota.TierFree {
		t.Fatalf("expected free tier default, got %q", got.Tier)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be set")
	}
}

func TestUpsertPreservesTierOnRelogin(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if err := svc.UpsertFromAuth(ctx, Subject{ID: "sub-1", Email: "a@example.com"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.UpgradeTier(ctx, "sub-1", quota.TierVIP); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if err := svc.UpsertFromAuth(ctx, Subject{ID: "sub-1", Email: "a@example.com", DisplayName: "A"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, err := svc.GetByID(ctx, "sub-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tier != quota.TierVIP {
		t.Fatalf("tier lost on re-login: got %q", got.Tier)
	}
	if got.DisplayName != "A" {
		t.Fatalf("display name not updated: got %q", got.DisplayName)
	}
}

func TestUpgradeTierRejectsUnknown(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if err := svc.UpsertFromAuth(ctx, Subject{ID: "sub-1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.UpgradeTier(ctx, "sub-1", quota.Tier("platinum")); err == nil {
		t.Fatalf("expected error for unknown tier")
	}
}

func TestUpgradeTierMissingSubject(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.UpgradeTier(context.Background(), "nope", quota.TierVIP); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIsGuest(t *testing.T) {
	if !(Subject{ID: "guest:abc"}).IsGuest() {
		t.Fatalf("guest prefix should be detected")
	}
	if (Subject{ID: "google:123"}).IsGuest() {
		t.Fatalf("authenticated subject flagged as guest")
	}
}
