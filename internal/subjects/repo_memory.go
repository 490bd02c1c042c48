package subjects

import (
	"context"
	"sync"
	"time"

	"pait-backend/internal/quota"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	subjects map[string]Subject
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{subjects: make(map[string]Subject)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, subject Subject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.subjects[subject.ID]
	now := time.Now().UTC()
	if !ok {
		subject.CreatedAt = now
	} else {
		subject.CreatedAt = existing.CreatedAt
		if subject.Tier == "" {
			subject.Tier = existing.Tier
		}
	}
	if subject.Tier == "" {
		subject.Tier = quota.TierFree
	}
	subject.UpdatedAt = now
	r.subjects[subject.ID] = subject
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, subjectID string) (Subject, error) {
	if err := ctx.Err(); err != nil {
		return Subject{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	subject, ok := r.subjects[subjectID]
	if !ok {
		return Subject{}, ErrNotFound
	}
	return subject, nil
}

func (r *MemoryRepo) SetTier(ctx context.Context, subjectID string, tier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	subject, ok := r.subjects[subjectID]
	if !ok {
		return ErrNotFound
	}
	subject.Tier = quota.Tier(tier)
	subject.UpdatedAt = time.Now().UTC()
	r.subjects[subjectID] = subject
	return nil
}
