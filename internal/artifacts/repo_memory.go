package artifacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Artifact // subjectID -> artifacts
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]Artifact)}
}

func (r *MemoryRepo) Create(ctx context.Context, artifact Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[artifact.SubjectID] = append(r.data[artifact.SubjectID], artifact)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, subjectID, artifactID string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.data[subjectID] {
		if a.ID == artifactID {
			return a, nil
		}
	}
	return Artifact{}, ErrNotFound
}

// ListBySubject returns artifacts for a subject, newest first.
func (r *MemoryRepo) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	subjectArtifacts := r.data[subjectID]
	r.mu.RUnlock()

	if len(subjectArtifacts) == 0 || offset >= len(subjectArtifacts) {
		return []Artifact{}, nil
	}

	out := make([]Artifact, len(subjectArtifacts))
	copy(out, subjectArtifacts)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}
