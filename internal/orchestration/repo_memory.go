package orchestration

import (
	"context"
	"sort"
	"sync"

	"pait-backend/internal/specialist"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: make(map[string]Session)}
}

func (r *MemoryRepo) Create(ctx context.Context, session Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, sessionID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(session), nil
}

func (r *MemoryRepo) Update(ctx context.Context, session Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return ErrNotFound
	}
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

// ListBySubject returns a subject's sessions, newest first.
func (r *MemoryRepo) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]Session, error) {
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
	var out []Session
	for _, s := range r.sessions {
		if s.SubjectID == subjectID {
			out = append(out, cloneSession(s))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return []Session{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) ListSealPending(ctx context.Context, limit int) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Session
	for _, s := range r.sessions {
		if s.State == StateSealed && s.SealStatus != SealStatusSealed {
			out = append(out, cloneSession(s))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func cloneSession(s Session) Session {
	out := s
	if s.Results != nil {
		out.Results = make(map[specialist.Role]specialist.Result, len(s.Results))
		for k, v := range s.Results {
			out.Results[k] = v
		}
	}
	if s.RoleStatuses != nil {
		out.RoleStatuses = make(map[specialist.Role]RoleStatus, len(s.RoleStatuses))
		for k, v := range s.RoleStatuses {
			out.RoleStatuses[k] = v
		}
	}
	if s.Composite != nil {
		composite := *s.Composite
		out.Composite = &composite
	}
	if s.CompletedAt != nil {
		completedAt := *s.CompletedAt
		out.CompletedAt = &completedAt
	}
	return out
}
