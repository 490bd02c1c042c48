package orchestration

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

// Repo defines persistence operations for sessions.
type Repo interface {
	Create(ctx context.Context, session Session) error
	GetByID(ctx context.Context, sessionID string) (Session, error)
	Update(ctx context.Context, session Session) error
	ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]Session, error)
	// ListSealPending returns completed sessions whose seal has not landed,
	// for the background re-drive worker.
	ListSealPending(ctx context.Context, limit int) ([]Session, error)
}
