package subjects

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "subject not found" }

type Repo interface {
	Upsert(ctx context.Context, subject Subject) error
	GetByID(ctx context.Context, subjectID string) (Subject, error)
	SetTier(ctx context.Context, subjectID string, tier string) error
}
