package vault

import (
	"context"
	"errors"
	"time"
)

type store interface {
	Put(ctx context.Context, rec SealedRecord) (SealedRecord, bool, error)
	Get(ctx context.Context, recordID string) (SealedRecord, error)
	GetBySession(ctx context.Context, sessionID string) (SealedRecord, error)
}

// Sealer turns completed sessions into immutable hash-addressed records.
// Seal is idempotent, so retrying after a partial failure is always safe.
type Sealer struct {
	store store
	now   func() time.Time
}

// NewSealer constructs a Sealer over the in-memory store.
func NewSealer() *Sealer {
	return newSealer(newMemoryStore())
}

// NewPostgresSealer constructs a Sealer backed by Postgres.
func NewPostgresSealer(pgStore store) *Sealer {
	return newSealer(pgStore)
}

func newSealer(s store) *Sealer {
	return &Sealer{store: s, now: time.Now}
}

// Seal persists the record for a completed session. A second call for the
// same session returns the first record unchanged.
func (s *Sealer) Seal(ctx context.Context, in SealInput) (SealedRecord, error) {
	if in.SessionID == "" {
		return SealedRecord{}, errors.New("sessionID is required")
	}

	if existing, err := s.store.GetBySession(ctx, in.SessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return SealedRecord{}, err
	}

	id, err := recordID(in)
	if err != nil {
		return SealedRecord{}, err
	}
	rec := SealedRecord{
		RecordID:           id,
		SessionID:          in.SessionID,
		SubjectID:          in.SubjectID,
		SubjectTierAtSeal:  in.SubjectTier,
		IntentID:           in.IntentID,
		Composite:          in.Composite,
		SessionCreatedAt:   in.SessionCreatedAt.UTC(),
		SessionCompletedAt: in.SessionCompletedAt.UTC(),
		SealedAt:           s.now().UTC(),
	}

	stored, _, err := s.store.Put(ctx, rec)
	if err != nil {
		return SealedRecord{}, err
	}
	return stored, nil
}

// Get returns a sealed record by id for the export/share UI.
func (s *Sealer) Get(ctx context.Context, recordID string) (SealedRecord, error) {
	if recordID == "" {
		return SealedRecord{}, ErrNotFound
	}
	return s.store.Get(ctx, recordID)
}

// GetBySession returns the sealed record for a session, if any.
func (s *Sealer) GetBySession(ctx context.Context, sessionID string) (SealedRecord, error) {
	return s.store.GetBySession(ctx, sessionID)
}
