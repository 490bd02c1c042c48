package vault

import (
	"errors"
	"time"

	"pait-backend/internal/synthesis"
)

// ErrNotFound indicates no sealed record exists for the key.
var ErrNotFound = errors.New("sealed record not found")

// SealedRecord is the immutable, hash-addressed proof of a completed
// analysis. Create-once, append-only: no update, no delete. Export only
// ever copies it.
type SealedRecord struct {
	RecordID           string              `json:"recordId"`
	SessionID          string              `json:"sessionId"`
	SubjectID          string              `json:"subjectId"`
	SubjectTierAtSeal  string              `json:"subjectTierAtSeal"`
	IntentID           string              `json:"intentId"`
	Composite          synthesis.Composite `json:"composite"`
	SessionCreatedAt   time.Time           `json:"sessionCreatedAt"`
	SessionCompletedAt time.Time           `json:"sessionCompletedAt"`
	SealedAt           time.Time           `json:"sealedAt"`
}

// SealInput is everything the sealer hashes and stores for a completed
// session.
type SealInput struct {
	SessionID          string
	SubjectID          string
	SubjectTier        string
	IntentID           string
	Composite          synthesis.Composite
	SessionCreatedAt   time.Time
	SessionCompletedAt time.Time
}
