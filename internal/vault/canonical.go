package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"pait-backend/internal/specialist"
)

// canonicalPayload is the exact byte layout hashed into a record id.
// Field order is fixed by the struct declaration; floats are formatted
// with strconv to keep the representation stable across encoders.
type canonicalPayload struct {
	SessionID   string   `json:"sessionId"`
	SubjectID   string   `json:"subjectId"`
	IntentID    string   `json:"intentId"`
	Value       int      `json:"value"`
	Raw         string   `json:"raw"`
	Band        string   `json:"band"`
	Roles       []string `json:"roles"`
	Degraded    bool     `json:"degraded"`
	CreatedAt   string   `json:"createdAt"`
	CompletedAt string   `json:"completedAt"`
}

// recordID hashes the canonical serialization of the seal input.
// Identical input always produces the identical id, which is what makes
// sealing retry-safe.
func recordID(in SealInput) (string, error) {
	payload := canonicalPayload{
		SessionID:   in.SessionID,
		SubjectID:   in.SubjectID,
		IntentID:    in.IntentID,
		Value:       in.Composite.Value,
		Raw:         strconv.FormatFloat(in.Composite.Raw, 'f', -1, 64),
		Band:        string(in.Composite.Band),
		Roles:       roleStrings(in.Composite.ContributingRoles),
		Degraded:    in.Composite.Degraded,
		CreatedAt:   canonicalTime(in.SessionCreatedAt),
		CompletedAt: canonicalTime(in.SessionCompletedAt),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize seal input: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func roleStrings(roles []specialist.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
