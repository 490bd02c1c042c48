package subjects

import (
	"strings"
	"time"

	"pait-backend/internal/quota"
)

// Subject is a scored party: an authenticated user or a guest identity.
type Subject struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Tier        quota.Tier `json:"tier"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsGuest reports whether the subject is an unauthenticated guest identity.
func (s Subject) IsGuest() bool {
	return strings.HasPrefix(s.ID, "guest:")
}
