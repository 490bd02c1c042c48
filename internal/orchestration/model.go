package orchestration

import (
	"time"

	"pait-backend/internal/specialist"
	"pait-backend/internal/synthesis"
)

// State is the session lifecycle position. Terminal states are Sealed and
// Failed; Failed is reachable from any non-terminal state.
type State string

const (
	StateCreated      State = "created"
	StateQuotaChecked State = "quota_checked"
	StateDispatched   State = "dispatched"
	StateCollecting   State = "collecting"
	StateSynthesizing State = "synthesizing"
	StateSealed       State = "sealed"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == StateSealed || s == StateFailed }

// Failure reasons surfaced to the caller.
const (
	ReasonQuota     = "quota"
	ReasonIntent    = "intent_not_found"
	ReasonArtifact  = "artifact_not_found"
	ReasonAllFailed = "all_specialists_failed"
	ReasonCancelled = "cancelled"
	ReasonInternal  = "internal"
)

// Seal progress values. Sealing is best-effort, so a completed session can
// report its composite while the seal is still pending or has failed.
const (
	SealStatusSealed  = "sealed"
	SealStatusPending = "pending"
	SealStatusFailed  = "failed"
)

// RoleStatus is the per-specialist progress snapshot for the live UI.
type RoleStatus struct {
	Role      specialist.Role      `json:"role"`
	Status    string               `json:"status"` // pending|running|succeeded|failed
	ErrorKind specialist.ErrorKind `json:"errorKind,omitempty"`
}

const (
	RoleStatusPending   = "pending"
	RoleStatusRunning   = "running"
	RoleStatusSucceeded = "succeeded"
	RoleStatusFailed    = "failed"
)

// Session is one orchestrated analysis run. It holds only a reference to
// the artifact, never the bytes.
type Session struct {
	ID            string                                 `json:"id"`
	SubjectID     string                                 `json:"subjectId"`
	SubjectTier   string                                 `json:"subjectTier"`
	IntentID      string                                 `json:"intentId"`
	ArtifactID    string                                 `json:"artifactId"`
	State         State                                  `json:"state"`
	FailureReason string                                 `json:"failureReason,omitempty"`
	Results       map[specialist.Role]specialist.Result  `json:"results,omitempty"`
	RoleStatuses  map[specialist.Role]RoleStatus         `json:"roleStatuses,omitempty"`
	Composite     *synthesis.Composite                   `json:"composite,omitempty"`
	SealStatus    string                                 `json:"sealStatus,omitempty"`
	SealRecordID  string                                 `json:"sealRecordId,omitempty"`
	CreatedAt     time.Time                              `json:"createdAt"`
	CompletedAt   *time.Time                             `json:"completedAt,omitempty"`
}

// StatusSnapshot is the read-only view served to polling clients.
type StatusSnapshot struct {
	SessionID     string       `json:"sessionId"`
	State         State        `json:"state"`
	FailureReason string       `json:"failureReason,omitempty"`
	PerRoleStatus []RoleStatus `json:"perRoleStatus"`
	SealStatus    string       `json:"sealStatus,omitempty"`
}

// Outcome is what AwaitResult returns for a completed session.
type Outcome struct {
	SessionID    string              `json:"sessionId"`
	Composite    synthesis.Composite `json:"composite"`
	Degraded     bool                `json:"degraded"`
	SealStatus   string              `json:"sealStatus"`
	SealRecordID string              `json:"sealRecordId,omitempty"`
}
