package specialist

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed invocation. The orchestrator treats all
// kinds the same way; logs keep the distinction.
type ErrorKind string

const (
	KindTimeout            ErrorKind = "timeout"
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	KindInvalidArtifact    ErrorKind = "invalid_artifact"
)

// Error carries the role and failure kind for a specialist call.
type Error struct {
	Role Role
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("specialist %s: %s", e.Role, e.Kind)
	}
	return fmt.Sprintf("specialist %s: %s: %v", e.Role, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to backend_unavailable for
// unclassified failures.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindBackendUnavailable
}

var ErrUnknownRole = errors.New("unknown specialist role")
