package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the stores and services. Configuration reads
// self-heal and never surface these; session state violations always do,
// because silently accepting them would corrupt the metrics computed from
// that session.

// ErrModelInUse rejects deletion of a model still referenced by a chatbot
// or by the global default.
var ErrModelInUse = errors.New("model is referenced by a chatbot or is the global default")

// NotFoundError reports an unknown chatbot, session, message or model id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// SessionClosedError rejects a message logged against an ended session.
type SessionClosedError struct {
	SessionID string
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("session already closed: %s", e.SessionID)
}

// AlreadyClosedError rejects a second EndSession call. Not a no-op: the
// second caller's message count could differ from the recorded one.
type AlreadyClosedError struct {
	SessionID string
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("session was already ended: %s", e.SessionID)
}

// DegradedConfigError means every model fallback was exhausted and no
// usable completion engine exists anywhere in the system.
type DegradedConfigError struct {
	Reason string
}

func (e *DegradedConfigError) Error() string {
	return fmt.Sprintf("configuration degraded: %s", e.Reason)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
