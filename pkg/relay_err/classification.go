// pkg/relay_err/classification.go
//
// Sync error taxonomy. Every failure the orchestrator can hit maps to exactly
// one Kind, and every Kind maps to exactly one HTTP status.

package relay_err

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies the outcome of a single sync attempt.
type Kind int

const (
	// KindNone is a successful sync.
	KindNone Kind = iota
	// KindNotAPushEvent is routine: the delivery was not a push.
	KindNotAPushEvent
	// KindMalformedPayload - body is not JSON or misses a required field.
	KindMalformedPayload
	// KindIneligibleRepository - repository is not in the allow-list.
	KindIneligibleRepository
	// KindMissingTargetRepository - the reachability probe failed.
	KindMissingTargetRepository
	// KindSourceTransportFailure - cloning the source failed.
	KindSourceTransportFailure
	// KindRemoteRegistrationFailure - the mirror remote could not be added.
	KindRemoteRegistrationFailure
	// KindPushFailure - a ref was rejected or nothing was pushed.
	KindPushFailure
)

var kindNames = map[Kind]string{
	KindNone:                      "none",
	KindNotAPushEvent:             "not_a_push_event",
	KindMalformedPayload:          "malformed_payload",
	KindIneligibleRepository:      "ineligible_repository",
	KindMissingTargetRepository:   "missing_target_repository",
	KindSourceTransportFailure:    "source_transport_failure",
	KindRemoteRegistrationFailure: "remote_registration_failure",
	KindPushFailure:               "push_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// StatusCode returns the HTTP status reported for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindNone:
		return http.StatusCreated
	case KindNotAPushEvent:
		return http.StatusOK
	case KindMalformedPayload, KindIneligibleRepository:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsFailure reports whether the kind ends a sync without mirroring anything.
func (k Kind) IsFailure() bool {
	return k != KindNone && k != KindNotAPushEvent
}

// SyncError carries a Kind alongside the user-visible message.
type SyncError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// New builds a SyncError of the given kind.
func New(kind Kind, cause error, format string, args ...any) *SyncError {
	return &SyncError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// KindOf extracts the Kind from err. Unclassified errors count as push failures
// because they can only surface from the push leg of a sync.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindPushFailure
}
