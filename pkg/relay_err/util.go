// pkg/relay_err/util.go

package relay_err

import (
	"errors"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// UserError marks an error as expected and recoverable by the user.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}

// NewExpectedError wraps an error for softer CLI handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// WrapConfigError attaches a remediation hint to a configuration failure.
func WrapConfigError(err error, hint string) error {
	if err == nil {
		return nil
	}
	return NewExpectedError(cerr.WithHint(cerr.WithStack(err), hint))
}

// ExtractSummary condenses multi-line transport output into one line, keeping
// at most maxCandidates lines that look like errors.
func ExtractSummary(output string, maxCandidates int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "No output provided."
	}

	lines := strings.Split(trimmed, "\n")
	var candidates []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "failed") ||
			strings.Contains(lower, "fatal") ||
			strings.Contains(lower, "rejected") ||
			strings.Contains(lower, "denied") ||
			strings.Contains(lower, "declined") ||
			strings.Contains(lower, "not found") {
			candidates = append(candidates, line)
		}
	}

	if len(candidates) > 0 {
		if maxCandidates > 0 && len(candidates) > maxCandidates {
			candidates = candidates[:maxCandidates]
		}
		return strings.Join(candidates, " - ")
	}

	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "Unknown error."
}

// SafeErrorSummary maps an error onto a short label suitable for telemetry
// attributes, without leaking URLs or credentials.
func SafeErrorSummary(err error) string {
	if err == nil {
		return "success"
	}
	if kind := KindOf(err); kind != KindPushFailure || isSyncError(err) {
		return kind.String()
	}

	lowered := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowered, "authentication") || strings.Contains(lowered, "authorization"):
		return "authentication_required"
	case strings.Contains(lowered, "not found"):
		return "resource_unavailable"
	case strings.Contains(lowered, "timeout"):
		return "service_timeout"
	case strings.Contains(lowered, "connection"):
		return "connectivity_issue"
	default:
		return "general_error"
	}
}

func isSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
