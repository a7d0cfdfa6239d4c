// pkg/git/errors.go

package git

import (
	"errors"
	"strings"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

type ErrorType int

const (
	Unknown ErrorType = iota
	RepositoryNotFound
	EmptyRepository
	AuthenticationRequired
	AuthorizationFailed
	RepositoryUnavailable
	InvalidURL
)

func (t ErrorType) String() string {
	switch t {
	case RepositoryNotFound:
		return "repository_not_found"
	case EmptyRepository:
		return "empty_repository"
	case AuthenticationRequired:
		return "authentication_required"
	case AuthorizationFailed:
		return "authorization_failed"
	case RepositoryUnavailable:
		return "repository_unavailable"
	case InvalidURL:
		return "invalid_url"
	default:
		return "unknown"
	}
}

// Classify maps a transport error onto an ErrorType.
func Classify(err error) ErrorType {
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return RepositoryNotFound
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return EmptyRepository
	case errors.Is(err, transport.ErrAuthenticationRequired):
		return AuthenticationRequired
	case errors.Is(err, transport.ErrAuthorizationFailed):
		return AuthorizationFailed
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ErrorType {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "could not resolve host"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "network is unreachable"):
		return RepositoryUnavailable
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "does not appear to be a git repository"),
		strings.Contains(lower, "does not exist"):
		return RepositoryNotFound
	case strings.Contains(lower, "could not read username"):
		return AuthenticationRequired
	}
	return Unknown
}

// CloneError is returned when the source repository cannot be cloned.
type CloneError struct {
	URL   string
	Type  ErrorType
	Cause error
}

func (e *CloneError) Error() string {
	return relay_err.ExtractSummary(e.Cause.Error(), 3)
}

func (e *CloneError) Unwrap() error {
	return e.Cause
}

// RemoteRegistrationError is returned when a remote cannot be added to a
// working copy.
type RemoteRegistrationError struct {
	Name  string
	URL   string
	Cause error
}

func (e *RemoteRegistrationError) Error() string {
	return "failed to register remote " + e.Name + " (" + e.URL + "): " + e.Cause.Error()
}

func (e *RemoteRegistrationError) Unwrap() error {
	return e.Cause
}
