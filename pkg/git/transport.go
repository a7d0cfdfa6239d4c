// pkg/git/transport.go

package git

import (
	"context"

	gogit "github.com/go-git/go-git/v5"
)

// Transport is everything a sync needs from git. Implementations must be
// safe for concurrent use by independent syncs.
type Transport interface {
	// CloneToWorkspace mirrors sourceURL into a fresh private directory.
	CloneToWorkspace(ctx context.Context, sourceURL string) (*WorkingCopy, error)
	// VerifyRemoteReachable reports whether targetURL names an existing repository.
	VerifyRemoteReachable(ctx context.Context, targetURL string) bool
	// RegisterRemote attaches a named remote to the working copy.
	RegisterRemote(wc *WorkingCopy, name, url string) (*RemoteHandle, error)
	// PushAll pushes every local branch and tag, one result per ref.
	PushAll(ctx context.Context, remote *RemoteHandle) ([]RefPushResult, error)
	// ReleaseWorkspace deletes the working copy. Safe to call more than once.
	ReleaseWorkspace(wc *WorkingCopy) error
}

// WorkingCopy is a local clone owned by exactly one sync attempt.
type WorkingCopy struct {
	Dir       string
	SourceURL string
	repo      *gogit.Repository
}

// RemoteHandle is a remote registered on a WorkingCopy.
type RemoteHandle struct {
	Name string
	URL  string
	wc   *WorkingCopy
}

// RefPushResult is the outcome of pushing one ref.
type RefPushResult struct {
	RefName   string
	Succeeded bool
	// UpToDate is set when the target already had the ref at the same commit.
	UpToDate     bool
	ErrorSummary string
}
