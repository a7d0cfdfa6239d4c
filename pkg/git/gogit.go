// pkg/git/gogit.go

package git

import (
	"context"
	"os"
	"sort"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// GoGitTransport implements Transport with go-git. Authentication is whatever
// go-git picks up on its own: ssh-agent for ssh URLs, credentials embedded in
// https URLs.
type GoGitTransport struct {
	// WorkspaceDir is the parent of every clone. Empty means the OS temp dir.
	WorkspaceDir string
	log          *otelzap.Logger
}

var _ Transport = (*GoGitTransport)(nil)

// New returns a transport that clones under workspaceDir.
func New(workspaceDir string, log *zap.Logger) *GoGitTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &GoGitTransport{
		WorkspaceDir: workspaceDir,
		log:          otelzap.New(log.Named("git")),
	}
}

func (t *GoGitTransport) CloneToWorkspace(ctx context.Context, sourceURL string) (*WorkingCopy, error) {
	log := t.log.Ctx(ctx)

	dir, err := os.MkdirTemp(t.WorkspaceDir, shared.WorkspacePattern)
	if err != nil {
		return nil, &CloneError{URL: sourceURL, Type: Unknown, Cause: cerr.Wrap(err, "failed to create workspace")}
	}

	log.Debug("Cloning source repository", zap.String("url", sourceURL), zap.String("dir", dir))

	repo, err := gogit.PlainCloneContext(ctx, dir, true, &gogit.CloneOptions{
		URL:    sourceURL,
		Mirror: true,
	})
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("Failed to remove workspace after clone error", zap.String("dir", dir), zap.Error(rmErr))
		}
		return nil, &CloneError{URL: sourceURL, Type: Classify(err), Cause: err}
	}

	return &WorkingCopy{Dir: dir, SourceURL: sourceURL, repo: repo}, nil
}

func (t *GoGitTransport) VerifyRemoteReachable(ctx context.Context, targetURL string) bool {
	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: shared.MirrorRemoteName,
		URLs: []string{targetURL},
	})

	switch _, err := remote.ListContext(ctx, &gogit.ListOptions{}); {
	case err == nil:
		return true
	case cerr.Is(err, transport.ErrEmptyRemoteRepository):
		// exists, just has no refs yet
		return true
	default:
		t.log.Ctx(ctx).Info("Target repository not reachable",
			zap.String("url", targetURL),
			zap.String("type", Classify(err).String()),
			zap.Error(err))
		return false
	}
}

func (t *GoGitTransport) RegisterRemote(wc *WorkingCopy, name, url string) (*RemoteHandle, error) {
	if wc == nil || wc.repo == nil {
		return nil, &RemoteRegistrationError{Name: name, URL: url, Cause: cerr.New("working copy is not open")}
	}
	if _, err := transport.NewEndpoint(url); err != nil {
		return nil, &RemoteRegistrationError{Name: name, URL: url, Cause: err}
	}

	if _, err := wc.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	}); err != nil {
		return nil, &RemoteRegistrationError{Name: name, URL: url, Cause: err}
	}
	return &RemoteHandle{Name: name, URL: url, wc: wc}, nil
}

func (t *GoGitTransport) PushAll(ctx context.Context, remote *RemoteHandle) ([]RefPushResult, error) {
	if remote == nil || remote.wc == nil || remote.wc.repo == nil {
		return nil, cerr.New("remote is not registered on an open working copy")
	}
	repo := remote.wc.repo
	log := t.log.Ctx(ctx)

	names, err := pushableRefs(repo)
	if err != nil {
		return nil, err
	}

	results := make([]RefPushResult, 0, len(names))
	for _, name := range names {
		spec := config.RefSpec(name.String() + ":" + name.String())

		res := RefPushResult{RefName: name.String()}
		switch err := repo.PushContext(ctx, &gogit.PushOptions{
			RemoteName: remote.Name,
			RefSpecs:   []config.RefSpec{spec},
		}); {
		case err == nil:
			res.Succeeded = true
		case cerr.Is(err, gogit.NoErrAlreadyUpToDate):
			res.Succeeded = true
			res.UpToDate = true
		default:
			res.ErrorSummary = "Pushing to " + name.String() + " failed: " + relay_err.ExtractSummary(err.Error(), 3)
		}

		log.Debug("Pushed ref",
			zap.String("ref", res.RefName),
			zap.Bool("succeeded", res.Succeeded),
			zap.Bool("up_to_date", res.UpToDate))
		results = append(results, res)
	}
	return results, nil
}

func (t *GoGitTransport) ReleaseWorkspace(wc *WorkingCopy) error {
	if wc == nil || wc.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(wc.Dir); err != nil {
		return cerr.Wrapf(err, "failed to remove workspace %s", wc.Dir)
	}
	return nil
}

// pushableRefs lists local branches and tags in a stable order.
func pushableRefs(repo *gogit.Repository) ([]plumbing.ReferenceName, error) {
	iter, err := repo.References()
	if err != nil {
		return nil, cerr.Wrap(err, "failed to list local references")
	}
	defer iter.Close()

	var names []plumbing.ReferenceName
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if n := ref.Name(); n.IsBranch() || n.IsTag() {
			names = append(names, n)
		}
		return nil
	}); err != nil {
		return nil, cerr.Wrap(err, "failed to iterate local references")
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}
