package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// =====================================
// Git Repository Fixtures
// =====================================

// RequireGit skips the test when git is not installed. go-git's file
// transport runs git-upload-pack and git-receive-pack for local paths.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
}

// InitBareRepo creates an empty bare repository at dir/name and returns its path.
func InitBareRepo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	_, err := gogit.PlainInitWithOptions(path, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
		Bare:        true,
	})
	require.NoError(t, err)
	return path
}

// InitSourceRepo creates a repository with a worktree whose default branch is main.
func InitSourceRepo(t *testing.T, dir, name string) (*gogit.Repository, string) {
	t.Helper()
	path := filepath.Join(dir, name)
	repo, err := gogit.PlainInitWithOptions(path, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)
	return repo, path
}

// CommitFile writes a file into the worktree and commits it on the current branch.
func CommitFile(t *testing.T, repo *gogit.Repository, name, content, message string) plumbing.Hash {
	t.Helper()

	wt, err := repo.Worktree()
	require.NoError(t, err)

	path := filepath.Join(wt.Filesystem.Root(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err = wt.Add(name)
	require.NoError(t, err)

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Mirror Test",
			Email: "mirror-test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash
}

// CreateBranch points a new branch at hash.
func CreateBranch(t *testing.T, repo *gogit.Repository, name string, hash plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	require.NoError(t, repo.Storer.SetReference(ref))
}

// CreateTag creates a lightweight tag at hash.
func CreateTag(t *testing.T, repo *gogit.Repository, name string, hash plumbing.Hash) {
	t.Helper()
	_, err := repo.CreateTag(name, hash, nil)
	require.NoError(t, err)
}

// WriteHook installs an executable hook script into a bare repository.
func WriteHook(t *testing.T, bareRepo, hook, script string) {
	t.Helper()
	dir := filepath.Join(bareRepo, "hooks")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, hook), []byte(script), 0o755))
}

// RejectRefHook is a pre-receive hook refusing updates to one ref.
func RejectRefHook(ref string) string {
	return "#!/bin/sh\n" +
		"while read old new ref; do\n" +
		"  if [ \"$ref\" = \"" + ref + "\" ]; then\n" +
		"    echo \"You are not allowed to push code to protected branches on this project.\" >&2\n" +
		"    exit 1\n" +
		"  fi\n" +
		"done\n" +
		"exit 0\n"
}

// RefHash resolves a ref in the repository at path. The zero hash means absent.
func RefHash(t *testing.T, path string, ref plumbing.ReferenceName) plumbing.Hash {
	t.Helper()
	repo, err := gogit.PlainOpen(path)
	require.NoError(t, err)
	r, err := repo.Reference(ref, true)
	if err == plumbing.ErrReferenceNotFound {
		return plumbing.ZeroHash
	}
	require.NoError(t, err)
	return r.Hash()
}
