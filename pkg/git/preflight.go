// pkg/git/preflight.go

package git

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-version"
)

// MinGitVersion is the oldest git whose upload-pack and receive-pack go-git's
// file transport is known to work with.
var MinGitVersion = version.Must(version.NewVersion("2.0.0"))

var gitVersionPattern = regexp.MustCompile(`git version (\d+\.\d+(?:\.\d+)?)`)

// ParseGitVersion extracts the version from `git --version` output.
func ParseGitVersion(output string) (*version.Version, error) {
	m := gitVersionPattern.FindStringSubmatch(strings.TrimSpace(output))
	if m == nil {
		return nil, cerr.Newf("unrecognised git version output %q", strings.TrimSpace(output))
	}
	return version.NewVersion(m[1])
}

// CheckGitInstalled verifies a usable git binary is on PATH. Only local-path
// remotes need it; http and ssh remotes are handled entirely in-process.
func CheckGitInstalled(ctx context.Context) (*version.Version, error) {
	path, err := exec.LookPath("git")
	if err != nil {
		return nil, cerr.WithHint(cerr.Wrap(err, "git not found in PATH"),
			"install git to mirror repositories addressed by local paths")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return nil, cerr.Wrap(err, "failed to run git --version")
	}

	v, err := ParseGitVersion(string(out))
	if err != nil {
		return nil, err
	}
	if v.LessThan(MinGitVersion) {
		return v, cerr.WithHint(cerr.Newf("git %s is older than %s", v, MinGitVersion),
			"upgrade git")
	}
	return v, nil
}
