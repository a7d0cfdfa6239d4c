package relay_cli

import (
	"testing"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/git"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/mirror"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/stretchr/testify/assert"
)

func TestRenderOutcome(t *testing.T) {
	t.Parallel()

	out := mirror.Outcome{
		StatusCode: 500,
		Message:    "Failed to push.\nPushing to refs/heads/main failed: declined",
		Kind:       relay_err.KindPushFailure,
		Refs: []git.RefPushResult{
			{RefName: "refs/heads/feature", Succeeded: true},
			{RefName: "refs/heads/main", ErrorSummary: "Pushing to refs/heads/main failed: declined"},
			{RefName: "refs/tags/v1", Succeeded: true, UpToDate: true},
		},
	}

	got := RenderOutcome(NewStyles(), "testrepo", out)

	assert.Contains(t, got, "testrepo")
	assert.Contains(t, got, "(500)")
	assert.Contains(t, got, "  Failed to push.\n")
	assert.Contains(t, got, "  Pushing to refs/heads/main failed: declined\n")
	assert.Contains(t, got, "refs/heads/feature")
	assert.Contains(t, got, "refs/tags/v1 (up to date)")
}
