/* cmd/sync/sync.go */

package sync

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/git"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/mirror"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_cli"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// SyncCmd mirrors one repository without a webhook.
var SyncCmd = &cobra.Command{
	Use:   "sync <repo-name> <source-url>",
	Short: "Mirror one repository to GitLab now",
	Long: `Runs the same clone, target check and push a webhook delivery would, for a
single repository. Useful for the first mirror of an existing repository and for
retrying after a failure.

Examples:
  mirrorhook sync testrepo https://github.com/acme/testrepo.git --gitlab-base-url https://gitlab.example.com/acme`,
	Args: cobra.ExactArgs(2),
	RunE: relay_cli.Wrap(func(rc *relay_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		cfg, _, err := relay_cli.LoadConfig(cmd)
		if err != nil {
			return err
		}

		name, sourceURL := args[0], args[1]
		orchestrator := mirror.New(config.Static(cfg.Sync), git.New(cfg.Sync.WorkspaceDir, logger.L()))
		out := orchestrator.SyncRepository(rc, name, sourceURL)

		fmt.Fprint(cmd.OutOrStdout(), relay_cli.RenderOutcome(relay_cli.NewStyles(), name, out))
		if !out.Succeeded() {
			return cerr.Newf("sync of %s failed with status %d", name, out.StatusCode)
		}
		return nil
	}),
}
