/* cmd/version.go */

package cmd

import (
	"fmt"
	"runtime"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/git"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_cli"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// VersionCmd prints build and git binary versions.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mirrorhook version",
	Args:  cobra.NoArgs,
	RunE: relay_cli.Wrap(func(rc *relay_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "mirrorhook %s (%s, %s/%s)\n", shared.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

		v, err := git.CheckGitInstalled(rc.Ctx)
		if err != nil {
			rc.Log.Debug("git binary check failed", zap.Error(err))
			fmt.Fprintln(cmd.OutOrStdout(), "git: not found")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "git %s\n", v.String())
		return nil
	}),
}
