// pkg/relay_cli/wrap.go

package relay_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap gives a cobra RunE a RuntimeContext, panic recovery and an end-of-command
// span and log line.
func Wrap(fn func(rc *relay_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		rc := relay_io.NewContext(ctx, logger.L(), cmd.CommandPath(), "")
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		rc.Log.Debug("Command started", zap.Strings("args", args))
		return fn(rc, cmd, args)
	}
}
