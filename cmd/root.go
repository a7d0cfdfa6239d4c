/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/cmd/check"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/cmd/serve"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/cmd/sync"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_cli"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd is the base command for mirrorhook.
var RootCmd = &cobra.Command{
	Use:   "mirrorhook",
	Short: "Mirror GitHub repositories to GitLab on every push",
	Long: `mirrorhook receives GitHub push webhooks and mirrors every branch and tag
of the pushed repository to the matching repository under a GitLab base URL.

Configuration is read from flags, MIRRORHOOK_* environment variables, a .env
file and a JSON or YAML config file (--config, or ./config.json when present).`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE: relay_cli.Wrap(func(rc *relay_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Println("⚠️  No subcommand provided. Try `mirrorhook help`.")
		return cmd.Help()
	}),
}

// HelpCmd wraps help so that it can be invoked like a normal command.
var HelpCmd = &cobra.Command{
	Use:   "help",
	Short: "Help about any command",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return RootCmd.Help()
		}
		c, _, err := RootCmd.Find(args)
		if err != nil || c == nil {
			return relay_err.NewExpectedError(cerr.Newf("command not found: %s", strings.Join(args, " ")))
		}
		return c.Help()
	},
}

func init() {
	config.RegisterFlags(RootCmd.PersistentFlags())
}

// setupLogging loads .env and installs a logger at the configured level
// before any subcommand runs. serve replaces it once alerts are configured.
func setupLogging(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return relay_err.WrapConfigError(cerr.Wrap(err, "failed to load .env"), "fix or remove the .env file")
	}

	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}
	logger.SetGlobal(logger.New(logger.Options{Level: v.GetString("log_level")}))
	return nil
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.SetHelpCommand(HelpCmd)

	for _, subCmd := range []*cobra.Command{
		serve.ServeCmd,
		sync.SyncCmd,
		check.CheckCmd,
		VersionCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command.
func Execute() {
	defer func() {
		if err := logger.Sync(); err != nil && !isStdSyncErr(err) {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to flush logs: %v\n", err)
		}
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if relay_err.IsExpectedUserError(err) {
			logger.L().Warn("CLI completed with user error", zap.Error(err))
			_ = logger.Sync()
			os.Exit(0)
		}
		logger.L().Error("CLI execution error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// fsync on a terminal or pipe fails with EINVAL; that is not a lost log.
func isStdSyncErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}
