/* cmd/check/check.go */

package check

import (
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_cli"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CheckCmd groups offline diagnostics.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Diagnose mirrorhook configuration",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and print the resolved configuration",
	Long: `Resolves flags, environment, .env and the config file exactly as serve would,
validates the result and prints it as YAML.`,
	Args: cobra.NoArgs,
	RunE: relay_cli.Wrap(func(rc *relay_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		cfg, v, err := relay_cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		rc.Log.Info("Configuration is valid", zap.String("config_file", v.ConfigFileUsed()))

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return cerr.Wrap(err, "failed to encode configuration")
		}
		return enc.Close()
	}),
}

func init() {
	CheckCmd.AddCommand(configCmd)
}
