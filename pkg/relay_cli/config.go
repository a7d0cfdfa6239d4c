// pkg/relay_cli/config.go

package relay_cli

import (
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoadConfig resolves the configuration for cmd from its flags, MIRRORHOOK_*
// environment variables and the --config file.
func LoadConfig(cmd *cobra.Command) (*config.Config, *viper.Viper, error) {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}
