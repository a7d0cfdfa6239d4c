package relay_cli

import (
	"testing"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test"}
	config.RegisterFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--gitlab-base-url", "https://gitlab.example.com"}))

	cfg, v, err := LoadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "https://gitlab.example.com", cfg.Sync.TargetBaseURL)

	bad := &cobra.Command{Use: "bad"}
	config.RegisterFlags(bad.Flags())
	require.NoError(t, bad.Flags().Parse(nil))
	_, _, err = LoadConfig(bad)
	assert.Error(t, err)
}
