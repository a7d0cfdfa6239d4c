/* cmd/serve/serve.go */

package serve

import (
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/alerts"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/git"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/mirror"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_cli"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/server"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd runs the webhook listener.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for GitHub push webhooks and mirror them to GitLab",
	Long: `Starts the HTTP listener. Every POST to / carrying a push event clones the
source repository, verifies the GitLab target exists and pushes all branches
and tags to it. GET /healthz reports liveness.

When the config file changes on disk the sync policy and log level are reloaded
without a restart. Host, port and alerting need a restart.`,
	Args: cobra.NoArgs,
	RunE: relay_cli.Wrap(runServe),
}

func runServe(rc *relay_io.RuntimeContext, cmd *cobra.Command, _ []string) error {
	cfg, v, err := relay_cli.LoadConfig(cmd)
	if err != nil {
		return err
	}

	opts := logger.Options{Level: cfg.Server.LogLevel}
	if cfg.Server.AlertWebhookURL != "" {
		opts.AlertSender = alerts.NewWebhookSender(cfg.Server.AlertWebhookURL, cfg.Server.AlertUsername)
	}
	log := logger.New(opts)
	logger.SetGlobal(log)
	defer log.Close()

	shutdown, err := telemetry.Init(telemetry.Options{
		Service: shared.ServiceName,
		Enabled: cfg.Server.Telemetry,
		File:    cfg.Server.TelemetryFile,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(rc.Ctx); err != nil {
			log.Warn("Failed to flush telemetry", zap.Error(err))
		}
	}()

	if gv, err := git.CheckGitInstalled(rc.Ctx); err != nil {
		log.Warn("git binary unavailable, local path remotes will fail", zap.Error(err))
	} else {
		log.Info("git binary found", zap.String("version", gv.String()))
	}

	store := config.NewStore(cfg)
	store.OnChange(applyLogLevel(log))
	store.Watch(v, log.Logger)

	orchestrator := mirror.New(store, git.New(cfg.Sync.WorkspaceDir, log.Logger))
	srv := server.New(orchestrator, log.Logger)

	ctx, stop := signal.NotifyContext(rc.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	log.Info("Starting mirrorhook",
		zap.String("version", shared.Version),
		zap.String("addr", addr),
		zap.String("gitlab_url", cfg.Sync.TargetBaseURL),
		zap.Bool("require_allow_list", cfg.Sync.RequireAllowList))

	return srv.ListenAndServe(ctx, addr, nil)
}

// applyLogLevel follows log_level across reloads. Store.Watch logs the reload itself.
func applyLogLevel(log *logger.Logger) func(*config.Config) {
	return func(c *config.Config) {
		log.SetLevel(c.Server.LogLevel)
	}
}
