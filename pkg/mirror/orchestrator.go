// pkg/mirror/orchestrator.go

package mirror

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/git"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_io"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Orchestrator runs the sync state machine. It holds no per-request state and
// may be shared by concurrent requests.
type Orchestrator struct {
	cfg       config.Source
	transport git.Transport
}

// New returns an orchestrator reading configuration from cfg on every event.
func New(cfg config.Source, transport git.Transport) *Orchestrator {
	return &Orchestrator{cfg: cfg, transport: transport}
}

// HandleEvent processes one webhook delivery.
func (o *Orchestrator) HandleEvent(rc *relay_io.RuntimeContext, eventKind string, body []byte) Outcome {
	log := rc.Logger()

	if eventKind != shared.PushEventKind {
		log.Debug("Ignoring non-push event", zap.String("event", eventKind))
		return o.finish(rc, fromError(relay_err.New(relay_err.KindNotAPushEvent, nil,
			"No action. Event is not a push event.")))
	}

	cfg := o.cfg.Current()

	ev, err := ParseEvent(body)
	if err != nil {
		log.Error("Rejected push event payload", zap.Error(err))
		return o.finish(rc, fromError(err))
	}

	log.Info("Received push event",
		zap.String("repo", ev.Repository.Name),
		zap.String("ref", ev.Ref),
		zap.String("after", ev.After))

	return o.sync(rc, cfg, ev.Repository.Name, func() (string, error) {
		return ev.SourceURL(cfg.SourceURLField)
	})
}

// SyncRepository mirrors a repository without a webhook payload. Eligibility
// and the target probe still apply.
func (o *Orchestrator) SyncRepository(rc *relay_io.RuntimeContext, name, sourceURL string) Outcome {
	return o.sync(rc, o.cfg.Current(), name, func() (string, error) {
		return sourceURL, nil
	})
}

// sync runs the mirror steps for name. source is resolved only once the
// repository is known to be eligible.
func (o *Orchestrator) sync(rc *relay_io.RuntimeContext, cfg *config.SyncConfig, name string, source func() (string, error)) Outcome {
	rc.Attributes["repo"] = name
	log := rc.Logger(zap.String("repo", name))

	if !cfg.Allows(name) {
		err := relay_err.New(relay_err.KindIneligibleRepository, nil, "Repo %s not under GitLab", name)
		log.Error("Repository is not in the allow-list", zap.Error(err))
		return o.finish(rc, fromError(err))
	}

	sourceURL, err := source()
	if err != nil {
		log.Error("Rejected push event payload", zap.Error(err),
			zap.String("source_url_field", cfg.SourceURLField))
		return o.finish(rc, fromError(err))
	}

	targetURL := cfg.TargetURL(name)
	log = rc.Logger(zap.String("repo", name), zap.String("target_url", targetURL))

	if cfg.PrecheckTarget {
		ctx, span := telemetry.Start(rc.Ctx, "sync.precheck", attribute.String("target_url", targetURL))
		ok := o.transport.VerifyRemoteReachable(ctx, targetURL)
		span.SetAttributes(attribute.Bool("reachable", ok))
		span.End()

		if !ok {
			err := relay_err.New(relay_err.KindMissingTargetRepository, nil,
				"Corresponding target repo %s not found.", targetURL)
			log.Error("Target repository not found", zap.Error(err))
			return o.finish(rc, fromError(err))
		}
	}

	ctx, span := telemetry.Start(rc.Ctx, "sync.clone", attribute.String("source_url", sourceURL))
	wc, err := o.transport.CloneToWorkspace(ctx, sourceURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clone failed")
		span.End()
		serr := relay_err.New(relay_err.KindSourceTransportFailure, err, "%s clone failed: %s", sourceURL, err.Error())
		log.Error("Failed to clone source repository", zap.String("source_url", sourceURL), zap.Error(err))
		return o.finish(rc, fromError(serr))
	}
	span.End()

	defer func() {
		if err := o.transport.ReleaseWorkspace(wc); err != nil {
			log.Warn("Failed to release workspace", zap.String("dir", wc.Dir), zap.Error(err))
		}
	}()

	remote, err := o.transport.RegisterRemote(wc, shared.MirrorRemoteName, targetURL)
	if err != nil {
		serr := relay_err.New(relay_err.KindRemoteRegistrationFailure, err, "%s", err.Error())
		log.Error("Failed to register mirror remote", zap.Error(err))
		return o.finish(rc, fromError(serr))
	}

	ctx, span = telemetry.Start(rc.Ctx, "sync.push", attribute.String("target_url", targetURL))
	log.Info("Attempting to sync to target remote")
	results, err := o.transport.PushAll(ctx, remote)
	span.SetAttributes(attribute.Int("refs", len(results)))
	span.End()

	out := aggregate(targetURL, results, err)
	if !out.Succeeded() {
		log.Error("Failed to push to target repository",
			zap.String("message", out.Message),
			zap.Int("refs", len(results)),
			zap.Error(err))
		return o.finish(rc, out)
	}

	log.Info("Repository synced", zap.Int("refs", len(results)))
	return o.finish(rc, out)
}

// aggregate folds per-ref results into an Outcome. Zero results is a failure.
func aggregate(targetURL string, results []git.RefPushResult, err error) Outcome {
	if err != nil || len(results) == 0 {
		out := fromError(relay_err.New(relay_err.KindPushFailure, err,
			"Failed to push to target repo %s", targetURL))
		out.Refs = results
		return out
	}

	var failures []string
	for _, r := range results {
		if !r.Succeeded {
			failures = append(failures, r.ErrorSummary)
		}
	}
	if len(failures) > 0 {
		out := fromError(relay_err.New(relay_err.KindPushFailure, nil,
			"Failed to push.\n%s", strings.Join(failures, "\n")))
		out.Refs = results
		return out
	}

	out := success()
	out.Refs = results
	return out
}

func (o *Orchestrator) finish(rc *relay_io.RuntimeContext, out Outcome) Outcome {
	rc.Attributes["status"] = out.Kind.String()
	rc.Span.SetAttributes(attribute.Int("http.status_code", out.StatusCode))
	telemetry.RecordOutcome(rc.Ctx, out.StatusCode, out.Kind.String())
	return out
}
