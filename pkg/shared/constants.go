// pkg/shared/constants.go

package shared

// Version is overridden at build time with -ldflags "-X .../pkg/shared.Version=...".
var Version = "dev"

const (
	ServiceName = "mirrorhook"
	EnvPrefix   = "MIRRORHOOK"
)

const (
	// EventHeader carries the webhook event kind on every GitHub delivery.
	EventHeader     = "X-GitHub-Event"
	PushEventKind   = "push"
	RequestIDHeader = "X-Request-Id"

	// MaxPayloadBytes matches GitHub's documented webhook payload cap.
	MaxPayloadBytes = 25 << 20
)

const (
	// MirrorRemoteName is the remote registered inside every working copy.
	MirrorRemoteName = "mirror"
	WorkspacePattern = "mirrorhook-*"
)

const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 8080
	DefaultAlertUsername = "GitHub to GitLab logs"
	DefaultConfigFile    = "config.json"
)

const (
	DirPermOwnerOnly       = 0700
	DirPermStandard        = 0755
	FilePermOwnerReadWrite = 0600
	FilePermStandard       = 0644
)
