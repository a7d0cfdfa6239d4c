// pkg/mirror/outcome.go

package mirror

import (
	"errors"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/git"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
)

// Outcome is the externally reported result of handling one event.
type Outcome struct {
	StatusCode int
	Message    string
	Kind       relay_err.Kind
	// Refs is populated once a push was attempted.
	Refs []git.RefPushResult
}

// Succeeded reports whether the repository was mirrored.
func (o Outcome) Succeeded() bool {
	return o.Kind == relay_err.KindNone
}

func success() Outcome {
	return Outcome{
		StatusCode: relay_err.KindNone.StatusCode(),
		Message:    "Repository synced.",
		Kind:       relay_err.KindNone,
	}
}

func fromError(err error) Outcome {
	kind := relay_err.KindOf(err)
	msg := err.Error()
	var se *relay_err.SyncError
	if errors.As(err, &se) {
		msg = se.Message
	}
	return Outcome{StatusCode: kind.StatusCode(), Message: msg, Kind: kind}
}
