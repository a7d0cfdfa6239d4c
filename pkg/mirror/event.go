// pkg/mirror/event.go

package mirror

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/config"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/go-playground/validator/v10"
)

// Repository is the subset of a GitHub repository object the relay reads.
type Repository struct {
	Name     string `json:"name" validate:"required"`
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
	SSHURL   string `json:"ssh_url"`
	HTMLURL  string `json:"html_url"`
}

// PushEvent is a GitHub push webhook payload.
type PushEvent struct {
	Ref        string      `json:"ref"`
	Before     string      `json:"before"`
	After      string      `json:"after"`
	Repository *Repository `json:"repository" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseEvent decodes and validates a push payload.
func ParseEvent(body []byte) (*PushEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) || bytes.Equal(trimmed, []byte("null")) {
		return nil, relay_err.New(relay_err.KindMalformedPayload, nil, "Request body is not JSON.")
	}

	var ev PushEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		field := "repository"
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			field = te.Field
		}
		return nil, missingField(field, err)
	}

	if err := validate.Struct(&ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, missingField(fieldPath(verrs[0]), err)
		}
		return nil, missingField("repository", err)
	}
	return &ev, nil
}

// SourceURL picks the clone address named by field (clone, ssh or html).
func (e *PushEvent) SourceURL(field string) (string, error) {
	var key, url string
	switch field {
	case config.SourceFieldSSH:
		key, url = "repository.ssh_url", e.Repository.SSHURL
	case config.SourceFieldHTML:
		key, url = "repository.html_url", e.Repository.HTMLURL
	default:
		key, url = "repository.clone_url", e.Repository.CloneURL
	}
	if strings.TrimSpace(url) == "" {
		return "", missingField(key, nil)
	}
	return url, nil
}

func missingField(field string, cause error) error {
	return relay_err.New(relay_err.KindMalformedPayload, cause,
		"Request body is missing required field %s.", field)
}

// fieldPath turns "PushEvent.repository.name" into "repository.name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}
