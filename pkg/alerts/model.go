// pkg/alerts/model.go
package alerts

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Alert is one log entry promoted to a chat notification.
type Alert struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Fields  map[string]any
}

// Payload is the incoming-webhook body understood by Mattermost and Slack.
type Payload struct {
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// Render formats the alert as a webhook payload.
func (a Alert) Render(username string) Payload {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**", strings.ToUpper(a.Level))
	if !a.Time.IsZero() {
		fmt.Fprintf(&b, " `%s`", a.Time.UTC().Format(time.RFC3339))
	}
	if a.Logger != "" {
		fmt.Fprintf(&b, " %s:", a.Logger)
	}
	b.WriteString(" ")
	b.WriteString(a.Message)

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, a.Fields[k])
	}

	return Payload{Username: username, Text: b.String()}
}
