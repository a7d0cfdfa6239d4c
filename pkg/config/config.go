// pkg/config/config.go

package config

import (
	"slices"
	"strings"
)

// Source URL fields a push event can be cloned from.
const (
	SourceFieldClone = "clone"
	SourceFieldSSH   = "ssh"
	SourceFieldHTML  = "html"
)

// SyncConfig decides which repositories are mirrored and where to.
type SyncConfig struct {
	TargetBaseURL    string   `mapstructure:"gitlab_url" json:"gitlab_url" yaml:"gitlab_url" validate:"required"`
	AllowedRepoNames []string `mapstructure:"github_repos" json:"github_repos" yaml:"github_repos" validate:"dive,required"`
	RequireAllowList bool     `mapstructure:"require_allow_list" json:"require_allow_list" yaml:"require_allow_list"`
	SourceURLField   string   `mapstructure:"source_url_field" json:"source_url_field" yaml:"source_url_field" validate:"oneof=clone ssh html"`
	PrecheckTarget   bool     `mapstructure:"precheck_target" json:"precheck_target" yaml:"precheck_target"`
	WorkspaceDir     string   `mapstructure:"workspace_dir" json:"workspace_dir" yaml:"workspace_dir"`
}

// Allows reports whether a repository may be mirrored.
func (c *SyncConfig) Allows(name string) bool {
	if !c.RequireAllowList {
		return true
	}
	return slices.Contains(c.AllowedRepoNames, name)
}

// TargetURL is the mirror location for a repository name.
func (c *SyncConfig) TargetURL(name string) string {
	return strings.TrimRight(c.TargetBaseURL, "/") + "/" + name
}

// ServerConfig holds process-level settings that need a restart to change.
type ServerConfig struct {
	Host            string `mapstructure:"host" json:"host" yaml:"host" validate:"required"`
	Port            int    `mapstructure:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`
	AlertWebhookURL string `mapstructure:"alert_webhook_url" json:"alert_webhook_url" yaml:"alert_webhook_url" validate:"omitempty,url"`
	AlertUsername   string `mapstructure:"alert_username" json:"alert_username" yaml:"alert_username"`
	LogLevel        string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	Telemetry       bool   `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry"`
	TelemetryFile   string `mapstructure:"telemetry_file" json:"telemetry_file" yaml:"telemetry_file"`
}

// Config is the full resolved configuration.
type Config struct {
	Sync   SyncConfig   `mapstructure:",squash" yaml:",inline"`
	Server ServerConfig `mapstructure:",squash" yaml:",inline"`
}
