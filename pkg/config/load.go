// pkg/config/load.go

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flag name -> config key
var flagKeys = map[string]string{
	"gitlab-base-url":    "gitlab_url",
	"github-repos":       "github_repos",
	"require-allow-list": "require_allow_list",
	"source-url-field":   "source_url_field",
	"precheck-target":    "precheck_target",
	"workspace-dir":      "workspace_dir",
	"host":               "host",
	"port":               "port",
	"alert-webhook-url":  "alert_webhook_url",
	"alert-username":     "alert_username",
	"log-level":          "log_level",
	"telemetry":          "telemetry",
	"telemetry-file":     "telemetry_file",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterFlags adds every configuration flag to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a JSON or YAML config file")
	fs.String("gitlab-base-url", "", "Base URL to route sync all repositories to")
	fs.StringSlice("github-repos", nil, "Repository names allowed to be mirrored")
	fs.Bool("require-allow-list", false, "Only mirror repositories listed in github-repos")
	fs.String("source-url-field", SourceFieldClone, "Push event URL to clone from: clone, ssh or html")
	fs.Bool("precheck-target", true, "Verify the target repository exists before cloning")
	fs.String("workspace-dir", "", "Parent directory for temporary clones (default OS temp dir)")
	fs.String("host", shared.DefaultHost, "Address to listen on")
	fs.Int("port", shared.DefaultPort, "Port to listen on")
	fs.String("alert-webhook-url", "", "If set, warnings and errors are posted to this chat webhook")
	fs.String("alert-username", shared.DefaultAlertUsername, "Username shown on chat alerts")
	fs.String("log-level", "INFO", "Log level: TRACE, DEBUG, INFO, WARN, ERROR")
	fs.Bool("telemetry", false, "Export trace spans")
	fs.String("telemetry-file", "", "Write spans to this file instead of stdout")
}

// SetDefaults seeds v with the values used when nothing else is set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source_url_field", SourceFieldClone)
	v.SetDefault("precheck_target", true)
	v.SetDefault("host", shared.DefaultHost)
	v.SetDefault("port", shared.DefaultPort)
	v.SetDefault("alert_username", shared.DefaultAlertUsername)
	v.SetDefault("log_level", "INFO")
}

// NewViper returns a viper instance with defaults, MIRRORHOOK_* env lookup and
// the flags in fs bound. fs may be nil.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(shared.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if fs == nil {
		return v, nil
	}

	var result error
	for flagName, key := range flagKeys {
		f := fs.Lookup(flagName)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		return nil, cerr.Wrap(result, "failed to bind flags")
	}

	path := ""
	if f := fs.Lookup("config"); f != nil {
		path = f.Value.String()
	}
	if path == "" {
		// config.json in the working directory is picked up implicitly
		if _, err := os.Stat(shared.DefaultConfigFile); err == nil {
			path = shared.DefaultConfigFile
		}
	}
	if path != "" {
		if err := ReadFile(v, path); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ReadFile loads a config file into v. The format follows the extension.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return relay_err.WrapConfigError(
			cerr.Wrapf(err, "failed to read config file %s", path),
			"check that the file exists and is valid JSON or YAML",
		)
	}
	return nil
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := decode(v)
	if err != nil {
		return nil, relay_err.WrapConfigError(err,
			"check the types of the values in your config file and environment")
	}
	if err := Validate(cfg); err != nil {
		return nil, relay_err.WrapConfigError(err,
			"set --gitlab-base-url, and use --require-allow-list together with --github-repos")
	}
	return cfg, nil
}

// decode unmarshals v. A github_repos list without an explicit
// require_allow_list turns the allow-list on.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, cerr.Wrap(err, "failed to decode configuration")
	}
	if !v.IsSet("require_allow_list") && len(cfg.Sync.AllowedRepoNames) > 0 {
		cfg.Sync.RequireAllowList = true
	}
	return &cfg, nil
}

// Validate checks field constraints and the allow-list policy, reporting
// every problem found.
func Validate(cfg *Config) error {
	var result *multierror.Error

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if cerr.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierror.Append(result, fieldError(fe))
			}
		} else {
			result = multierror.Append(result, err)
		}
	}

	if err := ValidatePolicy(&cfg.Sync); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// ValidatePolicy rejects allow-list combinations that silently do the wrong thing.
func ValidatePolicy(c *SyncConfig) error {
	switch {
	case c.RequireAllowList && len(c.AllowedRepoNames) == 0:
		return cerr.New("require_allow_list is set but github_repos is empty, nothing would be mirrored")
	case !c.RequireAllowList && len(c.AllowedRepoNames) > 0:
		return cerr.New("github_repos is set but require_allow_list is explicitly false, the list would be ignored")
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	name, index := fe.StructField(), ""
	if i := strings.IndexByte(name, '['); i >= 0 {
		name, index = name[:i], name[i:]
	}
	key := fe.Field()
	if k, ok := structKeys[name]; ok {
		key = k + index
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "url":
		return fmt.Errorf("%s must be a URL, got %q", key, fe.Value())
	case "min", "max":
		return fmt.Errorf("%s out of range: %v", key, fe.Value())
	default:
		return fmt.Errorf("%s failed %s validation", key, fe.Tag())
	}
}

var structKeys = map[string]string{
	"TargetBaseURL":    "gitlab_url",
	"AllowedRepoNames": "github_repos",
	"SourceURLField":   "source_url_field",
	"Host":             "host",
	"Port":             "port",
	"AlertWebhookURL":  "alert_webhook_url",
}
