package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/relay_err"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestSyncConfigAllows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  SyncConfig
		repo string
		want bool
	}{
		{"unconditional", SyncConfig{}, "anything", true},
		{"listed", SyncConfig{RequireAllowList: true, AllowedRepoNames: []string{"testrepo"}}, "testrepo", true},
		{"not listed", SyncConfig{RequireAllowList: true, AllowedRepoNames: []string{"testrepo"}}, "other", false},
		{"case sensitive", SyncConfig{RequireAllowList: true, AllowedRepoNames: []string{"testrepo"}}, "TestRepo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.Allows(tt.repo))
		})
	}
}

func TestSyncConfigTargetURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base string
		want string
	}{
		{"https://gitlab.example.com/mirrors", "https://gitlab.example.com/mirrors/testrepo"},
		{"https://gitlab.example.com/mirrors/", "https://gitlab.example.com/mirrors/testrepo"},
		{"/srv/git//", "/srv/git/testrepo"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			t.Parallel()
			c := SyncConfig{TargetBaseURL: tt.base}
			assert.Equal(t, tt.want, c.TargetURL("testrepo"))
		})
	}
}

func TestLoadFromFlags(t *testing.T) {
	t.Parallel()

	fs := newFlags(t,
		"--gitlab-base-url", "https://gitlab.example.com/mirrors",
		"--github-repos", "a,b",
		"--require-allow-list",
		"--port", "9090",
	)
	v, err := NewViper(fs)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.example.com/mirrors", cfg.Sync.TargetBaseURL)
	assert.Equal(t, []string{"a", "b"}, cfg.Sync.AllowedRepoNames)
	assert.True(t, cfg.Sync.RequireAllowList)
	assert.True(t, cfg.Sync.PrecheckTarget)
	assert.Equal(t, SourceFieldClone, cfg.Sync.SourceURLField)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "GitHub to GitLab logs", cfg.Server.AlertUsername)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{
		"gitlab_url": "https://gitlab.example.com/mirrors",
		"github_repos": ["testrepo"],
		"require_allow_list": true,
		"source_url_field": "ssh",
		"precheck_target": false
	}`)

	fs := newFlags(t, "--config", path)
	v, err := NewViper(fs)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"testrepo"}, cfg.Sync.AllowedRepoNames)
	assert.Equal(t, SourceFieldSSH, cfg.Sync.SourceURLField)
	assert.False(t, cfg.Sync.PrecheckTarget)
}

func TestLoadReposImplyAllowList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		want    bool
		wantErr string
	}{
		{
			name: "list without flag enforces the list",
			doc:  `{"github_repos": ["testrepo"], "gitlab_url": "https://gitlab.example.com/grp"}`,
			want: true,
		},
		{
			name:    "explicit false with a list is rejected",
			doc:     `{"github_repos": ["testrepo"], "gitlab_url": "https://gitlab.example.com/grp", "require_allow_list": false}`,
			wantErr: "require_allow_list is explicitly false",
		},
		{
			name: "no list means every repository",
			doc:  `{"gitlab_url": "https://gitlab.example.com/grp"}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.json")
			writeFile(t, path, tt.doc)

			v, err := NewViper(newFlags(t, "--config", path))
			require.NoError(t, err)

			cfg, err := Load(v)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Sync.RequireAllowList)
			if tt.want {
				assert.True(t, cfg.Sync.Allows("testrepo"))
				assert.False(t, cfg.Sync.Allows("other"))
			} else {
				assert.True(t, cfg.Sync.Allows("other"))
			}
		})
	}
}

func TestFlagOverridesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "gitlab_url: https://file.example.com\nport: 7000\n")

	fs := newFlags(t, "--config", path, "--gitlab-base-url", "https://flag.example.com")
	v, err := NewViper(fs)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.Sync.TargetBaseURL)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MIRRORHOOK_GITLAB_URL", "https://env.example.com")
	t.Setenv("MIRRORHOOK_PORT", "8181")

	v, err := NewViper(newFlags(t))
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Sync.TargetBaseURL)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	fs := newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.json"))
	_, err := NewViper(fs)
	require.Error(t, err)
	assert.True(t, relay_err.IsExpectedUserError(err))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Sync: SyncConfig{
				TargetBaseURL:  "https://gitlab.example.com",
				SourceURLField: SourceFieldClone,
				PrecheckTarget: true,
			},
			Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Sync.TargetBaseURL = "" },
			wantErr: []string{"gitlab_url is required"},
		},
		{
			name:    "bad source field",
			mutate:  func(c *Config) { c.Sync.SourceURLField = "git" },
			wantErr: []string{"source_url_field must be one of"},
		},
		{
			name:    "allow list required but empty",
			mutate:  func(c *Config) { c.Sync.RequireAllowList = true },
			wantErr: []string{"github_repos is empty"},
		},
		{
			name:    "allow list ignored",
			mutate:  func(c *Config) { c.Sync.AllowedRepoNames = []string{"x"} },
			wantErr: []string{"require_allow_list is explicitly false"},
		},
		{
			name:    "empty repo name",
			mutate:  func(c *Config) { c.Sync.RequireAllowList = true; c.Sync.AllowedRepoNames = []string{""} },
			wantErr: []string{"github_repos[0] is required"},
		},
		{
			name: "several problems reported together",
			mutate: func(c *Config) {
				c.Sync.TargetBaseURL = ""
				c.Server.Port = 0
				c.Server.AlertWebhookURL = "not a url"
			},
			wantErr: []string{"gitlab_url is required", "port out of range", "alert_webhook_url must be a URL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestStaticSource(t *testing.T) {
	t.Parallel()

	src := Static(SyncConfig{TargetBaseURL: "https://x"})
	assert.Equal(t, "https://x", src.Current().TargetBaseURL)
}

func TestStoreReplaceRejectsInvalid(t *testing.T) {
	t.Parallel()

	initial := &Config{
		Sync:   SyncConfig{TargetBaseURL: "https://a", SourceURLField: SourceFieldClone},
		Server: ServerConfig{Host: "h", Port: 1},
	}
	s := NewStore(initial)

	var seen int
	s.OnChange(func(*Config) { seen++ })

	bad := *initial
	bad.Sync.TargetBaseURL = ""
	assert.Error(t, s.Replace(&bad))
	assert.Equal(t, "https://a", s.Current().TargetBaseURL)

	good := *initial
	good.Sync.TargetBaseURL = "https://b"
	require.NoError(t, s.Replace(&good))
	assert.Equal(t, "https://b", s.Current().TargetBaseURL)
	assert.Equal(t, 1, seen)
}

func TestStoreWatchReloads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"gitlab_url": "https://before.example.com"}`)

	v, err := NewViper(newFlags(t, "--config", path))
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	s := NewStore(cfg)
	s.Watch(v, zap.NewNop())

	// invalid change is ignored
	writeFile(t, path, `{"gitlab_url": "https://x", "require_allow_list": true}`)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "https://before.example.com", s.Current().TargetBaseURL)

	writeFile(t, path, `{"gitlab_url": "https://after.example.com"}`)
	assert.Eventually(t, func() bool {
		return s.Current().TargetBaseURL == "https://after.example.com"
	}, 5*time.Second, 50*time.Millisecond)
}
