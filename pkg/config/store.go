// pkg/config/store.go

package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Source hands out the sync configuration in effect right now. Callers must
// treat the returned value as read-only.
type Source interface {
	Current() *SyncConfig
}

// Static wraps a fixed configuration.
func Static(cfg SyncConfig) Source {
	return staticSource{cfg: &cfg}
}

type staticSource struct {
	cfg *SyncConfig
}

func (s staticSource) Current() *SyncConfig { return s.cfg }

// Store holds the live configuration and swaps it atomically on reload.
type Store struct {
	cfg      atomic.Pointer[Config]
	onChange []func(*Config)
}

// NewStore starts a store from an already validated configuration.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.cfg.Store(cfg)
	return s
}

// Current implements Source.
func (s *Store) Current() *SyncConfig {
	return &s.cfg.Load().Sync
}

// Config returns the full configuration snapshot.
func (s *Store) Config() *Config {
	return s.cfg.Load()
}

// OnChange registers fn to run after every accepted reload.
// Must be called before Watch.
func (s *Store) OnChange(fn func(*Config)) {
	s.onChange = append(s.onChange, fn)
}

// Replace validates cfg and makes it current. An invalid cfg leaves the
// previous one in place.
func (s *Store) Replace(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	s.cfg.Store(cfg)
	for _, fn := range s.onChange {
		fn(cfg)
	}
	return nil
}

// Watch reloads the store whenever the config file behind v changes.
// It is a no-op when v has no config file.
func (s *Store) Watch(v *viper.Viper, log *zap.Logger) {
	if v.ConfigFileUsed() == "" {
		log.Debug("No config file in use, hot reload disabled")
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log := log.With(zap.String("file", e.Name), zap.String("op", e.Op.String()))

		next, err := decode(v)
		if err != nil {
			log.Warn("Config reload rejected, keeping previous configuration", zap.Error(err))
			return
		}
		if err := s.Replace(next); err != nil {
			log.Warn("Config reload rejected, keeping previous configuration", zap.Error(err))
			return
		}
		log.Info("Configuration reloaded",
			zap.String("gitlab_url", next.Sync.TargetBaseURL),
			zap.Int("github_repos", len(next.Sync.AllowedRepoNames)),
			zap.Bool("require_allow_list", next.Sync.RequireAllowList))
	})
	v.WatchConfig()
	log.Info("Watching config file for changes", zap.String("file", v.ConfigFileUsed()))
}
