// pkg/httpclient/httpclient.go
package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/CodeMonkeyCybersecurity/mirrorhook/pkg/shared"
)

// Config represents HTTP client configuration options
type Config struct {
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent       string        `json:"user_agent" yaml:"user_agent"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `json:"idle_conn_timeout" yaml:"idle_conn_timeout"`
}

// DefaultConfig is tuned for short outbound notifications.
func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		UserAgent:       shared.ServiceName + "/" + shared.Version,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
}

// NewClient builds an *http.Client from cfg, filling zero fields from DefaultConfig.
func NewClient(cfg Config) *http.Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{base: base, agent: cfg.UserAgent},
	}
}

// DefaultClient returns a client built from DefaultConfig.
func DefaultClient() *http.Client {
	return NewClient(DefaultConfig())
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}
