package api

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/coursepay/internal/logging"
)

type Option func(*Client)

// WithHTTPClient replaces the transport client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every single attempt (original, refresh, replay).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.With("component", "api")
		}
	}
}

func WithCoordinator(rc *RefreshCoordinator) Option {
	return func(c *Client) {
		if rc != nil {
			c.coordinator = rc
		}
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

func WithAuthLostHandler(h AuthLostHandler) Option {
	return func(c *Client) { c.onAuthLost = h }
}
