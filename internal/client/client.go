// Package client implements the two protocol variants of the remote
// gallery service behind the domain.Client capability interface.
package client

import (
	"net/url"
	"strings"

	"gallarr/internal/domain"
	"gallarr/internal/logger"

	"github.com/pkg/errors"
)

// New builds the client variant the configuration names. With caching
// enabled the client is wrapped so repeated detail lookups stay in memory
// for the life of the process.
func New(cfg *domain.Config, log logger.Logger) (domain.Client, error) {
	var c domain.Client

	switch cfg.ClientType {
	case "", domain.ClientTypeAPI:
		c = newAPIClient(cfg, log)
	case domain.ClientTypeHTML:
		c = newHTMLClient(cfg, log)
	default:
		return nil, errors.Errorf("unknown client type: %q", cfg.ClientType)
	}

	if cfg.CacheEnabled {
		c = NewCached(c, newEntityStore(), log)
	}

	return c, nil
}

// endpointURL joins a candidate host with a path and query. Hosts may
// carry an explicit scheme; bare mirror names default to https.
func endpointURL(host, path string, params url.Values) string {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	u := base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	return u
}
