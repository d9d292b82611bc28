// Package config holds the runtime configuration of the service, populated
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	// ServerListenAddr specifies the network address that the HTTP server will listen on.
	ServerListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":3590"`
	// PublicHost is the public (external) base URL where the service is accessible.
	PublicHost string `env:"PUBLIC_HOST" envDefault:"http://127.0.0.1:3590"`

	ServiceEnvironment   string `env:"SERVICE_ENVIRONMENT" envDefault:"lcl"`
	OtelExporterEndpoint string `env:"OTEL_EXPORTER_ENDPOINT" envDefault:"127.0.0.1:4317"`
	LokiHost             string `env:"LOKI_HOST" envDefault:"http://127.0.0.1:3100"`

	// OMDBAPIKey is the fixed API key sent with every OMDb request.
	OMDBAPIKey  string `env:"OMDB_API_KEY,required"`
	OMDBBaseURL string `env:"OMDB_BASE_URL" envDefault:"https://www.omdbapi.com"`

	CachePath     string `env:"CACHE_PATH" envDefault:".cache"`
	WatchedDBPath string `env:"WATCHED_DB_PATH" envDefault:".watched"`

	// SearchMinQueryLength is the minimum query length below which no lookup is issued.
	SearchMinQueryLength int `env:"SEARCH_MIN_QUERY_LENGTH" envDefault:"3"`
	// SearchDebounce delays a lookup after the last query change. Zero disables debouncing.
	SearchDebounce time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"0s"`

	StatsWebsocketChannel string        `env:"STATS_WEBSOCKET_CHANNEL" envDefault:"stats"`
	StatsPollInterval     time.Duration `env:"STATS_POLL_INTERVAL" envDefault:"1m"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to env.Parse: %w", err)
	}

	u, err := url.Parse(cfg.PublicHost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PUBLIC_HOST: %w", err)
	}
	cfg.PublicHost = fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	return cfg, nil
}
