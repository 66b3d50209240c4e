// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() builds a Config with defaults, Load(ctx) layers an optional
//     YAML file and environment variables on top.
//   - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the operational HTTP listen address, e.g. ":9090".
	// It serves /healthz and /metrics only.
	Addr string `koanf:"addr"`

	// DBDriver and DBDSN configure the relational store.
	DBDriver string `koanf:"db_driver"`
	DBDSN    string `koanf:"db_dsn"`

	// QueueSize bounds the in-memory rating request queue.
	QueueSize int `koanf:"queue_size"`

	// DirectoryRefreshSeconds is the interval between background reloads
	// of the rating-type directory.
	DirectoryRefreshSeconds int `koanf:"directory_refresh_seconds"`

	// RequestTimeoutSeconds bounds the processing of one rating request,
	// covering its store and bus calls.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`

	// ExchangeName is the bus exchange for both inbound requests and
	// outbound notifications.
	ExchangeName string `koanf:"exchange_name"`

	// RatingRequestRoutingKey selects inbound game-result messages.
	RatingRequestRoutingKey string `koanf:"rating_request_routing_key"`

	// RatingUpdateRoutingKey is where rating-changed events are published.
	RatingUpdateRoutingKey string `koanf:"rating_update_routing_key"`

	// StartRatingMean and StartRatingDeviation seed a player's first
	// rating in a scope.
	StartRatingMean      float64 `koanf:"start_rating_mean"`
	StartRatingDeviation float64 `koanf:"start_rating_deviation"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9090",
		DBDriver:                "sqlite3",
		DBDSN:                   "file:rating.db?_fk=1",
		QueueSize:               10_000,
		DirectoryRefreshSeconds: 600,
		RequestTimeoutSeconds:   30,
		ExchangeName:            "faf-rabbitmq",
		RatingRequestRoutingKey: "request.rating",
		RatingUpdateRoutingKey:  "success.rating.update",
		StartRatingMean:         1500,
		StartRatingDeviation:    500,
	}
}
