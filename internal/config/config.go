package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, database connection,
// the scan pipeline stages and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"10s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"ghostscan" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Scout configures the discovery stage.
	Scout struct {
		// ConcurrencyLimit caps how many source probes run at once per scan
		ConcurrencyLimit int `env:"SCOUT_CONCURRENCY_LIMIT" env-default:"4" yaml:"concurrencyLimit"`
		// PerSourceTimeout bounds each source probe
		PerSourceTimeout time.Duration `env:"SCOUT_PER_SOURCE_TIMEOUT" env-default:"15s" yaml:"perSourceTimeout"`
	} `yaml:"scout"`

	// Auditor configures clustering and scoring.
	Auditor struct {
		// SimilarityThreshold is the minimum normalized handle similarity for
		// linking candidates from different sources, in [0, 1]
		SimilarityThreshold float64 `env:"AUDITOR_SIMILARITY_THRESHOLD" env-default:"0.85" yaml:"similarityThreshold"`
		// MinSharedFields is how many matched identity fields two candidates
		// must share before similarity-based linking applies
		MinSharedFields int `env:"AUDITOR_MIN_SHARED_FIELDS" env-default:"1" yaml:"minSharedFields"`
		// AccountWeight is the base severity weight for discovered accounts
		AccountWeight float64 `env:"AUDITOR_ACCOUNT_WEIGHT" env-default:"4.0" yaml:"accountWeight"`
		// BrokerListingWeight is the base severity weight for data broker listings
		BrokerListingWeight float64 `env:"AUDITOR_BROKER_LISTING_WEIGHT" env-default:"7.0" yaml:"brokerListingWeight"`
		// LeakedRecordWeight is the base severity weight for breached records
		LeakedRecordWeight float64 `env:"AUDITOR_LEAKED_RECORD_WEIGHT" env-default:"9.5" yaml:"leakedRecordWeight"`
		// RequiredCategories lists risk categories that must be assessable.
		// When set, an audit over zero candidates fails instead of producing
		// an empty report.
		RequiredCategories []string `env:"AUDITOR_REQUIRED_CATEGORIES" env-default:"" yaml:"requiredCategories"`
	} `yaml:"auditor"`

	// Ghost configures takedown notice generation.
	Ghost struct {
		// SeverityThreshold is the minimum cluster severity that triggers a notice
		SeverityThreshold float64 `env:"GHOST_SEVERITY_THRESHOLD" env-default:"5.0" yaml:"severityThreshold"`
		// RequesterName is the name placed on generated notices
		RequesterName string `env:"GHOST_REQUESTER_NAME" env-default:"Privacy Requests Desk" yaml:"requesterName"`
		// RequesterEmail is the reply address placed on generated notices
		RequesterEmail string `env:"GHOST_REQUESTER_EMAIL" env-default:"privacy@ghostscan.local" yaml:"requesterEmail"`
	} `yaml:"ghost"`

	// Sources holds per-source credentials and endpoints. A source with no
	// usable credentials is left out of the default adapter set.
	Sources struct {
		// HibpAPIKey authenticates against the Have I Been Pwned API
		HibpAPIKey string `env:"SOURCES_HIBP_API_KEY" env-default:"" yaml:"hibpApiKey"`
		// BrokerDirBaseURL is the data broker directory API base URL
		BrokerDirBaseURL string `env:"SOURCES_BROKERDIR_BASE_URL" env-default:"" yaml:"brokerDirBaseUrl"`
		// BrokerDirAPIKey authenticates against the data broker directory API
		BrokerDirAPIKey string `env:"SOURCES_BROKERDIR_API_KEY" env-default:"" yaml:"brokerDirApiKey"`
	} `yaml:"sources"`

	// DataTTL is how long finished scans and their notices are retained
	// before the purge loop hard-deletes them
	DataTTL time.Duration `env:"DATA_TTL" env-default:"24h" yaml:"dataTtl"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
