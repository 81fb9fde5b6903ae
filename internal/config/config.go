package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Haulbook"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host        string `envconfig:"DB_HOST" default:"localhost"`
		Port        int    `envconfig:"DB_PORT" default:"5432"`
		User        string `envconfig:"DB_USER" default:"postgres"`
		Password    string `envconfig:"DB_PASSWORD" default:""`
		Name        string `envconfig:"DB_NAME" default:"haulbook"`
		AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		// Empty secret disables bearer auth on the API.
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
		JWTIssuer string `envconfig:"AUTH_JWT_ISSUER" default:"haulbook"`
	}

	CORS struct {
		AllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Log LogConfig

	Client ClientConfig
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// ClientConfig is read by the terminal client and the CLI.
type ClientConfig struct {
	APIURL         string        `envconfig:"CLIENT_API_URL" default:"http://localhost:8080"`
	APIToken       string        `envconfig:"CLIENT_API_TOKEN"`
	OutboxPath     string        `envconfig:"CLIENT_OUTBOX_PATH" default:"haulbook-outbox.db"`
	PollInterval   time.Duration `envconfig:"CLIENT_POLL_INTERVAL" default:"5s"`
	RequestTimeout time.Duration `envconfig:"CLIENT_REQUEST_TIMEOUT" default:"15s"`
	CacheTTL       time.Duration `envconfig:"CLIENT_CACHE_TTL" default:"1m"`
	// LeaseTTL is how long a claimed outbox item stays reserved for the
	// process replaying it. It must exceed RequestTimeout.
	LeaseTTL time.Duration `envconfig:"CLIENT_LEASE_TTL" default:"2m"`
	// LogPath receives the terminal client's logs; empty discards them.
	LogPath string `envconfig:"CLIENT_LOG_PATH"`
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var origins []string

	for _, o := range strings.Split(c.CORS.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return origins
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Client.PollInterval <= 0 || cfg.Client.PollInterval > 5*time.Second {
		return nil, fmt.Errorf("CLIENT_POLL_INTERVAL must be within (0, 5s], got %s", cfg.Client.PollInterval)
	}

	if cfg.Client.LeaseTTL <= cfg.Client.RequestTimeout {
		return nil, fmt.Errorf("CLIENT_LEASE_TTL (%s) must exceed CLIENT_REQUEST_TIMEOUT (%s)", cfg.Client.LeaseTTL, cfg.Client.RequestTimeout)
	}

	return &cfg, nil
}
