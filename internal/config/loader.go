package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "bors2.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BORS2_PORT")
	setString(&cfg.Server.Host, "BORS2_HOST")
	setString(&cfg.Server.SessionKey, "SESSION_KEY")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "BORS2_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "BORS2_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "BORS2_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "BORS2_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "BORS2_PG_HEALTH_CHECK")
	setString(&cfg.GitHub.ClientID, "GH_CLIENT_ID")
	setString(&cfg.GitHub.ClientSecret, "GH_CLIENT_SECRET")
	setString(&cfg.GitHub.APIURL, "BORS2_GITHUB_API_URL")
	setString(&cfg.GitHub.AuthURL, "BORS2_GITHUB_AUTH_URL")
	setString(&cfg.GitHub.TokenURL, "BORS2_GITHUB_TOKEN_URL")
	setString(&cfg.Travis.APIURL, "BORS2_TRAVIS_API_URL")
	setString(&cfg.AppVeyor.APIURL, "BORS2_APPVEYOR_API_URL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "BORS2_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BORS2_LOG_SERVICE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if cfg.Server.SessionKey == "" {
		return errors.New("server.session_key is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.GitHub.ClientID == "" || cfg.GitHub.ClientSecret == "" {
		return errors.New("github.client_id and github.client_secret are required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
