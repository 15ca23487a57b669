// Package config builds the single Config value the process runs with.
//
// Resolution order, later sources win: built-in defaults, the YAML file
// named by CONFIG_FILE, a .env file, the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/siriusuniversity/report-backend/util"
)

// Storage drivers understood by database.Open
const (
	DriverSQLite = "sqlite"
	DriverArango = "arangodb"
)

// Config holds every setting a component may need. It is built once at
// startup and handed to constructors; nothing reads it globally.
type Config struct {
	AppEnv        string   `yaml:"app_env" env:"APP_ENV"`
	HTTPAddr      string   `yaml:"http_addr" env:"HTTP_ADDR"`
	PublicBaseURL string   `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	SecretKey     string   `yaml:"secret_key" env:"SECRET_KEY"`
	AdminLogins   []string `yaml:"admin_logins" env:"ADMIN_LOGINS" envSeparator:","`
	CORSOrigins   string   `yaml:"cors_origins" env:"CORS_ORIGINS"`
	UploadDir     string   `yaml:"upload_dir" env:"UPLOAD_DIR"`
	UploadLimitMB int      `yaml:"upload_limit_mb" env:"UPLOAD_LIMIT_MB"`

	OAuth    OAuthConfig    `yaml:"oauth"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
}

// OAuthConfig describes the Yandex OAuth application
type OAuthConfig struct {
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string `yaml:"redirect_uri" env:"REDIRECT_URI"`
	AuthURL      string `yaml:"auth_url" env:"YANDEX_AUTH_URL"`
	TokenURL     string `yaml:"token_url" env:"YANDEX_TOKEN_URL"`
}

// TrackerConfig describes the organization-scoped Tracker API access
type TrackerConfig struct {
	APIURL      string        `yaml:"api_url" env:"TRACKER_API_URL"`
	WebURL      string        `yaml:"web_url" env:"TRACKER_WEB_URL"`
	Token       string        `yaml:"token" env:"TRACKER_TOKEN"`
	OrgID       string        `yaml:"org_id" env:"TRACKER_ORG_ID"`
	AuthScheme  string        `yaml:"auth_scheme" env:"TRACKER_AUTH_SCHEME"`
	Queue       string        `yaml:"queue" env:"TRACKER_QUEUE"`
	Timeout     time.Duration `yaml:"timeout" env:"TRACKER_TIMEOUT"`
	NextStatus  string        `yaml:"report_next_status" env:"REPORT_NEXT_STATUS"`
	StartStatus string        `yaml:"task_start_status" env:"TASK_START_STATUS"`
}

// DatabaseConfig selects and configures the storage backend
type DatabaseConfig struct {
	Driver     string `yaml:"driver" env:"DB_DRIVER"`
	Path       string `yaml:"path" env:"DB_PATH"`
	ArangoURL  string `yaml:"arango_url" env:"ARANGO_URL"`
	ArangoUser string `yaml:"arango_user" env:"ARANGO_USER"`
	ArangoPass string `yaml:"arango_pass" env:"ARANGO_PASS"`
	ArangoDB   string `yaml:"arango_db" env:"ARANGO_DB"`
}

// KafkaConfig enables the report event producer when Brokers is non-empty
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic     string   `yaml:"topic" env:"KAFKA_TOPIC"`
	APIKey    string   `yaml:"api_key" env:"KAFKA_API_KEY"`
	APISecret string   `yaml:"api_secret" env:"KAFKA_API_SECRET"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		AppEnv:        "dev",
		HTTPAddr:      ":8000",
		PublicBaseURL: "http://localhost:8000",
		CORSOrigins:   "*",
		UploadDir:     "uploaded_files",
		UploadLimitMB: 50,
		OAuth: OAuthConfig{
			RedirectURI: "http://localhost:8000/auth/code-callback",
			AuthURL:     "https://oauth.yandex.ru/authorize",
			TokenURL:    "https://oauth.yandex.ru/token",
		},
		Tracker: TrackerConfig{
			APIURL:      "https://api.tracker.yandex.net/v3",
			WebURL:      "https://tracker.yandex.ru",
			AuthScheme:  "OAuth",
			Timeout:     10 * time.Second,
			NextStatus:  "Нужна информация",
			StartStatus: "В работу",
		},
		Database: DatabaseConfig{
			Driver:     DriverSQLite,
			Path:       "reports.db",
			ArangoURL:  "http://localhost:8529",
			ArangoUser: "root",
			ArangoDB:   "reports",
		},
		Kafka: KafkaConfig{
			Topic: "report-events",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}
}

// Load resolves the configuration from all sources and validates it
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, err
		}
	}

	// A missing .env is the normal case in containers.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	cfg.AdminLogins = util.NormalizeLogins(cfg.AdminLogins)

	return cfg, cfg.Validate()
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports settings the process cannot start without
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY must be set")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverArango:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	if c.Tracker.Timeout <= 0 {
		return errors.New("TRACKER_TIMEOUT must be positive")
	}
	return nil
}

// IsDev reports whether the process runs in the development environment
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}
