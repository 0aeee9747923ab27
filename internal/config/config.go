package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env           string     `yaml:"env" env:"ENV" env-default:"local"`
	StorageDriver string     `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	HTTPServer    HTTPServer `yaml:"http_server"`
	CredentialsDB DB         `yaml:"credentials_db" env-prefix:"CREDENTIALS_DB_"`
	ResourcesDB   DB         `yaml:"resources_db" env-prefix:"RESOURCES_DB_"`
	Auth          Auth       `yaml:"auth"`
	Metrics       Metrics    `yaml:"metrics"`
	Seed          Seed       `yaml:"seed"`
	CORS          CORS       `yaml:"cors"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"0.0.0.0:5000"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// DB holds connection parameters for one Postgres database.
type DB struct {
	Host     string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"USER" env-default:"postgres"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE" env-default:"disable"`
}

type Auth struct {
	Secret string `yaml:"secret" env:"AUTH_SECRET" env-required:"true"`
}

type Metrics struct {
	Path         string   `yaml:"path" env:"METRICS_PATH" env-default:"/metrics"`
	KafkaBrokers []string `yaml:"kafka_brokers" env:"METRICS_KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"METRICS_KAFKA_TOPIC" env-default:"resource-actions"`
}

// Seed describes a user inserted at startup when absent. Empty email disables seeding.
type Seed struct {
	Email    string `yaml:"email" env:"SEED_EMAIL"`
	Password string `yaml:"password" env:"SEED_PASSWORD"`
}

type CORS struct {
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-separator:"," env-default:"*"`
}

// DSN renders the connection parameters as a postgres URL.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}

	return u.String()
}

// MustLoad loads the configuration and panics on failure. An empty path
// means the environment is the only source.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return validate(&cfg, op)
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("%s: config file not found: %w", op, err)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return validate(&cfg, op)
}

func validate(cfg *Config, op string) (*Config, error) {
	switch cfg.StorageDriver {
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.StorageDriver)
	}

	return cfg, nil
}
