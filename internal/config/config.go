// config - источник загрузки конфигурации клиента route-planner.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Бэкенды хранилища учётных данных.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
}

// APIConfig - REST-бэкенд планировщика маршрутов.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"API_URL"        env-default:"http://localhost:8000/api"`
	UserAgent string `yaml:"user_agent" env:"API_USER_AGENT" env-default:"route-planner"`
	// CoalesceRefresh объединяет одновременные обмены refresh-токена в один вызов.
	CoalesceRefresh bool `yaml:"coalesce_refresh" env:"API_COALESCE_REFRESH" env-default:"false"`
}

// CredentialsConfig - где живут слоты access/refresh.
// Path используется бэкендами file и sqlite; пустой путь означает
// каталог пользовательской конфигурации (см. cmd).
type CredentialsConfig struct {
	Backend     string `yaml:"backend"      env:"CREDENTIALS_BACKEND"      env-default:"file"`
	Path        string `yaml:"path"         env:"CREDENTIALS_PATH"`
	RedisURL    string `yaml:"redis_url"    env:"CREDENTIALS_REDIS_URL"    env-default:"redis://localhost:6379/0"`
	RedisPrefix string `yaml:"redis_prefix" env:"CREDENTIALS_REDIS_PREFIX" env-default:"route-planner:cred:"`
}

// TimeoutConfig - таймаут одной попытки HTTP-вызова.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
}

// MetricsConfig - отдельный HTTP для Prometheus; пустой порт отключает его.
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"METRICS_PORT"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// Enabled сообщает, нужно ли поднимать /metrics.
func (m MetricsConfig) Enabled() bool { return m.Port != "" }

// MustLoad - паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return validate(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validate(&cfg)
}

func validate(cfg *Config) (*Config, error) {
	switch cfg.Credentials.Backend {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Credentials.Backend)
	}

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api base_url is empty")
	}

	return cfg, nil
}
