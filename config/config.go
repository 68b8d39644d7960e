package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	JWT       JWTConfig       `yaml:"jwt"`
	Operator  OperatorConfig  `yaml:"operator"`
	Discover  DiscoverConfig  `yaml:"discover"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	History   HistoryConfig   `yaml:"history"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// StorageConfig selects the key-value backend: memory, postgres or redis.
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Expiration string `yaml:"expiration"`
}

func (c JWTConfig) ExpirationDuration() time.Duration {
	d, err := time.ParseDuration(c.Expiration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// OperatorConfig holds the single console operator. An empty password hash
// disables authentication.
type OperatorConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

func (c OperatorConfig) AuthEnabled() bool {
	return c.PasswordHash != ""
}

type DiscoverConfig struct {
	TestBaseURL                string        `yaml:"test_base_url"`
	ProdBaseURL                string        `yaml:"prod_base_url"`
	AcceptLanguage             string        `yaml:"accept_language"`
	EmitScheduleStrategy       bool          `yaml:"emit_schedule_strategy"`
	TreeFacetsExcludeRedundant bool          `yaml:"tree_facets_exclude_redundant"`
	Timeout                    time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	DefaultModel string        `yaml:"default_model"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Mode: "debug"},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "viewdesk",
			Name:    "viewdesk",
			SSLMode: "disable",
		},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0", Prefix: "viewdesk:"},
		Storage:  StorageConfig{Driver: "memory"},
		JWT:      JWTConfig{Expiration: "24h"},
		Operator: OperatorConfig{Email: "operator@localhost"},
		Discover: DiscoverConfig{
			TestBaseURL:          "https://api.discover.swiss/test/info/v2",
			ProdBaseURL:          "https://api.discover.swiss/info/v2",
			AcceptLanguage:       "de",
			EmitScheduleStrategy: true,
			Timeout:              30 * time.Second,
		},
		OpenAI: OpenAIConfig{
			BaseURL:      "https://api.openai.com/v1",
			DefaultModel: "gpt-4o-mini",
			Temperature:  0.4,
			Timeout:      60 * time.Second,
		},
		RateLimit: RateLimitConfig{Enabled: true, RPS: 1, Burst: 5},
		History:   HistoryConfig{Limit: 20},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load() *Config {
	_ = godotenv.Load()

	cfg := defaults()

	path := getEnv("VIEWDESK_CONFIG_FILE", "config/viewdesk.yaml")
	if err := loadFile(path, cfg); err != nil {
		log.Printf("[config] ignoring %s: %v", path, err)
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Mode = getEnv("GIN_MODE", cfg.Server.Mode)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Prefix = getEnv("REDIS_PREFIX", cfg.Redis.Prefix)
	cfg.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.Storage.Driver))

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.Expiration = getEnv("JWT_EXPIRATION", cfg.JWT.Expiration)

	cfg.Operator.Email = getEnv("OPERATOR_EMAIL", cfg.Operator.Email)
	cfg.Operator.PasswordHash = getEnv("OPERATOR_PASSWORD_HASH", cfg.Operator.PasswordHash)

	cfg.Discover.TestBaseURL = getEnv("DISCOVER_TEST_BASE_URL", cfg.Discover.TestBaseURL)
	cfg.Discover.ProdBaseURL = getEnv("DISCOVER_PROD_BASE_URL", cfg.Discover.ProdBaseURL)
	cfg.Discover.AcceptLanguage = getEnv("DISCOVER_ACCEPT_LANGUAGE", cfg.Discover.AcceptLanguage)
	cfg.Discover.EmitScheduleStrategy = getEnvBool("DISCOVER_EMIT_SCHEDULE_STRATEGY", cfg.Discover.EmitScheduleStrategy)
	cfg.Discover.TreeFacetsExcludeRedundant = getEnvBool("DISCOVER_TREE_FACETS_EXCLUDE_REDUNDANT", cfg.Discover.TreeFacetsExcludeRedundant)
	cfg.Discover.Timeout = getEnvDuration("HTTP_CLIENT_TIMEOUT", cfg.Discover.Timeout)

	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.DefaultModel = getEnv("OPENAI_DEFAULT_MODEL", cfg.OpenAI.DefaultModel)
	cfg.OpenAI.Timeout = getEnvDuration("OPENAI_TIMEOUT", cfg.OpenAI.Timeout)

	cfg.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)

	cfg.History.Limit = getEnvInt("HISTORY_LIMIT", cfg.History.Limit)

	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
