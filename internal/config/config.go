package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultAPIURL = "http://localhost:8080/api"

// Token store backends.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds client runtime configuration sourced from env vars.
type Config struct {
	APIURL      string        `yaml:"api_url"`
	TokenStore  string        `yaml:"token_store"`
	TokenFile   string        `yaml:"token_file"`
	Profile     string        `yaml:"profile"`
	RedisURL    string        `yaml:"redis_url"`
	DatabaseURL string        `yaml:"database_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
}

// ServerConfig holds the dev stub's configuration.
type ServerConfig struct {
	Port          string
	JWTSecret     string
	JWTIssuer     string
	JWTTTL        time.Duration
	CORSOrigins   []string
	AdminEmail    string
	AdminPassword string
}

// Load reads client configuration. Values from the YAML file named by
// ANONBOARD_CONFIG are used as defaults; environment variables win.
func Load() (Config, error) {
	var file Config
	if path := strings.TrimSpace(os.Getenv("ANONBOARD_CONFIG")); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	cfg := Config{
		APIURL:      NormalizeAPIURL(fallback(os.Getenv("API_URL"), fallback(file.APIURL, defaultAPIURL))),
		TokenStore:  strings.ToLower(fallback(os.Getenv("TOKEN_STORE"), fallback(file.TokenStore, StoreFile))),
		TokenFile:   fallback(os.Getenv("TOKEN_FILE"), fallback(file.TokenFile, defaultTokenFile())),
		Profile:     fallback(os.Getenv("ANONBOARD_PROFILE"), fallback(file.Profile, "default")),
		RedisURL:    fallback(os.Getenv("REDIS_URL"), file.RedisURL),
		DatabaseURL: fallback(os.Getenv("DATABASE_URL"), file.DatabaseURL),
		LogFile:     fallback(os.Getenv("LOG_FILE"), file.LogFile),
		LogLevel:    strings.ToLower(fallback(os.Getenv("LOG_LEVEL"), fallback(file.LogLevel, "info"))),
		HTTPTimeout: file.HTTPTimeout,
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(os.Getenv("HTTP_TIMEOUT_SECONDS"))); err == nil && seconds > 0 {
		cfg.HTTPTimeout = time.Duration(seconds) * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	switch cfg.TokenStore {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return Config{}, errors.New("REDIS_URL is required for the redis token store")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres token store")
		}
	default:
		return Config{}, fmt.Errorf("unknown TOKEN_STORE %q", cfg.TokenStore)
	}

	return cfg, nil
}

// LoadServer reads the dev stub's configuration from the environment.
func LoadServer() (ServerConfig, error) {
	cfg := ServerConfig{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "anonboard-devserver"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		AdminEmail:    strings.TrimSpace(os.Getenv("DEV_ADMIN_EMAIL")),
		AdminPassword: strings.TrimSpace(os.Getenv("DEV_ADMIN_PASSWORD")),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	if cfg.JWTSecret == "" {
		return ServerConfig{}, errors.New("JWT_SECRET is required")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return ServerConfig{}, errors.New("DEV_ADMIN_EMAIL and DEV_ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c ServerConfig) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// NormalizeAPIURL trims a trailing slash and makes sure the URL ends in /api.
func NormalizeAPIURL(raw string) string {
	url := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if url == "" {
		url = defaultAPIURL
	}
	if !strings.HasSuffix(url, "/api") {
		url += "/api"
	}
	return url
}

func loadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "anonboard", "session.json")
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
