package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at process start and passed explicitly to every component.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	AI            AIConfig
	Log           LogConfig
}

type ServerConfig struct {
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
	AllowedOrigins     []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns a pgx connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type AuthConfig struct {
	JWTSecret string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	OTLPEndpoint   string
	ServiceName    string
}

// AIConfig configures the insights pipeline and the text-generation provider.
type AIConfig struct {
	Provider    string // openrouter | gemini
	APIKey      string
	BaseURL     string
	Model       string
	Mode        string // structured | unstructured
	Language    string
	Timeout     time.Duration
	MaxRetries  int
	BaseDelay   time.Duration
	Temperature float64
	MaxTokens   int
	SiteURL     string
	AppTitle    string

	// Per-owner limit on insight generation.
	OwnerRatePerMinute int
	OwnerBurst         int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getInt("SERVER_PORT", 8000),
			RateLimitPerSecond: getInt("SERVER_RATE_LIMIT_PER_SECOND", 50),
			RateLimitBurst:     getInt("SERVER_RATE_LIMIT_BURST", 100),
			ShutdownTimeout:    getDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:     getList("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:4321", "http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:     getString("DB_HOST", "localhost"),
			Port:     getInt("DB_PORT", 5432),
			User:     getString("DB_USER", "postgres"),
			Password: getString("DB_PASSWORD", "postgres"),
			Name:     getString("DB_NAME", "subbase"),
			SSLMode:  getString("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getBool("METRICS_ENABLED", true),
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:    getString("OTEL_SERVICE_NAME", "subbase-api"),
		},
		AI: AIConfig{
			Provider:           getString("AI_PROVIDER", "openrouter"),
			APIKey:             os.Getenv("OPENROUTER_API_KEY"),
			BaseURL:            getString("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:              getString("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
			Mode:               getString("AI_INSIGHTS_MODE", "structured"),
			Language:           getString("AI_INSIGHTS_LANGUAGE", "Polish"),
			Timeout:            getDuration("AI_TIMEOUT", 30*time.Second),
			MaxRetries:         getInt("AI_MAX_RETRIES", 3),
			BaseDelay:          getDuration("AI_RETRY_BASE_DELAY", time.Second),
			Temperature:        getFloat("AI_TEMPERATURE", 0.7),
			MaxTokens:          getInt("AI_MAX_TOKENS", 1000),
			SiteURL:            getString("SITE_URL", "https://subbase.app"),
			AppTitle:           getString("APP_TITLE", "Subbase"),
			OwnerRatePerMinute: getInt("AI_OWNER_RATE_PER_MINUTE", 6),
			OwnerBurst:         getInt("AI_OWNER_BURST", 3),
		},
		Log: LogConfig{
			Level:  getString("LOG_LEVEL", "info"),
			Format: getString("LOG_FORMAT", "json"),
		},
	}

	if cfg.AI.Provider == "gemini" {
		cfg.AI.APIKey = getString("GEMINI_API_KEY", cfg.AI.APIKey)
		cfg.AI.Model = getString("GEMINI_MODEL", "gemini-2.5-flash")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with. A missing AI key is
// allowed: insight requests then fail as unavailable.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.AI.Provider {
	case "openrouter", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unsupported AI_PROVIDER %q", c.AI.Provider))
	}
	switch c.AI.Mode {
	case "structured", "unstructured":
	default:
		errs = append(errs, fmt.Errorf("unsupported AI_INSIGHTS_MODE %q", c.AI.Mode))
	}
	if c.AI.MaxRetries < 1 {
		errs = append(errs, errors.New("AI_MAX_RETRIES must be at least 1"))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
