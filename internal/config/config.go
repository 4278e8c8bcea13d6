package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Spendsight"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"spendsight"`
	}

	Server struct {
		// Upper bound for a whole insight request, agent loop included.
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"90s"`
	}

	LLM struct {
		Provider    string        `envconfig:"LLM_PROVIDER" default:"openai"`
		Model       string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
		APIKey      string        `envconfig:"LLM_API_KEY"`
		BaseURL     string        `envconfig:"LLM_BASE_URL"`
		Temperature float64       `envconfig:"LLM_TEMPERATURE" default:"0.2"`
		MaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"1024"`
		Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	}

	Agent struct {
		MaxIterations int `envconfig:"AGENT_MAX_ITERATIONS" default:"8"`
		MemoryWindow  int `envconfig:"AGENT_MEMORY_WINDOW" default:"20"`
	}

	Guardrails struct {
		MinYear       int  `envconfig:"GUARDRAIL_MIN_YEAR" default:"2020"`
		MaxRangeDays  int  `envconfig:"GUARDRAIL_MAX_RANGE_DAYS" default:"90"`
		MaxResults    int  `envconfig:"GUARDRAIL_MAX_RESULTS" default:"500"`
		MaxWords      int  `envconfig:"GUARDRAIL_MAX_WORDS" default:"300"`
		HardWordLimit bool `envconfig:"GUARDRAIL_HARD_WORD_LIMIT" default:"false"`
	}

	Redis struct {
		URL    string        `envconfig:"REDIS_URL"`
		Prefix string        `envconfig:"REDIS_MEMORY_PREFIX" default:"spendsight:memory"`
		TTL    time.Duration `envconfig:"REDIS_MEMORY_TTL" default:"24h"`
	}

	Audit struct {
		AMQPURL  string `envconfig:"AUDIT_AMQP_URL"`
		Exchange string `envconfig:"AUDIT_EXCHANGE" default:"spendsight.audit"`
	}

	Auth struct {
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Import struct {
		// Enabled mounts POST /api/v1/import for loading ledger files.
		Enabled bool `envconfig:"IMPORT_API_ENABLED" default:"false"`
	}

	RateLimit struct {
		GlobalRPM    int `envconfig:"RATE_LIMIT_GLOBAL_RPM" default:"120"`
		PerCallerRPM int `envconfig:"RATE_LIMIT_PER_CALLER_RPM" default:"20"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Agent.MaxIterations < 1 {
		return nil, fmt.Errorf("AGENT_MAX_ITERATIONS must be at least 1, got %d", cfg.Agent.MaxIterations)
	}

	if cfg.Agent.MemoryWindow < 1 {
		return nil, fmt.Errorf("AGENT_MEMORY_WINDOW must be at least 1, got %d", cfg.Agent.MemoryWindow)
	}

	return &cfg, nil
}
