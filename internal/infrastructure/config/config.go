package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Verification VerificationConfig `koanf:"verification"`
	Github       GithubConfig       `koanf:"github"`
	CallProvider CallProviderConfig `koanf:"call_provider"`
	Email        EmailConfig        `koanf:"email"`
	LLM          LLMConfig          `koanf:"llm"`
	Security     SecurityConfig     `koanf:"security"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL       string        `koanf:"url"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	ReportTTL time.Duration `koanf:"report_ttl"`
}

type VerificationConfig struct {
	MaxCallWait          time.Duration `koanf:"max_call_wait"`
	PollInterval         time.Duration `koanf:"poll_interval"`
	WorkerTimeout        time.Duration `koanf:"worker_timeout"`
	ReferenceParallelism int           `koanf:"reference_parallelism"`
	StrictMode           bool          `koanf:"strict_mode"`
	HRDirectoryPath      string        `koanf:"hr_directory_path"`
}

type GithubConfig struct {
	Token   string        `koanf:"token"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type CallProviderConfig struct {
	BaseURL     string `koanf:"base_url"`
	APIKey      string `koanf:"api_key"`
	AgentNumber string `koanf:"agent_number"`
}

type EmailConfig struct {
	Region      string `koanf:"region"`
	FromAddress string `koanf:"from_address"`
}

type LLMConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

type SecurityConfig struct {
	JWTSecret   string          `koanf:"jwt_secret"`
	TokenExpiry time.Duration   `koanf:"token_expiry"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:       "localhost:6379",
			ReportTTL: time.Hour,
		},
		Verification: VerificationConfig{
			MaxCallWait:          120 * time.Second,
			PollInterval:         5 * time.Second,
			WorkerTimeout:        15 * time.Minute,
			ReferenceParallelism: 2,
		},
		Github: GithubConfig{
			BaseURL: "https://api.github.com",
			Timeout: 15 * time.Second,
		},
		Email: EmailConfig{
			Region:      "us-east-1",
			FromAddress: "verify@verihire.io",
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Security: SecurityConfig{
			TokenExpiry: 24 * time.Hour,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/config.yaml"
	}
	// Config file is optional.
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(env.Provider("VH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "VH_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
