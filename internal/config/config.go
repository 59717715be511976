package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PricingInfo holds cost details per token for a specific model.
type PricingInfo struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

type Config struct {
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// CMS holds the content-management backend the posts are published to.
	CMS struct {
		BaseURL            string        `mapstructure:"base_url"`
		Username           string        `mapstructure:"username"`
		Password           string        `mapstructure:"password"`
		Timeout            time.Duration `mapstructure:"timeout"`
		InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	} `mapstructure:"cms"`

	Embedding struct {
		Model           string `mapstructure:"model"`
		OpenaiApiKey    string `mapstructure:"openai_api_key"`
		OpenaiBaseURL   string `mapstructure:"openai_base_url"`
		GoogleApiKey    string `mapstructure:"google_api_key"`
		GeminiModelName string `mapstructure:"gemini_model_name"`
		MaxRetries      int    `mapstructure:"max_retries"` // 0 disables retries, providers still fail over
	} `mapstructure:"embedding"`

	Generation struct {
		Provider    string  `mapstructure:"provider"` // only "openai" for now
		Model       string  `mapstructure:"model"`
		Prompt      string  `mapstructure:"prompt"` // path to system prompt file, empty for built-in
		Temperature float32 `mapstructure:"temperature"`
	} `mapstructure:"generation"`

	Resolver struct {
		Threshold float64 `mapstructure:"threshold"`
	} `mapstructure:"resolver"`

	Publish struct {
		Status         string `mapstructure:"status"`
		MaxConcurrency int    `mapstructure:"max_concurrency"`
	} `mapstructure:"publish"`

	Database struct {
		DSN string `mapstructure:"dsn"` // optional; empty disables the run ledger
	} `mapstructure:"database"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`

	Schedule struct {
		Times    []string `mapstructure:"times"` // cron specs
		Timezone string   `mapstructure:"timezone"`
		PlanFile string   `mapstructure:"plan_file"`
	} `mapstructure:"schedule"`

	// Pricing: map[provider][model] = struct{input_per_token, output_per_token}
	Pricing map[string]map[string]PricingInfo `mapstructure:"pricing"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("cms.timeout", 10*time.Second)
	v.SetDefault("cms.insecure_skip_verify", false)
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.gemini_model_name", "models/text-embedding-004")
	v.SetDefault("embedding.max_retries", 0)
	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("resolver.threshold", 0.6)
	v.SetDefault("publish.status", "draft")
	v.SetDefault("publish.max_concurrency", 4)
	v.SetDefault("redis.address", "127.0.0.1:6379")
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.queues", map[string]int{"publish": 6, "default": 3})
	v.SetDefault("schedule.times", []string{"0 9 * * *"})
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("schedule.plan_file", "content-plan.yaml")
}

// LoadConfig reads config.yaml from the working directory, a .env file if
// present, and the environment. Neither file is required.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	setDefaults(v)

	v.AutomaticEnv()
	// The CMS and provider credentials keep their historical variable names.
	_ = v.BindEnv("cms.base_url", "WP_BASE_URL")
	_ = v.BindEnv("cms.username", "WP_USERNAME")
	_ = v.BindEnv("cms.password", "WP_PASSWORD")
	_ = v.BindEnv("embedding.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("embedding.openai_base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("embedding.google_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("generation.model", "CHAT_MODEL")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("redis.address", "REDIS_ADDR")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &cfg, nil
}

// Location resolves the schedule time zone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Schedule.Timezone == "" || c.Schedule.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
