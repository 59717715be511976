package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func validConfig() *Config {
	var c Config
	c.CMS.BaseURL = "https://blog.example.com"
	c.CMS.Username = "editor"
	c.CMS.Password = "secret"
	c.CMS.Timeout = 10 * time.Second
	c.Embedding.Model = "text-embedding-3-small"
	c.Embedding.OpenaiApiKey = "sk-test"
	c.Generation.Provider = "openai"
	c.Generation.Model = "gpt-4o-mini"
	c.Resolver.Threshold = 0.6
	c.Publish.Status = "draft"
	c.Publish.MaxConcurrency = 4
	c.Redis.Address = "127.0.0.1:6379"
	c.Worker.Concurrency = 2
	c.Worker.Queues = map[string]int{"publish": 6}
	c.Schedule.Times = []string{"0 9 * * *"}
	c.Schedule.PlanFile = "plan.yaml"
	return &c
}

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WP_BASE_URL", "https://blog.example.com")
	t.Setenv("WP_USERNAME", "editor")
	t.Setenv("WP_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://blog.example.com", cfg.CMS.BaseURL)
	assert.Equal(t, "editor", cfg.CMS.Username)
	assert.Equal(t, 10*time.Second, cfg.CMS.Timeout)
	assert.Equal(t, 0.6, cfg.Resolver.Threshold)
	assert.Equal(t, "draft", cfg.Publish.Status)
	assert.Equal(t, 4, cfg.Publish.MaxConcurrency)
	assert.Equal(t, []string{"0 9 * * *"}, cfg.Schedule.Times)
	assert.False(t, cfg.CMS.InsecureSkipVerify)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("WP_BASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	yaml := `
cms:
  base_url: https://cms.test
  timeout: 3s
resolver:
  threshold: 0.75
redis:
  address: redis:6379
worker:
  concurrency: 5
  queues:
    publish: 1
schedule:
  timezone: Asia/Tehran
pricing:
  openai:
    gpt-4o-mini:
      input_per_token: 0.00000015
      output_per_token: 0.0000006
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://cms.test", cfg.CMS.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.CMS.Timeout)
	assert.Equal(t, 0.75, cfg.Resolver.Threshold)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, map[string]int{"publish": 1}, cfg.Worker.Queues)
	assert.InDelta(t, 0.0000006, cfg.Pricing["openai"]["gpt-4o-mini"].OutputPerToken, 1e-12)
}

func TestLocation(t *testing.T) {
	var c Config
	assert.Equal(t, time.Local, c.Location())

	c.Schedule.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, c.Location())

	c.Schedule.Timezone = "UTC"
	assert.Equal(t, "UTC", c.Location().String())
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
	require.NoError(t, validConfig().ValidateWorker())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing base url", func(c *Config) { c.CMS.BaseURL = "" }, "cms:"},
		{"bad base url", func(c *Config) { c.CMS.BaseURL = "not a url" }, "cms:"},
		{"no embedding key", func(c *Config) { c.Embedding.OpenaiApiKey = "" }, "embedding:"},
		{"unknown provider", func(c *Config) { c.Generation.Provider = "llama" }, "generation:"},
		{"threshold out of range", func(c *Config) { c.Resolver.Threshold = 1.5 }, "resolver:"},
		{"bad status", func(c *Config) { c.Publish.Status = "live" }, "publish:"},
		{"zero concurrency", func(c *Config) { c.Publish.MaxConcurrency = 0 }, "publish:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateWorker(t *testing.T) {
	c := validConfig()
	c.Worker.Queues = map[string]int{"publish": 0}
	assert.ErrorContains(t, c.ValidateWorker(), "priority")

	c = validConfig()
	c.Schedule.Times = nil
	assert.ErrorContains(t, c.ValidateWorker(), "schedule.times")

	c = validConfig()
	c.Redis.Address = ""
	assert.ErrorContains(t, c.ValidateWorker(), "redis.address")
}

func TestLoadPromptContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.txt")
	require.NoError(t, os.WriteFile(path, []byte("write well"), 0o644))

	got, err := LoadPromptContent(path, "draft.txt")
	require.NoError(t, err)
	assert.Equal(t, "write well", got)

	t.Setenv("HOME", dir)
	_, err = LoadPromptContent("", "missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
