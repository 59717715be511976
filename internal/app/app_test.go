package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopress/internal/config"
	"autopress/internal/inputprocessor"
	"autopress/internal/store"
)

func baseConfig() *config.Config {
	var cfg config.Config
	cfg.CMS.Timeout = time.Second
	cfg.Resolver.Threshold = 0.6
	cfg.Publish.Status = "draft"
	cfg.Publish.MaxConcurrency = 2
	cfg.Redis.Address = "127.0.0.1:6379"
	return &cfg
}

func TestNewApp_WithoutCMS(t *testing.T) {
	a, err := NewApp(baseConfig(), inputprocessor.New())
	require.NoError(t, err)
	defer a.Close()

	assert.ErrorIs(t, a.RequireCMS(), ErrCMSNotConfigured)
	assert.Nil(t, a.Gateway)
	assert.Nil(t, a.PublishService)
	assert.Nil(t, a.PrimaryStore)
	assert.IsType(t, store.NoopRunStore{}, a.RunStore)
	assert.NotNil(t, a.CostService)
	assert.NotNil(t, a.JobClient)
}

func TestNewApp_WithCMS(t *testing.T) {
	cfg := baseConfig()
	cfg.CMS.BaseURL = "http://127.0.0.1:1"
	cfg.CMS.Username = "editor"
	cfg.CMS.Password = "secret"

	a, err := NewApp(cfg, inputprocessor.New())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.RequireCMS())
	assert.NotNil(t, a.Session)
	assert.NotNil(t, a.PublishService)
	assert.Equal(t, "none", a.EmbeddingService.Name())
	assert.Equal(t, 0.6, a.Resolver.Threshold())
}

func TestRedisOpt(t *testing.T) {
	cfg := baseConfig()
	cfg.Redis.Password = "pw"
	cfg.Redis.DB = 3
	a := &App{Config: cfg}

	opt := a.RedisOpt()
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 3, opt.DB)
}
