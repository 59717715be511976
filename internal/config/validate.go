package config

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"autopress/internal/models"
)

// Validate checks every section that the publish pipeline depends on.
// Database and schedule settings are optional and only checked when set.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.CMS,
		validation.Field(&c.CMS.BaseURL, validation.Required, is.URL),
		validation.Field(&c.CMS.Username, validation.Required),
		validation.Field(&c.CMS.Password, validation.Required),
		validation.Field(&c.CMS.Timeout, validation.Required, validation.Min(time.Millisecond)),
	); err != nil {
		return fmt.Errorf("cms: %w", err)
	}

	if c.Embedding.OpenaiApiKey == "" && c.Embedding.GoogleApiKey == "" {
		return errors.New("embedding: either embedding.openai_api_key or embedding.google_api_key is required")
	}
	if err := validation.ValidateStruct(&c.Embedding,
		validation.Field(&c.Embedding.Model, validation.When(c.Embedding.OpenaiApiKey != "", validation.Required)),
		validation.Field(&c.Embedding.GeminiModelName, validation.When(c.Embedding.GoogleApiKey != "", validation.Required)),
		validation.Field(&c.Embedding.OpenaiBaseURL, is.URL),
		validation.Field(&c.Embedding.MaxRetries, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	if err := validation.ValidateStruct(&c.Generation,
		validation.Field(&c.Generation.Provider, validation.Required, validation.In("openai")),
		validation.Field(&c.Generation.Model, validation.Required),
	); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if c.Generation.Provider == "openai" && c.Embedding.OpenaiApiKey == "" {
		return errors.New("generation: embedding.openai_api_key is required for the openai generation provider")
	}

	if err := validation.ValidateStruct(&c.Resolver,
		validation.Field(&c.Resolver.Threshold, validation.Min(-1.0), validation.Max(1.0)),
	); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}

	if err := validation.ValidateStruct(&c.Publish,
		validation.Field(&c.Publish.Status, validation.Required, validation.In(
			models.PostStatusDraft, models.PostStatusPublish, models.PostStatusPending, models.PostStatusPrivate)),
		validation.Field(&c.Publish.MaxConcurrency, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// ValidateWorker checks the settings used by the worker and scheduler
// commands on top of Validate.
func (c *Config) ValidateWorker() error {
	if c.Redis.Address == "" {
		return errors.New("redis.address is required")
	}
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	if len(c.Worker.Queues) == 0 {
		return errors.New("worker.queues must define at least one queue")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}
	if len(c.Schedule.Times) == 0 {
		return errors.New("schedule.times must contain at least one cron spec")
	}
	if c.Schedule.PlanFile == "" {
		return errors.New("schedule.plan_file is required")
	}
	return nil
}
