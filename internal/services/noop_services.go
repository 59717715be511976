package services

import (
	"context"
	"errors"

	"autopress/internal/models"
	"autopress/internal/store"
)

var errNotConfigured = errors.New("provider is not configured")

// NoopDraftProducer is used when no generation provider is configured.
type NoopDraftProducer struct{}

func (NoopDraftProducer) Produce(ctx context.Context, brief string) (models.Draft, error) {
	return models.Draft{}, &models.DependencyError{Dependency: "generation", Err: errNotConfigured}
}

// NoopEmbeddingProvider is used when no embedding provider is configured.
// Resolution against a non-empty taxonomy fails with a dependency error.
type NoopEmbeddingProvider struct{}

func (NoopEmbeddingProvider) Name() string                 { return "none" }
func (NoopEmbeddingProvider) ModelName() string            { return "" }
func (NoopEmbeddingProvider) Status() store.ProviderStatus { return store.ProviderStatusDisabled }

func (NoopEmbeddingProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errNotConfigured
}

func NewNoopDraftProducer() DraftProducer {
	return NoopDraftProducer{}
}

func NewNoopEmbeddingProvider() EmbeddingProvider {
	return NoopEmbeddingProvider{}
}
