package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"autopress/internal/config"
	"autopress/internal/costtracker"
	"autopress/internal/models"
	"autopress/internal/store"
)

// OpenAIProvider implements EmbeddingProvider using the OpenAI API or any
// OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	costs   costtracker.CostTracker
	pricing map[string]config.PricingInfo
}

// NewOpenAIClient builds a client, honouring a custom base URL.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// NewOpenAIProvider creates a new OpenAI embedding provider. A nil client
// yields a disabled provider.
func NewOpenAIProvider(client *openai.Client, modelID string, costs costtracker.CostTracker, pricing map[string]config.PricingInfo) *OpenAIProvider {
	if client == nil {
		log.Warn("OpenAI API key not provided. OpenAI embedding provider will be disabled.")
	} else {
		log.Infof("OpenAI embedding provider initialized with model %s", modelID)
	}
	if costs == nil {
		costs = costtracker.New(nil)
	}
	return &OpenAIProvider{
		client:  client,
		model:   openai.EmbeddingModel(modelID),
		costs:   costs,
		pricing: pricing,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// ModelName returns the specific model identifier.
func (p *OpenAIProvider) ModelName() string { return string(p.model) }

// GenerateEmbeddings embeds all texts in a single request.
func (p *OpenAIProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if p.client == nil {
		return nil, fmt.Errorf("OpenAI provider is not initialized (missing API key)")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("empty text at index %d", i)
		}
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error generating embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI API returned %d embeddings, expected %d", len(resp.Data), len(texts))
	}

	if resp.Usage.TotalTokens > 0 {
		if cost, ok := costtracker.Price(p.pricing, p.ModelName(), resp.Usage.TotalTokens, 0); !ok {
			log.Warnf("Pricing info not found for model '%s'. Cannot record cost.", p.model)
		} else if err := p.costs.RecordCost(ctx, costtracker.CostEvent{
			Operation:   models.ServiceTypeEmbedding,
			Provider:    p.Name(),
			Model:       p.ModelName(),
			InputTokens: resp.Usage.TotalTokens,
			AmountUSD:   cost,
		}); err != nil {
			log.Errorf("Failed to record AI usage log for embedding: %v", err)
		}
	}

	// The API reports an index per item; do not rely on response order.
	results := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || results[d.Index] != nil {
			return nil, fmt.Errorf("OpenAI API returned unexpected embedding index %d", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("OpenAI API returned an empty embedding at index %d", d.Index)
		}
		results[d.Index] = d.Embedding
	}
	return results, nil
}

// Status returns the operational status of the provider.
func (p *OpenAIProvider) Status() store.ProviderStatus {
	if p.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

var _ EmbeddingProvider = (*OpenAIProvider)(nil)
