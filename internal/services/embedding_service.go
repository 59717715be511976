package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"autopress/internal/store"
)

// NewFallbackEmbeddingService creates a service that fails over between
// providers. A nil strategy never retries the same provider.
func NewFallbackEmbeddingService(providers []EmbeddingProvider, strategy RetryStrategy) (*FallbackEmbeddingService, error) {
	active := make([]EmbeddingProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil && p.Status() != store.ProviderStatusDisabled {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("at least one enabled embedding provider is required")
	}
	if strategy == nil {
		strategy = &SimpleRetryStrategy{MaxAttempts: 0}
	}
	return &FallbackEmbeddingService{
		Providers:      active,
		ActiveProvider: 0,
		RetryStrategy:  strategy,
	}, nil
}

// GenerateEmbeddings tries the active provider, retrying per strategy, then
// fails over to the next one. Every vector of a successful call comes from a
// single provider.
func (s *FallbackEmbeddingService) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.RLock()
	initialProviderIndex := s.ActiveProvider
	numProviders := len(s.Providers)
	s.mu.RUnlock()
	if numProviders == 0 {
		return nil, fmt.Errorf("no embedding providers configured")
	}

	var lastErr error
	attempt := 0

	for {
		s.mu.RLock()
		provider := s.Providers[s.ActiveProvider]
		s.mu.RUnlock()

		log.Debugf("Attempt %d: embedding %d texts with %s (%s)", attempt+1, len(texts), provider.Name(), provider.ModelName())
		vecs, err := provider.GenerateEmbeddings(ctx, texts)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled during embedding generation: %w", ctx.Err())
		}

		if err == nil && len(vecs) == len(texts) {
			return vecs, nil
		}
		if err != nil {
			lastErr = fmt.Errorf("provider %s failed: %w", provider.Name(), err)
		} else {
			lastErr = fmt.Errorf("provider %s returned mismatched vector count (%d != %d)", provider.Name(), len(vecs), len(texts))
		}
		log.Warn(lastErr)

		backoffMs := s.RetryStrategy.NextBackoff(attempt)
		if backoffMs < 0 {
			s.mu.Lock()
			next := (s.ActiveProvider + 1) % numProviders
			if next == initialProviderIndex {
				s.mu.Unlock()
				return nil, fmt.Errorf("all embedding providers failed: %w", lastErr)
			}
			s.ActiveProvider = next
			log.Warnf("Switching embedding provider to %s", s.Providers[next].Name())
			s.mu.Unlock()

			attempt = 0
			continue
		}

		log.Debugf("Waiting %dms before retrying provider %s", backoffMs, provider.Name())
		select {
		case <-time.After(time.Duration(backoffMs) * time.Millisecond):
			attempt++
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while waiting to retry: %w", ctx.Err())
		}
	}
}
