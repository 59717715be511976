package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"autopress/internal/models"
)

// DefaultSimilarityThreshold is the minimum cosine similarity at which a
// proposed name reuses an existing taxonomy item.
const DefaultSimilarityThreshold = 0.6

// TaxonomyResolver decides whether a proposed category or tag name is
// semantically equivalent to one that already exists.
type TaxonomyResolver struct {
	embedder  EmbeddingProvider
	threshold float64
}

// NewTaxonomyResolver returns a resolver using threshold as its default.
func NewTaxonomyResolver(embedder EmbeddingProvider, threshold float64) *TaxonomyResolver {
	return &TaxonomyResolver{embedder: embedder, threshold: threshold}
}

// Threshold returns the resolver's default threshold.
func (r *TaxonomyResolver) Threshold() float64 { return r.threshold }

// Resolve embeds proposed together with every existing name in one call and
// returns the best match. found is true when its score reaches threshold.
// No embedding call is made when existing is empty.
func (r *TaxonomyResolver) Resolve(ctx context.Context, proposed string, existing []string, threshold float64) (models.SimilarityMatch, bool, error) {
	proposed = strings.TrimSpace(proposed)
	if proposed == "" {
		return models.SimilarityMatch{}, false, fmt.Errorf("%w: empty taxonomy name", models.ErrValidation)
	}
	if len(existing) == 0 {
		return models.SimilarityMatch{Index: -1}, false, nil
	}

	texts := make([]string, 0, len(existing)+1)
	texts = append(texts, proposed)
	texts = append(texts, existing...)

	vecs, err := r.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return models.SimilarityMatch{}, false, &models.DependencyError{Dependency: "embedding", Err: err}
	}
	if len(vecs) != len(texts) {
		return models.SimilarityMatch{}, false, &models.DependencyError{
			Dependency: "embedding",
			Err:        fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)),
		}
	}
	for i, v := range vecs[1:] {
		if len(v) != len(vecs[0]) {
			return models.SimilarityMatch{}, false, &models.DependencyError{
				Dependency: "embedding",
				Err:        fmt.Errorf("vector %d has dimension %d, want %d", i+1, len(v), len(vecs[0])),
			}
		}
	}

	idx, score := BestMatch(vecs[0], vecs[1:])
	match := models.SimilarityMatch{Index: idx, Name: existing[idx], Score: score}
	found := score >= threshold
	log.Debugf("Best match for %q: %q (score %.4f, threshold %.2f, reuse=%t)", proposed, match.Name, score, threshold, found)
	return match, found, nil
}

// ResolveCategory returns the existing category proposed should reuse, or
// nil when a new one must be created.
func (r *TaxonomyResolver) ResolveCategory(ctx context.Context, proposed string, existing []models.CategoryRecord) (*models.CategoryRecord, error) {
	names := make([]string, len(existing))
	for i, c := range existing {
		names[i] = c.Name
	}
	match, found, err := r.Resolve(ctx, proposed, names, r.threshold)
	if err != nil || !found {
		return nil, err
	}
	rec := existing[match.Index]
	return &rec, nil
}

// ResolveTag returns the existing tag proposed should reuse, or nil when a
// new one must be created.
func (r *TaxonomyResolver) ResolveTag(ctx context.Context, proposed string, existing []models.TagRecord) (*models.TagRecord, error) {
	names := make([]string, len(existing))
	for i, t := range existing {
		names[i] = t.Name
	}
	match, found, err := r.Resolve(ctx, proposed, names, r.threshold)
	if err != nil || !found {
		return nil, err
	}
	rec := existing[match.Index]
	return &rec, nil
}

// BestMatch returns the index and score of the candidate most similar to
// query. The first candidate wins ties. candidates must not be empty.
func BestMatch(query []float32, candidates [][]float32) (int, float64) {
	best, bestScore := 0, math.Inf(-1)
	for i, c := range candidates {
		if s := CosineSimilarity(query, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}

// CosineSimilarity returns dot(a,b)/(|a||b|). A zero-norm vector scores 0.
// Vectors of different length are compared over their common prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
