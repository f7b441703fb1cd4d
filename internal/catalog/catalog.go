package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"neural_chat/internal/logging"
	"neural_chat/internal/providers"
	"neural_chat/internal/registry"
)

// ModelInfo describes a single model offered by a provider. It is derived
// per call from the upstream listing and never persisted.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ModelLister is the part of the provider client the catalog needs.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Catalog lists and classifies provider models.
type Catalog struct {
	registry *registry.Registry

	// newLister builds a client for a resolved provider; replaced in tests.
	newLister func(cfg registry.EffectiveConfig) ModelLister
}

// New creates a catalog over the given registry. Upstream listing calls use
// the supplied timeout.
func New(reg *registry.Registry, timeout time.Duration) *Catalog {
	return &Catalog{
		registry: reg,
		newLister: func(cfg registry.EffectiveConfig) ModelLister {
			return providers.NewClient(providers.Config{
				BaseURL: cfg.BaseURL,
				APIKey:  cfg.APIKey,
				Timeout: timeout,
			})
		},
	}
}

// ListModels fetches and classifies the model listing of one provider. An
// empty provider name means the active provider. Any failure degrades to an
// empty list; callers treat empty as "configure manually".
func (c *Catalog) ListModels(ctx context.Context, provider string) []ModelInfo {
	if provider == "" {
		provider = c.registry.Active().Provider
	}

	cfg, err := c.registry.Resolve(provider)
	if err != nil {
		logging.Warningf("catalog: cannot list models for %s: %v", provider, err)
		return []ModelInfo{}
	}

	ids, err := c.newLister(cfg).ListModels(ctx)
	if err != nil {
		logging.Warningf("catalog: model listing failed for %s: %v", provider, err)
		return []ModelInfo{}
	}

	models := make([]ModelInfo, 0, len(ids))
	for _, id := range ids {
		category := Categorize(id)
		models = append(models, ModelInfo{
			ID:          id,
			Name:        id,
			Provider:    provider,
			Category:    category,
			Description: category + " - " + id,
		})
	}
	return models
}

// Filter narrows a model list by category (exact, case-insensitive) and by a
// search term matched against id, name and category.
func Filter(models []ModelInfo, category, search string) []ModelInfo {
	filtered := models
	if category != "" {
		out := make([]ModelInfo, 0, len(filtered))
		for _, m := range filtered {
			if strings.EqualFold(m.Category, category) {
				out = append(out, m)
			}
		}
		filtered = out
	}
	if search != "" {
		needle := strings.ToLower(search)
		out := make([]ModelInfo, 0, len(filtered))
		for _, m := range filtered {
			if strings.Contains(strings.ToLower(m.ID), needle) ||
				strings.Contains(strings.ToLower(m.Name), needle) ||
				strings.Contains(strings.ToLower(m.Category), needle) {
				out = append(out, m)
			}
		}
		filtered = out
	}
	return filtered
}

// Paginate slices a model list, clamping offset and limit to valid ranges.
// A limit <= 0 means no limit.
func Paginate(models []ModelInfo, limit, offset int) []ModelInfo {
	if offset < 0 {
		offset = 0
	}
	if offset > len(models) {
		offset = len(models)
	}
	models = models[offset:]
	if limit > 0 && limit < len(models) {
		models = models[:limit]
	}
	return models
}

// CategoryCounts returns a category histogram for a model list.
func CategoryCounts(models []ModelInfo) map[string]int {
	counts := make(map[string]int)
	for _, m := range models {
		counts[m.Category]++
	}
	return counts
}

// relevance scores a model id against a query: exact 100, prefix 50,
// substring 25, otherwise 0. Both sides are compared lowercased.
func relevance(query, modelID string) int {
	id := strings.ToLower(modelID)
	switch {
	case id == query:
		return 100
	case strings.HasPrefix(id, query):
		return 50
	case strings.Contains(id, query):
		return 25
	default:
		return 0
	}
}

// Search queries every candidate provider concurrently and merges matching
// models ordered by relevance. Providers that fail contribute nothing; a
// partial result is still a result. The candidate set is the explicit subset
// when given, otherwise every configured provider.
func (c *Catalog) Search(ctx context.Context, query string, providerSubset []string) []ModelInfo {
	needle := strings.ToLower(query)

	var candidates []string
	if len(providerSubset) > 0 {
		for _, name := range providerSubset {
			if _, ok := registry.Lookup(name); ok {
				candidates = append(candidates, name)
			}
		}
	} else {
		candidates = c.registry.ConfiguredProviders()
	}

	// One listing call per candidate; results are kept slotted by candidate
	// index so merge order stays deterministic regardless of completion order.
	perProvider := make([][]ModelInfo, len(candidates))
	var wg sync.WaitGroup
	for i, name := range candidates {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			perProvider[i] = c.ListModels(ctx, name)
		}(i, name)
	}
	wg.Wait()

	var results []ModelInfo
	for _, models := range perProvider {
		for _, m := range models {
			if strings.Contains(strings.ToLower(m.ID), needle) ||
				strings.Contains(strings.ToLower(m.Name), needle) ||
				strings.Contains(strings.ToLower(m.Category), needle) {
				results = append(results, m)
			}
		}
	}

	// Stable: ties keep arrival order.
	sort.SliceStable(results, func(i, j int) bool {
		return relevance(needle, results[i].ID) > relevance(needle, results[j].ID)
	})
	return results
}
