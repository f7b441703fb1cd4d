package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neural_chat/internal/registry"
	"neural_chat/internal/vault"
)

func newTestRegistry(t *testing.T, fallbackKeys map[string]string) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	v, err := vault.Open(filepath.Join(dir, ".encryption_key"), filepath.Join(dir, "secure_config.enc"))
	require.NoError(t, err)

	return registry.New(v, registry.Options{
		FallbackAPIKeys: fallbackKeys,
		DefaultProvider: "openai",
		DefaultModel:    "gpt-3.5-turbo",
	})
}

// fakeLister serves a canned model listing keyed by API key, so each provider
// in a test can answer differently.
type fakeLister struct {
	ids []string
	err error
}

func (f *fakeLister) ListModels(_ context.Context) ([]string, error) {
	return f.ids, f.err
}

func newTestCatalog(t *testing.T, fallbackKeys map[string]string, listings map[string]*fakeLister) *Catalog {
	t.Helper()
	c := New(newTestRegistry(t, fallbackKeys), time.Second)
	c.newLister = func(cfg registry.EffectiveConfig) ModelLister {
		if l, ok := listings[cfg.APIKey]; ok {
			return l
		}
		return &fakeLister{err: errors.New("no listing for this provider")}
	}
	return c
}

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"gpt-4o":                   "OpenAI",
		"chatgpt-4o-latest":        "OpenAI",
		"claude-3-5-sonnet":        "Claude",
		"qwen-max":                 "Qwen",
		"deepseek-chat":            "DeepSeek",
		"gemini-1.5-pro":           "Gemini",
		"yi-large":                 "01.AI",
		"moonshot-v1-8k":           "Moonshot",
		"doubao-pro-4k":            "Doubao",
		"ernie-4.0":                "ERNIE",
		"sparkdesk-v3":             "SparkDesk",
		"flux-schnell":             "Image",
		"dall-e-3":                 "Image",
		"stable-diffusion-xl":      "Image",
		"tts-1-hd":                 "Audio",
		"whisper-large-v3":         "Audio",
		"text-embedding-3-large":   "Embedding",
		"bge-reranker-v2":          "Embedding",
		"random-unknown-xyz":       "Other",
		"GPT-4-TURBO":              "OpenAI",
		"notyi-large":              "Other", // "yi-" must match as a prefix only
		"openai/gpt-oss-120b":      "OpenAI",
	}

	for id, want := range cases {
		assert.Equal(t, want, Categorize(id), "model %q", id)
	}
}

func TestCategorizeFirstRuleWins(t *testing.T) {
	// Carries both "gpt" and "embedding"; the earlier rule decides.
	assert.Equal(t, "OpenAI", Categorize("gpt-embedding-hybrid"))
}

func TestListModels(t *testing.T) {
	c := newTestCatalog(t,
		map[string]string{"openai": "key-openai"},
		map[string]*fakeLister{
			"key-openai": {ids: []string{"gpt-4o", "whisper-1"}},
		},
	)

	models := c.ListModels(context.Background(), "openai")
	require.Len(t, models, 2)
	assert.Equal(t, "gpt-4o", models[0].ID)
	assert.Equal(t, "openai", models[0].Provider)
	assert.Equal(t, "OpenAI", models[0].Category)
	assert.Equal(t, "OpenAI - gpt-4o", models[0].Description)
	assert.Equal(t, "Audio", models[1].Category)
}

func TestListModelsEmptyProviderUsesActive(t *testing.T) {
	c := newTestCatalog(t,
		map[string]string{"openai": "key-openai"},
		map[string]*fakeLister{
			"key-openai": {ids: []string{"gpt-4o"}},
		},
	)

	models := c.ListModels(context.Background(), "")
	require.Len(t, models, 1)
	assert.Equal(t, "openai", models[0].Provider)
}

func TestListModelsDegradesToEmpty(t *testing.T) {
	t.Run("unconfigured provider", func(t *testing.T) {
		c := newTestCatalog(t, nil, nil)
		assert.Empty(t, c.ListModels(context.Background(), "openai"))
	})

	t.Run("upstream failure", func(t *testing.T) {
		c := newTestCatalog(t,
			map[string]string{"openai": "key-openai"},
			map[string]*fakeLister{
				"key-openai": {err: errors.New("upstream down")},
			},
		)
		assert.Empty(t, c.ListModels(context.Background(), "openai"))
	})
}

func TestFilter(t *testing.T) {
	models := []ModelInfo{
		{ID: "gpt-4o", Name: "gpt-4o", Category: "OpenAI"},
		{ID: "claude-3-5-sonnet", Name: "claude-3-5-sonnet", Category: "Claude"},
		{ID: "gpt-3.5-turbo", Name: "gpt-3.5-turbo", Category: "OpenAI"},
	}

	assert.Len(t, Filter(models, "openai", ""), 2)
	assert.Len(t, Filter(models, "Claude", ""), 1)
	assert.Len(t, Filter(models, "", "turbo"), 1)
	assert.Len(t, Filter(models, "OpenAI", "4o"), 1)
	assert.Empty(t, Filter(models, "Claude", "turbo"))
	assert.Len(t, Filter(models, "", ""), 3)
}

func TestPaginate(t *testing.T) {
	models := make([]ModelInfo, 10)
	for i := range models {
		models[i] = ModelInfo{ID: string(rune('a' + i))}
	}

	assert.Len(t, Paginate(models, 3, 0), 3)
	assert.Len(t, Paginate(models, 3, 8), 2)
	assert.Len(t, Paginate(models, 3, 100), 0)
	assert.Len(t, Paginate(models, 0, 0), 10)
	assert.Len(t, Paginate(models, -5, 0), 10)
	assert.Len(t, Paginate(models, 3, -2), 3)

	page := Paginate(models, 2, 4)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].ID)
}

func TestCategoryCounts(t *testing.T) {
	counts := CategoryCounts([]ModelInfo{
		{Category: "OpenAI"},
		{Category: "OpenAI"},
		{Category: "Other"},
	})
	assert.Equal(t, map[string]int{"OpenAI": 2, "Other": 1}, counts)
}

func TestSearchRelevanceOrdering(t *testing.T) {
	c := newTestCatalog(t,
		map[string]string{"openai": "key-openai"},
		map[string]*fakeLister{
			"key-openai": {ids: []string{"my-gpt-model", "gpt-4", "gpt", "other-model"}},
		},
	)

	results := c.Search(context.Background(), "gpt", nil)
	require.Len(t, results, 3, "non-matching model must be excluded")
	assert.Equal(t, "gpt", results[0].ID, "exact match first")
	assert.Equal(t, "gpt-4", results[1].ID, "prefix match second")
	assert.Equal(t, "my-gpt-model", results[2].ID, "substring match last")
}

func TestSearchPartialFailure(t *testing.T) {
	c := newTestCatalog(t,
		map[string]string{
			"openai":      "key-openai",
			"siliconflow": "key-sf",
		},
		map[string]*fakeLister{
			"key-openai": {ids: []string{"gpt-4o"}},
			"key-sf":     {err: errors.New("timeout")},
		},
	)

	results := c.Search(context.Background(), "gpt", nil)
	require.Len(t, results, 1, "failing provider contributes nothing, the rest still answer")
	assert.Equal(t, "gpt-4o", results[0].ID)
}

func TestSearchProviderSubset(t *testing.T) {
	c := newTestCatalog(t,
		map[string]string{
			"openai":      "key-openai",
			"siliconflow": "key-sf",
		},
		map[string]*fakeLister{
			"key-openai": {ids: []string{"gpt-4o"}},
			"key-sf":     {ids: []string{"gpt-oss-120b"}},
		},
	)

	results := c.Search(context.Background(), "gpt", []string{"siliconflow"})
	require.Len(t, results, 1)
	assert.Equal(t, "siliconflow", results[0].Provider)

	// Unknown names in the subset are ignored rather than failing the search.
	results = c.Search(context.Background(), "gpt", []string{"bogus", "openai"})
	require.Len(t, results, 1)
	assert.Equal(t, "openai", results[0].Provider)
}

func TestSearchMatchesCategory(t *testing.T) {
	c := newTestCatalog(t,
		map[string]string{"openai": "key-openai"},
		map[string]*fakeLister{
			"key-openai": {ids: []string{"text-embedding-3-large", "gpt-4o"}},
		},
	)

	// "embedding" matches the category as well as the id.
	results := c.Search(context.Background(), "embedding", nil)
	require.Len(t, results, 1)
	assert.Equal(t, "text-embedding-3-large", results[0].ID)
}
