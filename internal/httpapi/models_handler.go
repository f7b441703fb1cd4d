package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"neural_chat/internal/catalog"
	"neural_chat/internal/registry"
)

func queryInt(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return n
}

// handleModels serves GET /api/models with provider/category/search filters
// and pagination.
func (d *Dependencies) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	provider := q.Get("provider")
	if provider == "" {
		provider = d.Registry.Active().Provider
	}

	if _, ok := registry.Lookup(provider); !ok {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Message: fmt.Sprintf("unsupported provider: %s", provider),
		})
		return
	}

	if !d.Registry.IsConfigured(provider) {
		writeJSON(w, http.StatusOK, apiResponse{
			Success: false,
			Message: fmt.Sprintf("provider %s has no API key configured", provider),
			Data: map[string]interface{}{
				"models":      []catalog.ModelInfo{},
				"total_count": 0,
				"categories":  map[string]int{},
			},
		})
		return
	}

	models := d.Catalog.ListModels(r.Context(), provider)
	filtered := catalog.Filter(models, q.Get("category"), q.Get("search"))

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	page := catalog.Paginate(filtered, limit, offset)

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("fetched %d models (%d total)", len(page), len(filtered)),
		Data: map[string]interface{}{
			"models":         page,
			"total_count":    len(filtered),
			"filtered_count": len(page),
			"categories":     catalog.CategoryCounts(models),
			"provider":       provider,
			"pagination": map[string]interface{}{
				"limit":    limit,
				"offset":   offset,
				"has_more": offset+len(page) < len(filtered),
			},
		},
	})
}

// handleModelSearch serves GET /api/models/search?q=...&provider=... with
// concurrent cross-provider search.
func (d *Dependencies) handleModelSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSONError(w, http.StatusBadRequest, "missing 'q' parameter")
		return
	}

	var subset []string
	if provider := r.URL.Query().Get("provider"); provider != "" {
		subset = strings.Split(provider, ",")
	}

	results := d.Catalog.Search(r.Context(), query, subset)

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("found %d models for %q", len(results), query),
		Data: map[string]interface{}{
			"query":       query,
			"results":     results,
			"total_count": len(results),
		},
	})
}

// handleChatModels serves GET /api/chat/models, the plain listing used by
// the chat surface.
func (d *Dependencies) handleChatModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, d.Catalog.ListModels(r.Context(), r.URL.Query().Get("provider")))
}
