package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"neural_chat/internal/catalog"
)

// settingsUpdateRequest is the wire form of PUT /api/settings.
type settingsUpdateRequest struct {
	CurrentProvider string `json:"current_provider,omitempty"`
	CurrentModel    string `json:"current_model,omitempty"`
	APIKey          string `json:"api_key,omitempty"`
	BaseURL         string `json:"base_url,omitempty"`
}

// handleSettings serves GET and PUT /api/settings.
func (d *Dependencies) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		active := d.Registry.Active()
		writeJSON(w, http.StatusOK, map[string]string{
			"current_provider": active.Provider,
			"current_model":    active.Model,
		})
	case http.MethodPut:
		d.handleUpdateSettings(w, r)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (d *Dependencies) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := d.Registry.SetActive(req.CurrentProvider, req.CurrentModel); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Credentials go to the vault, never to process environment.
	if req.APIKey != "" || req.BaseURL != "" {
		provider := req.CurrentProvider
		if provider == "" {
			provider = d.Registry.Active().Provider
		}

		var err error
		if req.BaseURL != "" {
			err = d.Vault.UpdateProviderConfig(provider, req.BaseURL, req.APIKey)
		} else {
			err = d.Vault.UpdateAPIKey(provider, req.APIKey)
		}
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to store provider credentials")
			return
		}
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "settings updated"})
}

// handleProviders serves GET /api/settings/providers: the static provider
// table with per-provider configured status.
func (d *Dependencies) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "provider list",
		Data:    d.Registry.Statuses(),
	})
}

// handleTestConnection serves POST /api/settings/test: verifies the active
// provider by fetching its model listing.
func (d *Dependencies) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	provider := d.Registry.Active().Provider
	models := d.Catalog.ListModels(r.Context(), provider)

	if len(models) == 0 {
		writeJSON(w, http.StatusOK, apiResponse{
			Success: true,
			Message: "connection ok, but no models were listed; enter a model ID manually",
			Data: map[string]interface{}{
				"models":      []catalog.ModelInfo{},
				"total_count": 0,
				"categories":  map[string]int{},
			},
		})
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("connection test found %d models", len(models)),
		Data: map[string]interface{}{
			"models":      models,
			"total_count": len(models),
			"categories":  catalog.CategoryCounts(models),
		},
	})
}
