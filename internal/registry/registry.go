package registry

import (
	"errors"
	"fmt"
	"sync"

	"neural_chat/internal/vault"
)

var (
	// ErrUnknownProvider is returned for names outside the descriptor table.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNotConfigured is returned when no credential is resolvable anywhere.
	ErrNotConfigured = errors.New("provider not configured")
)

// Descriptor is the static definition of a known upstream provider.
type Descriptor struct {
	Name           string
	DisplayName    string
	DefaultBaseURL string
}

// descriptors is the closed set of providers this gateway can broker to.
var descriptors = []Descriptor{
	{Name: "openai", DisplayName: "OpenAI", DefaultBaseURL: "https://api.openai.com/v1"},
	{Name: "siliconflow", DisplayName: "SiliconFlow", DefaultBaseURL: "https://api.siliconflow.cn/v1"},
	{Name: "simple_api", DisplayName: "Simple API Relay", DefaultBaseURL: "https://jeniya.cn/v1"},
	{Name: "custom", DisplayName: "Custom API", DefaultBaseURL: "https://api.openai.com/v1"},
}

// Descriptors returns the static provider table in declaration order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// EffectiveConfig is the per-request resolved provider configuration.
type EffectiveConfig struct {
	BaseURL string
	APIKey  string
}

// Selection is the default provider/model pair for unqualified requests.
type Selection struct {
	Provider string
	Model    string
}

// Options configures a Registry.
type Options struct {
	// FallbackAPIKeys are environment-level credentials consulted when the
	// vault has no key for a provider.
	FallbackAPIKeys map[string]string
	// CustomBaseURL overrides the "custom" provider's default endpoint.
	CustomBaseURL string
	// DefaultProvider and DefaultModel seed the active selection.
	DefaultProvider string
	DefaultModel    string
}

// Registry resolves provider names to effective {endpoint, credential} pairs
// and holds the guarded active provider/model selection.
type Registry struct {
	vault *vault.Vault
	opts  Options

	mu     sync.RWMutex
	active Selection
}

// New creates a registry backed by the given vault.
func New(v *vault.Vault, opts Options) *Registry {
	if opts.FallbackAPIKeys == nil {
		opts.FallbackAPIKeys = make(map[string]string)
	}
	return &Registry{
		vault: v,
		opts:  opts,
		active: Selection{
			Provider: opts.DefaultProvider,
			Model:    opts.DefaultModel,
		},
	}
}

// Lookup returns the static descriptor for a provider name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Resolve computes the effective configuration for a provider. Precedence:
// vault key, then vault base URL override, then environment fallback key,
// then the static default base URL.
func (r *Registry) Resolve(name string) (EffectiveConfig, error) {
	desc, ok := Lookup(name)
	if !ok {
		return EffectiveConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	apiKey, _ := r.vault.GetAPIKey(name)
	if apiKey == "" {
		apiKey = r.opts.FallbackAPIKeys[name]
	}
	if apiKey == "" {
		return EffectiveConfig{}, fmt.Errorf("%w: no API key for %s", ErrNotConfigured, desc.DisplayName)
	}

	baseURL := desc.DefaultBaseURL
	if name == "custom" && r.opts.CustomBaseURL != "" {
		baseURL = r.opts.CustomBaseURL
	}
	if status := r.vault.GetProviderConfig(name); status.BaseURL != "" {
		baseURL = status.BaseURL
	}

	return EffectiveConfig{BaseURL: baseURL, APIKey: apiKey}, nil
}

// IsConfigured reports whether a provider has a resolvable credential, either
// fully configured in the vault or via an environment fallback.
func (r *Registry) IsConfigured(name string) bool {
	if _, ok := Lookup(name); !ok {
		return false
	}
	if r.vault.GetProviderConfig(name).Configured {
		return true
	}
	if key, ok := r.vault.GetAPIKey(name); ok && key != "" {
		return true
	}
	return r.opts.FallbackAPIKeys[name] != ""
}

// ConfiguredProviders returns the names of all providers that can currently
// be called, in descriptor order.
func (r *Registry) ConfiguredProviders() []string {
	var names []string
	for _, d := range descriptors {
		if r.IsConfigured(d.Name) {
			names = append(names, d.Name)
		}
	}
	return names
}

// Status describes one provider for the settings surface.
type Status struct {
	Name       string `json:"name"`
	BaseURL    string `json:"base_url"`
	Configured bool   `json:"configured"`
}

// Statuses returns the status of every known provider keyed by name.
func (r *Registry) Statuses() map[string]Status {
	statuses := make(map[string]Status, len(descriptors))
	for _, d := range descriptors {
		baseURL := d.DefaultBaseURL
		if d.Name == "custom" && r.opts.CustomBaseURL != "" {
			baseURL = r.opts.CustomBaseURL
		}
		if s := r.vault.GetProviderConfig(d.Name); s.BaseURL != "" {
			baseURL = s.BaseURL
		}
		statuses[d.Name] = Status{
			Name:       d.DisplayName,
			BaseURL:    baseURL,
			Configured: r.IsConfigured(d.Name),
		}
	}
	return statuses
}

// Active returns a snapshot of the current default selection. Callers must
// take the snapshot once at request entry and use it throughout; concurrent
// SetActive calls never affect an in-flight request.
func (r *Registry) Active() Selection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SetActive changes the default provider/model for unqualified requests.
// Empty fields keep their current value.
func (r *Registry) SetActive(provider, model string) error {
	if provider != "" {
		if _, ok := Lookup(provider); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if provider != "" {
		r.active.Provider = provider
	}
	if model != "" {
		r.active.Model = model
	}
	return nil
}
