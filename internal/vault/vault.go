package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"neural_chat/internal/logging"
)

// Document is the decrypted form of the vault file. Writes always replace the
// whole document, never patch it in place.
type Document struct {
	APIKeys   map[string]string        `json:"api_keys"`
	Providers map[string]ProviderEntry `json:"providers"`
}

// ProviderEntry is a per-provider endpoint override stored in the vault.
type ProviderEntry struct {
	BaseURL      string `json:"base_url"`
	ConfiguredAt string `json:"configured_at"`
}

// ProviderStatus is the resolved view of a single provider's vault state.
type ProviderStatus struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"-"`
	Configured bool   `json:"configured"`
}

func emptyDocument() Document {
	return Document{
		APIKeys:   make(map[string]string),
		Providers: make(map[string]ProviderEntry),
	}
}

// Vault stores provider credentials encrypted at rest. The document is
// re-read from disk on every operation so an external rotation is picked up
// immediately; a single mutex serializes load-mutate-store sequences within
// the process.
type Vault struct {
	keyFile string
	docFile string
	mu      sync.Mutex
	enc     *Encryption
}

// Open loads the vault key from keyFile, generating and persisting a fresh
// key with owner-only permissions on first use.
func Open(keyFile, docFile string) (*Vault, error) {
	key, err := os.ReadFile(keyFile)
	if os.IsNotExist(err) {
		key, err = GenerateKey(KeySize)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(keyFile, key, 0o600); err != nil {
			return nil, fmt.Errorf("failed to persist vault key: %w", err)
		}
		if err := os.Chmod(keyFile, 0o600); err != nil {
			// Not fatal on filesystems without POSIX permission bits.
			logging.Warningf("vault: failed to restrict key file permissions: %v", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read vault key: %w", err)
	}

	enc, err := NewEncryption(key)
	if err != nil {
		return nil, fmt.Errorf("invalid vault key: %w", err)
	}

	return &Vault{keyFile: keyFile, docFile: docFile, enc: enc}, nil
}

// LoadDocument reads and decrypts the vault document. A missing, corrupt or
// undecryptable file yields an empty document together with the reason; the
// serving path must keep working with "no configuration yet".
func (v *Vault) LoadDocument() (Document, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadLocked()
}

func (v *Vault) loadLocked() (Document, error) {
	blob, err := os.ReadFile(v.docFile)
	if os.IsNotExist(err) {
		return emptyDocument(), nil
	}
	if err != nil {
		return emptyDocument(), fmt.Errorf("failed to read vault document: %w", err)
	}

	plaintext, err := v.enc.Decrypt(blob)
	if err != nil {
		return emptyDocument(), fmt.Errorf("failed to decrypt vault document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return emptyDocument(), fmt.Errorf("malformed vault document: %w", err)
	}

	if doc.APIKeys == nil {
		doc.APIKeys = make(map[string]string)
	}
	if doc.Providers == nil {
		doc.Providers = make(map[string]ProviderEntry)
	}
	return doc, nil
}

// StoreDocument encrypts and writes the whole document, replacing the file.
func (v *Vault) StoreDocument(doc Document) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.storeLocked(doc)
}

func (v *Vault) storeLocked(doc Document) error {
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize vault document: %w", err)
	}

	blob, err := v.enc.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt vault document: %w", err)
	}

	if err := os.WriteFile(v.docFile, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write vault document: %w", err)
	}
	if err := os.Chmod(v.docFile, 0o600); err != nil {
		logging.Warningf("vault: failed to restrict document permissions: %v", err)
	}
	return nil
}

// UpdateAPIKey stores the API key for a provider.
func (v *Vault) UpdateAPIKey(provider, apiKey string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc, err := v.loadLocked()
	if err != nil {
		logging.Warningf("vault: starting from empty document: %v", err)
	}
	doc.APIKeys[provider] = apiKey
	return v.storeLocked(doc)
}

// UpdateProviderConfig stores a base URL override for a provider, and the API
// key as well when one is supplied.
func (v *Vault) UpdateProviderConfig(provider, baseURL, apiKey string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc, err := v.loadLocked()
	if err != nil {
		logging.Warningf("vault: starting from empty document: %v", err)
	}
	doc.Providers[provider] = ProviderEntry{
		BaseURL:      baseURL,
		ConfiguredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if apiKey != "" {
		doc.APIKeys[provider] = apiKey
	}
	return v.storeLocked(doc)
}

// GetAPIKey returns the stored API key for a provider, if any.
func (v *Vault) GetAPIKey(provider string) (string, bool) {
	doc, err := v.LoadDocument()
	if err != nil {
		logging.Warningf("vault: treating as unconfigured: %v", err)
	}
	key, ok := doc.APIKeys[provider]
	return key, ok && key != ""
}

// GetProviderConfig returns the vault view of a single provider. Configured
// means both an API key and a base URL are present.
func (v *Vault) GetProviderConfig(provider string) ProviderStatus {
	doc, err := v.LoadDocument()
	if err != nil {
		logging.Warningf("vault: treating as unconfigured: %v", err)
	}
	return providerStatus(doc, provider)
}

func providerStatus(doc Document, provider string) ProviderStatus {
	entry := doc.Providers[provider]
	key := doc.APIKeys[provider]
	return ProviderStatus{
		BaseURL:    entry.BaseURL,
		APIKey:     key,
		Configured: key != "" && entry.BaseURL != "",
	}
}

// ListProviders returns the status of every provider mentioned anywhere in
// the document, keyed by provider name.
func (v *Vault) ListProviders() map[string]ProviderStatus {
	doc, err := v.LoadDocument()
	if err != nil {
		logging.Warningf("vault: treating as unconfigured: %v", err)
	}

	statuses := make(map[string]ProviderStatus)
	for provider := range doc.APIKeys {
		statuses[provider] = providerStatus(doc, provider)
	}
	for provider := range doc.Providers {
		if _, ok := statuses[provider]; !ok {
			statuses[provider] = providerStatus(doc, provider)
		}
	}
	return statuses
}

// DeleteProvider removes a provider's key and endpoint override.
func (v *Vault) DeleteProvider(provider string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc, err := v.loadLocked()
	if err != nil {
		logging.Warningf("vault: starting from empty document: %v", err)
	}
	delete(doc.APIKeys, provider)
	delete(doc.Providers, provider)
	return v.storeLocked(doc)
}
