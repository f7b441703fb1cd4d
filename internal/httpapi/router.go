package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"neural_chat/internal/auth"
	"neural_chat/internal/catalog"
	"neural_chat/internal/chat"
	"neural_chat/internal/config"
	"neural_chat/internal/registry"
	"neural_chat/internal/session"
	"neural_chat/internal/vault"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Vault    *vault.Vault
	Registry *registry.Registry
	Catalog  *catalog.Catalog
	Proxy    *chat.Proxy
	Sessions session.Store
	Identity *auth.Identity
}

// newSessionStore picks a session store backend from config.
func newSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "postgres":
		store, err := session.NewPostgresStore(session.PostgresConfig{
			URL: cfg.Session.DatabaseURL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Address:      cfg.Session.Redis.Address,
			Password:     cfg.Session.Redis.Password,
			DB:           cfg.Session.Redis.DB,
			PoolSize:     cfg.Session.Redis.PoolSize,
			DialTimeout:  cfg.Session.Redis.DialTimeout,
			ReadTimeout:  cfg.Session.Redis.ReadTimeout,
			WriteTimeout: cfg.Session.Redis.WriteTimeout,
		})
	case "memory":
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store backend: %s", cfg.Session.Backend)
	}
}

// NewRouter creates an HTTP router with all dependencies wired up.
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	v, err := vault.Open(cfg.Vault.KeyFile, cfg.Vault.DocumentFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open vault: %w", err)
	}

	reg := registry.New(v, registry.Options{
		FallbackAPIKeys: cfg.Fallback.APIKeys,
		CustomBaseURL:   cfg.Fallback.CustomBaseURL,
		DefaultProvider: cfg.Provider.DefaultProvider,
		DefaultModel:    cfg.Provider.DefaultModel,
	})

	sessions, err := newSessionStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	deps := &Dependencies{
		Vault:    v,
		Registry: reg,
		Catalog:  catalog.New(reg, cfg.Provider.RequestTimeout),
		Proxy: chat.New(reg, sessions, chat.Options{
			Workers:      cfg.Chat.Workers,
			StreamBuffer: cfg.Chat.StreamBuffer,
			Timeout:      cfg.Provider.RequestTimeout,
		}),
		Sessions: sessions,
		Identity: auth.NewIdentity(auth.NewMemoryUserStore(), cfg.JWTSecret),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat/stream", deps.handleChatStream)
	mux.HandleFunc("/api/chat", deps.handleChat)
	mux.HandleFunc("/api/chat/models", deps.handleChatModels)
	mux.HandleFunc("/api/chat/sessions", deps.handleSessions)
	mux.HandleFunc("/api/chat/sessions/", deps.handleSessionByID)

	mux.HandleFunc("/api/models", deps.handleModels)
	mux.HandleFunc("/api/models/search", deps.handleModelSearch)

	mux.HandleFunc("/api/settings", deps.handleSettings)
	mux.HandleFunc("/api/settings/providers", deps.handleProviders)
	mux.HandleFunc("/api/settings/test", deps.handleTestConnection)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux, deps, nil
}
