package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the chat gateway.
type Config struct {
	HTTPPort  string
	JWTSecret []byte
	Vault     VaultConfig
	Provider  ProviderConfig
	Chat      ChatConfig
	Session   SessionConfig
	Fallback  FallbackConfig
}

// VaultConfig holds the file locations of the secret vault.
type VaultConfig struct {
	KeyFile      string
	DocumentFile string
}

// ProviderConfig holds provider-related settings.
type ProviderConfig struct {
	RequestTimeout  time.Duration // timeout for upstream provider requests
	DefaultProvider string        // provider used for unqualified requests
	DefaultModel    string        // model used for unqualified requests
}

// ChatConfig holds settings for the streaming chat pipeline.
type ChatConfig struct {
	Workers      int // max concurrent upstream calls
	StreamBuffer int // per-stream event channel buffer
}

// SessionConfig selects and configures the session store backend.
type SessionConfig struct {
	Backend     string // "memory", "redis" or "postgres"
	DatabaseURL string
	Redis       RedisConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FallbackConfig carries environment-level provider credentials used when the
// vault has no entry for a provider.
type FallbackConfig struct {
	APIKeys       map[string]string // provider name -> key
	CustomBaseURL string
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:  getEnvString("HTTP_PORT", "8080"),
		JWTSecret: []byte(getEnvString("JWT_SECRET", "neural-chat-secret-change-in-production")),
		Vault: VaultConfig{
			KeyFile:      getEnvString("VAULT_KEY_FILE", ".encryption_key"),
			DocumentFile: getEnvString("VAULT_DOC_FILE", "secure_config.enc"),
		},
		Provider: ProviderConfig{
			RequestTimeout:  getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 60*time.Second),
			DefaultProvider: getEnvString("CURRENT_PROVIDER", "openai"),
			DefaultModel:    getEnvString("CURRENT_MODEL", "gpt-3.5-turbo"),
		},
		Chat: ChatConfig{
			Workers:      getEnvInt("CHAT_WORKERS", 16),
			StreamBuffer: getEnvInt("CHAT_STREAM_BUFFER", 64),
		},
		Session: SessionConfig{
			Backend:     getEnvString("SESSION_STORE", "memory"),
			DatabaseURL: getEnvString("DATABASE_URL", ""),
			Redis: RedisConfig{
				Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
				Password:     getEnvString("REDIS_PASSWORD", ""),
				DB:           getEnvInt("REDIS_DB", 0),
				PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
				DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
		},
		Fallback: FallbackConfig{
			APIKeys: map[string]string{
				"openai":      os.Getenv("OPENAI_API_KEY"),
				"siliconflow": os.Getenv("SILICONFLOW_API_KEY"),
				"simple_api":  os.Getenv("SIMPLE_API_KEY"),
				"custom":      os.Getenv("CUSTOM_API_KEY"),
			},
			CustomBaseURL: getEnvString("CUSTOM_BASE_URL", ""),
		},
	}

	return cfg, nil
}
