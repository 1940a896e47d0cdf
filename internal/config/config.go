// Package config loads lorekeep configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Backend identifies the durable storage layer for the session store.
type Backend string

const (
	// BackendFile keeps the serialized store in a file under DataDir.
	BackendFile Backend = "file"
	// BackendSurreal keeps the serialized store in a SurrealDB kv table.
	BackendSurreal Backend = "surrealdb"
)

// Config holds all configuration values.
type Config struct {
	// Session store
	DataDir        string
	StorageBackend Backend

	// SurrealDB connection (only used with BackendSurreal)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM
	LLMProvider     Provider
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Server
	ServerPort string
	ServerURL  string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		DataDir:        getEnv("LOREKEEP_DATA_DIR", defaultDataDir()),
		StorageBackend: Backend(getEnv("LOREKEEP_STORAGE", string(BackendFile))),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "lorekeep"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "chat"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     Provider(getEnv("LOREKEEP_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:        getEnv("LOREKEEP_LLM_MODEL", "llama3.2"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		ServerPort: getEnv("LOREKEEP_SERVER_PORT", "8272"),
		ServerURL:  getEnv("LOREKEEP_SERVER_URL", "http://localhost:8272"),

		LogFile:  getEnv("LOREKEEP_LOG_FILE", ""),
		LogLevel: parseLogLevel(getEnv("LOREKEEP_LOG_LEVEL", "INFO")),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lorekeep"
	}
	return filepath.Join(home, ".lorekeep")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
