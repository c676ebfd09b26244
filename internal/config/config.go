package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded once at process start.
// Values are read from the environment with a .env file as optional source.
type Config struct {
	Port        string
	CORSOrigins []string
	LogLevel    slog.Level

	// External open-data source (SECOP II)
	SecopBaseURL string

	// Narrative generation (Groq)
	GroqAPIKey string
	GroqModel  string

	// Analysis artifacts
	ArtifactsDir     string
	EnableEmbeddings bool
	EmbeddingDim     int

	// Result cache
	CacheDatabaseURL string
	CacheAuthToken   string
	CacheTTLDays     TTLDays
}

// TTLDays holds the per-kind cache TTLs in days
type TTLDays struct {
	Stats    int
	Light    int
	Detailed int
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	cfg := &Config{
		Port:         getEnvOrDefault("PORT", "8080"),
		SecopBaseURL: getEnvOrDefault("SECOP_BASE_URL", "https://www.datos.gov.co/resource/jbjy-vk9h.json"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GroqModel:    getEnvOrDefault("GROQ_MODEL", "llama-3.1-8b-instant"),

		ArtifactsDir:     resolveArtifactsDir(),
		EnableEmbeddings: getEnvBool("ENABLE_EMBEDDINGS", false),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 384),

		CacheDatabaseURL: os.Getenv("CACHE_DATABASE_URL"),
		CacheAuthToken:   os.Getenv("CACHE_AUTH_TOKEN"),
		CacheTTLDays: TTLDays{
			Stats:    getEnvInt("CACHE_TTL_STATS", 1),
			Light:    getEnvInt("CACHE_TTL_LIGHT", 7),
			Detailed: getEnvInt("CACHE_TTL_DETAILED", 7),
		},

		CORSOrigins: splitOrigins(os.Getenv("CORS_ORIGINS")),
		LogLevel:    parseLogLevel(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}

	return cfg
}

// resolveArtifactsDir probes common artifact locations when ARTIFACTS_DIR is
// unset. The isolation forest file marks a directory as valid.
func resolveArtifactsDir() string {
	if dir := os.Getenv("ARTIFACTS_DIR"); dir != "" {
		return dir
	}

	candidates := []string{
		"data/artifacts",
		"artifacts",
		"/app/data/artifacts",
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, "isolation_forest.json")); err == nil {
			return dir
		}
	}

	return "data/artifacts"
}

func splitOrigins(raw string) []string {
	if raw == "" {
		// Development defaults, overridden in deployment
		return []string{
			"https://www.radarcol.com",
			"https://radarcol.com",
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToUpper(raw) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", raw)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default", "key", key, "value", raw)
		return defaultValue
	}
	return value
}
