package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Settings holds all configuration read from the environment. Absent
// credentials are a supported mode, not an error: every component that
// depends on an external service has a degraded fallback.
type Settings struct {
	// DatabaseURL points at a Postgres instance with the pgvector
	// extension. Empty means the in-memory vector store is used.
	DatabaseURL string

	// GeminiAPIKey authorises both the embedding and completion APIs.
	GeminiAPIKey string

	EmbeddingModel      string
	EmbeddingDimensions int
	GenerationModel     string

	// IsaacusAPIKey authorises the universal clause classifier.
	IsaacusAPIKey  string
	IsaacusBaseURL string
	IsaacusModel   string

	// Artifact storage for raw OCR payloads.
	StorageType      string
	StorageLocalPath string
	S3Bucket         string
	S3Region         string
	AWSAccessKey     string
	AWSSecretKey     string
}

// Load reads settings from the environment, first loading .env.local if
// present.
func Load() Settings {
	// Missing .env.local is fine; containers set real env vars.
	_ = godotenv.Load(".env.local")

	return Settings{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 768),
		GenerationModel:     getEnv("GENERATION_MODEL", "gemini-1.5-pro"),
		IsaacusAPIKey:       os.Getenv("ISAACUS_API_KEY"),
		IsaacusBaseURL:      getEnv("ISAACUS_BASE_URL", "https://api.isaacus.com"),
		IsaacusModel:        getEnv("ISAACUS_MODEL", "kanon-universal-classifier"),
		StorageType:         getEnv("STORAGE_TYPE", "local"),
		StorageLocalPath:    getEnv("STORAGE_LOCAL_PATH", "./storage/files"),
		S3Bucket:            os.Getenv("AWS_S3_BUCKET"),
		S3Region:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKey:        os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:        os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
