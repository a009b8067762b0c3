package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. It is built once in main and passed by
// value into component constructors; nothing mutates it afterwards.
type Config struct {
	HTTPPort     string
	DatabaseURL  string // empty means persistence is unavailable
	SubjectsFile string // optional JSON file with subject overrides
	LogLevel     string

	OpenAIBaseURL string // empty means the provider runs in stub mode
	OpenAIAPIKey  string
	OpenAIModel   string

	CORSOrigins []string
}

func Load() Config {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SubjectsFile:  getEnv("SUBJECTS_FILE", ""),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "llama-3.2-3b-instruct"),
		CORSOrigins:   getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
