package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_PORT", "DATABASE_URL", "SUBJECTS_FILE", "LOG_LEVEL",
		"OPENAI_BASE_URL", "OPENAI_API_KEY", "OPENAI_MODEL", "CORS_ORIGINS",
	} {
		t.Setenv(key, "") // register restore, then clear for real
		os.Unsetenv(key)
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.OpenAIBaseURL)
	assert.Equal(t, "llama-3.2-3b-instruct", cfg.OpenAIModel)
	assert.NotEmpty(t, cfg.CORSOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_URL", "subjectchat.db")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:1234")
	t.Setenv("OPENAI_MODEL", "some-model")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example ,")

	cfg := Load()
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "subjectchat.db", cfg.DatabaseURL)
	assert.Equal(t, "http://localhost:1234", cfg.OpenAIBaseURL)
	assert.Equal(t, "some-model", cfg.OpenAIModel)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
}
