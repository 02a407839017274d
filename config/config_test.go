package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(envMap(nil))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "umbra.db", cfg.DBPath)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLMModel)
	assert.Equal(t, "text-embedding-004", cfg.EmbModel)
	assert.Equal(t, 768, cfg.EmbDimensions)
	assert.Equal(t, Quota{RPM: 15, TPM: 1000000, RPD: 200}, cfg.LLMQuota)
	assert.Equal(t, cfg.LLMEndpoint, cfg.EmbEndpoint)
	assert.False(t, cfg.LLMEnabled())
	assert.False(t, cfg.EmbedderEnabled())
	assert.Empty(t, cfg.IngestAllowedDomains)
	assert.Equal(t, time.Second, cfg.IngestFetchInterval)
	assert.Equal(t, "progress.json", cfg.ProgressFile)
}

func TestFromEnv_GeminiKeyFallback(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{"GEMINI_API_KEY": "g-key-123"}))

	assert.Equal(t, "g-key-123", cfg.LLMAPIKey)
	assert.Equal(t, "g-key-123", cfg.EmbAPIKey)
	assert.True(t, cfg.LLMEnabled())
	assert.True(t, cfg.EmbedderEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{
		"PORT":                     "9090",
		"LLM_API_KEY":              "k",
		"EMB_DIMENSIONS":           "1536",
		"JOB_WORKERS":              "0",
		"LLM_RPM":                  "not-a-number",
		"INGEST_ALLOWED_DOMAINS":   " www.ncbi.nlm.nih.gov, PMC.ncbi.nlm.nih.gov ,,",
		"INGEST_FETCH_INTERVAL_MS": "0",
	}))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 1536, cfg.EmbDimensions)
	assert.Equal(t, 1, cfg.JobWorkers)
	assert.Equal(t, 15, cfg.LLMQuota.RPM)
	assert.Equal(t, []string{"www.ncbi.nlm.nih.gov", "pmc.ncbi.nlm.nih.gov"}, cfg.IngestAllowedDomains)
	assert.Zero(t, cfg.IngestFetchInterval)
}

func TestLogValue_MasksKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := FromEnv(envMap(map[string]string{"LLM_API_KEY": "supersecretkey"}))

	logger.Info("config", "cfg", cfg)

	out := buf.String()
	require.NotEmpty(t, out)
	assert.NotContains(t, out, "supersecretkey")
	assert.Contains(t, out, "su**********ey")
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
