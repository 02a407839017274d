package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Quota struct {
	RPM int
	TPM int
	RPD int
}

type AppConfig struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string
	LLMQuota    Quota

	EmbEndpoint   string
	EmbAPIKey     string
	EmbModel      string
	EmbDimensions int
	EmbQuota      Quota

	JobWorkers   int
	JobQueueSize int

	NATSURL string

	IngestAllowedDomains []string
	IngestMaxBytes       int
	IngestFetchInterval  time.Duration
	ProgressFile         string
	PromptsFile          string
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function; Load passes os.Getenv.
func FromEnv(getenv func(string) string) AppConfig {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}
	getInt := func(k string, def int) int {
		v := get(k, "")
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			slog.Warn("invalid integer config, using default", "key", k, "value", v, "default", def)
			return def
		}
		return n
	}

	llmKey := get("LLM_API_KEY", getenv("GEMINI_API_KEY"))
	llmEndpoint := get("LLM_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta/openai")

	cfg := AppConfig{
		Port:      get("PORT", "8080"),
		DBPath:    get("DB_PATH", "umbra.db"),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),

		LLMEndpoint: llmEndpoint,
		LLMAPIKey:   llmKey,
		LLMModel:    get("LLM_MODEL", "gemini-2.0-flash"),
		LLMQuota: Quota{
			RPM: getInt("LLM_RPM", 15),
			TPM: getInt("LLM_TPM", 1000000),
			RPD: getInt("LLM_RPD", 200),
		},

		EmbEndpoint:   get("EMB_ENDPOINT", llmEndpoint),
		EmbAPIKey:     get("EMB_API_KEY", llmKey),
		EmbModel:      get("EMB_MODEL", "text-embedding-004"),
		EmbDimensions: getInt("EMB_DIMENSIONS", 768),
		EmbQuota: Quota{
			RPM: getInt("EMB_RPM", 100),
			TPM: getInt("EMB_TPM", 30000),
			RPD: getInt("EMB_RPD", 1000),
		},

		JobWorkers:   getInt("JOB_WORKERS", 2),
		JobQueueSize: getInt("JOB_QUEUE_SIZE", 256),

		NATSURL: get("NATS_URL", ""),

		IngestMaxBytes:      getInt("INGEST_MAX_BYTES", 5*1024*1024),
		IngestFetchInterval: time.Duration(getInt("INGEST_FETCH_INTERVAL_MS", 1000)) * time.Millisecond,
		ProgressFile:        get("PROGRESS_FILE", "progress.json"),
		PromptsFile:         get("PROMPTS_FILE", ""),
	}
	for _, h := range strings.Split(get("INGEST_ALLOWED_DOMAINS", ""), ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			cfg.IngestAllowedDomains = append(cfg.IngestAllowedDomains, h)
		}
	}
	if cfg.JobWorkers == 0 {
		cfg.JobWorkers = 1
	}
	return cfg
}

// LLMEnabled reports whether a real provider is configured.
func (c AppConfig) LLMEnabled() bool { return c.LLMEndpoint != "" && c.LLMAPIKey != "" }

func (c AppConfig) EmbedderEnabled() bool { return c.EmbEndpoint != "" && c.EmbAPIKey != "" }

// LogValue keeps secrets out of the startup log line.
func (c AppConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.String("db_path", c.DBPath),
		slog.String("llm_endpoint", c.LLMEndpoint),
		slog.String("llm_model", c.LLMModel),
		slog.String("llm_api_key", mask(c.LLMAPIKey)),
		slog.String("emb_endpoint", c.EmbEndpoint),
		slog.String("emb_model", c.EmbModel),
		slog.Int("emb_dimensions", c.EmbDimensions),
		slog.Int("job_workers", c.JobWorkers),
		slog.Bool("nats", c.NATSURL != ""),
		slog.Any("ingest_allowed_domains", c.IngestAllowedDomains),
		slog.Duration("ingest_fetch_interval", c.IngestFetchInterval),
	)
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
