package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds shared runtime configuration for the enqueuer and worker
// processes. Everything is injected from the environment; nothing about
// brokers, endpoints, or credentials is compiled in.
type Config struct {
	Env      string
	HTTPPort string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Company registry: "file" reads RegistryFile, "postgres" reads the
	// companies table at PostgresDSN.
	RegistrySource string
	RegistryFile   string
	PostgresDSN    string

	// Output roots. Backend "local" writes under the *Dir paths;
	// "s3" writes the same keys into S3Bucket.
	ArtifactBackend string
	ScrapedDir      string
	ExtractedDir    string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PathStyle     bool

	// Scrape HTTP settings.
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    float64
	ProxyList      []string
	ProxyUser      string
	ProxyPass      string

	// LLM settings. An empty API key disables extraction (per-job
	// errors are recorded instead of calls being made).
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    time.Duration
	LLMMaxRetries int
	// Cluster-wide LLM request budget; capacity 0 disables the limiter.
	LLMRateCapacity int
	LLMRateRefill   float64

	ScrapeQueue  string
	ExtractQueue string
	WorkerQueue  string

	WorkerCount       int
	BatchSize         int
	MonitorInterval   time.Duration
	VisibilityTimeout time.Duration
	ShutdownGrace     time.Duration
}

// Load reads configuration from the environment (honoring a local .env
// file) with defaults suitable for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPPort: getEnv("HTTP_PORT", "8090"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RegistrySource: getEnv("REGISTRY_SOURCE", "file"),
		RegistryFile:   getEnv("REGISTRY_FILE", "data/registry.json"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),

		ArtifactBackend: getEnv("ARTIFACT_BACKEND", "local"),
		ScrapedDir:      getEnv("SCRAPED_DIR", "data/scraped"),
		ExtractedDir:    getEnv("EXTRACTED_DIR", "data/extracted"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PathStyle:     getEnvBool("S3_PATH_STYLE", false),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		MaxRetries:     getEnvInt("MAX_RETRIES", 5),
		BackoffBase:    getEnvFloat("BACKOFF_BASE", 1.5),
		ProxyList:      getEnvList("PROXY_LIST", nil),
		ProxyUser:      getEnv("PROXY_USER", ""),
		ProxyPass:      getEnv("PROXY_PASS", ""),

		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o"),
		LLMTimeout:      getEnvDuration("LLM_TIMEOUT", 120*time.Second),
		LLMMaxRetries:   getEnvInt("LLM_MAX_RETRIES", 5),
		LLMRateCapacity: getEnvInt("LLM_RATE_CAPACITY", 0),
		LLMRateRefill:   getEnvFloat("LLM_RATE_REFILL_PER_SEC", 5),

		ScrapeQueue:  getEnv("SCRAPE_QUEUE", "scrape"),
		ExtractQueue: getEnv("EXTRACT_QUEUE", "extract"),
		WorkerQueue:  getEnv("WORKER_QUEUE", "scrape"),

		WorkerCount:       getEnvInt("WORKER_COUNT", 50),
		BatchSize:         getEnvInt("BATCH_SIZE", 10),
		MonitorInterval:   getEnvDuration("MONITOR_INTERVAL", time.Second),
		VisibilityTimeout: getEnvDuration("VISIBILITY_TIMEOUT", 2*time.Minute),
		ShutdownGrace:     getEnvDuration("SHUTDOWN_GRACE", 5*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
