package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// LimitsConfig bounds what a single job may ingest.
type LimitsConfig struct {
	MaxInputFileMB    int
	MaxTotalInputMB   int
	AllowedMIMETypes  []string
	FileTTLHours      int
	EnforcePageLimits bool

	// PageCaps maps a target size in MB to the maximum page count for it.
	PageCaps map[int]int
}

// StorageConfig defines where job artifacts are written and how they are addressed.
type StorageConfig struct {
	Dir          string
	PublicPrefix string
}

// WorkerConfig defines worker behavior and limits.
type WorkerConfig struct {
	Concurrency     int
	PageConcurrency int
	JobTimeout      time.Duration
	DequeueTimeout  time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
	RedisURL string
	Stream   string
	Group    string
}

// S3Config configures the optional S3 mirror of job outputs.
type S3Config struct {
	Enabled   bool
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
	Endpoint  string

	// Password enables client-side encryption of mirrored objects when set.
	Password string
}

// MetricsConfig controls the metrics/health listener of the worker.
type MetricsConfig struct {
	Addr string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Limits  LimitsConfig
	Storage StorageConfig
	Worker  WorkerConfig
	Queue   QueueConfig
	S3      S3Config
	Metrics MetricsConfig
}

// FileTTL returns the retention window of written artifacts.
func (c Config) FileTTL() time.Duration { return time.Duration(c.Limits.FileTTLHours) * time.Hour }

// FromEnv loads configuration from environment (and an optional .env file) with sensible defaults.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/docpress.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_docpress",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Limits = LimitsConfig{
		MaxInputFileMB:    parseInt(getEnv("MAX_INPUT_FILE_MB", "50"), 50),
		MaxTotalInputMB:   parseInt(getEnv("MAX_TOTAL_INPUT_MB", "200"), 200),
		AllowedMIMETypes:  parseList(getEnv("ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png")),
		FileTTLHours:      parseInt(getEnv("FILE_TTL_HOURS", "6"), 6),
		EnforcePageLimits: parseBool(getEnv("ENFORCE_PAGE_LIMITS", "true")),
		PageCaps:          parsePageCaps(getEnv("PAGE_CAPS", "1:15,2:32,4:64,5:80")),
	}

	cfg.Storage = StorageConfig{
		Dir:          getEnv("STORAGE_DIR", "storage"),
		PublicPrefix: strings.TrimRight(getEnv("PUBLIC_PREFIX", "/static"), "/"),
	}

	cfg.Worker = WorkerConfig{
		Concurrency:     parseInt(getEnv("WORKER_CONCURRENCY", "2"), 2),
		PageConcurrency: parseInt(getEnv("WORKER_PAGE_CONCURRENCY", strconv.Itoa(runtime.NumCPU())), runtime.NumCPU()),
		JobTimeout:      parseDuration(getEnv("JOB_TIMEOUT", "10m"), 10*time.Minute),
		DequeueTimeout:  parseDuration(getEnv("DEQUEUE_TIMEOUT", "2s"), 2*time.Second),
		MaxAttempts:     parseInt(getEnv("WORKER_MAX_ATTEMPTS", "3"), 3),
		RetryBackoff:    parseDuration(getEnv("WORKER_RETRY_BACKOFF", "5s"), 5*time.Second),
	}

	cfg.Queue = QueueConfig{
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		Stream:   getEnv("QUEUE_STREAM", "jobs:compress"),
		Group:    getEnv("QUEUE_GROUP", "workers:compress"),
	}

	cfg.S3 = S3Config{
		Enabled:   parseBool(getEnv("S3_MIRROR", "false")),
		Bucket:    getEnv("S3_BUCKET", ""),
		Region:    getEnv("AWS_REGION", "us-east-1"),
		Prefix:    getEnv("S3_PREFIX", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:  getEnv("S3_ENDPOINT", ""),
		Password:  getEnv("S3_ENCRYPTION_PASSWORD", ""),
	}
	if cfg.S3.Bucket == "" {
		cfg.S3.Enabled = false
	}

	cfg.Metrics = MetricsConfig{Addr: getEnv("METRICS_ADDR", ":9090")}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePageCaps reads "mb:pages" pairs; malformed pairs are skipped.
func parsePageCaps(s string) map[int]int {
	caps := map[int]int{}
	for _, pair := range parseList(s) {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		mb, err1 := strconv.Atoi(strings.TrimSpace(k))
		pages, err2 := strconv.Atoi(strings.TrimSpace(v))
		if err1 != nil || err2 != nil {
			continue
		}
		caps[mb] = pages
	}
	return caps
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
