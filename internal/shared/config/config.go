package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MatchProvider   string
	MatchEndpoint   string
	MatchModel      string
	DatabaseURL     string
	Env             string
	Policy          Policy
	TimerMaxAge     time.Duration
}

// Policy carries the review/matching business constants. The defaults mirror the
// AU rate card; other jurisdictions override via env.
type Policy struct {
	StrongMatchThreshold          float64
	AutoReadyThreshold            float64
	ClassificationBaselineMinutes float64
	DefaultBaselineMinutes        float64
	HourlyRateUSD                 float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		MatchProvider:   normalizeMatchProvider(getEnv("MATCH_PROVIDER", "local")),
		MatchEndpoint:   getEnv("MATCH_ENDPOINT", ""),
		MatchModel:      getEnv("MATCH_MODEL", ""),
		DatabaseURL:     dbURL,
		Env:             env,
		Policy:          loadPolicy(),
		TimerMaxAge:     getEnvDuration("TIMER_MAX_AGE", 8*time.Hour),
	}
}

func loadPolicy() Policy {
	return Policy{
		StrongMatchThreshold:          getEnvFloat("STRONG_MATCH_THRESHOLD", 0.75),
		AutoReadyThreshold:            getEnvFloat("AUTO_READY_THRESHOLD", 0.85),
		ClassificationBaselineMinutes: getEnvFloat("BASELINE_CLASSIFICATION_MINUTES", 30),
		DefaultBaselineMinutes:        getEnvFloat("BASELINE_DEFAULT_MINUTES", 45),
		HourlyRateUSD:                 getEnvFloat("REVIEW_HOURLY_RATE_USD", 450),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeMatchProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "remote":
		return "remote"
	default:
		return "local"
	}
}
