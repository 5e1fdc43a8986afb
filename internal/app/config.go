package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chalkcast/appserver/internal/platform/logger"
)

type Config struct {
	ListenAddr  string
	CORSOrigins []string

	AppTokenSecret     string
	LectureTokenSecret string
	NotesTokenSecret   string
	AppTokenTTL        time.Duration
	DerivedTokenTTL    time.Duration
	NotepadURL         string
	NotesURL           string

	MongoURL string
	MongoDB  string

	RedisAddr string

	GCSBucket          string
	GCSCredentialsFile string
	CDNDomain          string

	OtelEnabled     bool
	OtelSampleRatio float64
	Environment     string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8090", log),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*", log)),

		AppTokenSecret:     getEnv("APP_TOKEN_SECRET", "", log),
		LectureTokenSecret: getEnv("LECTURE_TOKEN_SECRET", "", log),
		NotesTokenSecret:   getEnv("NOTES_TOKEN_SECRET", "", log),
		AppTokenTTL:        time.Duration(getEnvAsInt("APP_TOKEN_TTL", 600, log)) * time.Second,
		DerivedTokenTTL:    time.Duration(getEnvAsInt("DERIVED_TOKEN_TTL", 60, log)) * time.Second,
		NotepadURL:         getEnv("NOTEPAD_URL", "", log),
		NotesURL:           getEnv("NOTES_URL", "", log),

		MongoURL: getEnv("MONGO_URL", "mongodb://localhost:27017", log),
		MongoDB:  getEnv("MONGO_DB", "lectureapp", log),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379", log),

		GCSBucket:          getEnv("GCS_BUCKET", "", log),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", "", log),
		CDNDomain:          getEnv("CDN_DOMAIN", "", log),

		OtelEnabled:     getEnvAsBool("OTEL_ENABLED", false, log),
		OtelSampleRatio: float64(getEnvAsInt("OTEL_SAMPLE_PERCENT", 10, log)) / 100,
		Environment:     getEnv("ENVIRONMENT", "development", log),
	}
}

func getEnv(key, defaultVal string, log *logger.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("environment variable not found, using default", "env_var", key, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("environment variable not an int, using default", "env_var", key, "provided", valStr, "default", defaultVal)
		}
		return defaultVal
	}
	return i
}

func getEnvAsBool(key string, defaultVal bool, log *logger.Logger) bool {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(valStr)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
