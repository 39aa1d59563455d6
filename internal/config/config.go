package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port        int
	APIBaseURL  string
	FeedBaseURL string
	AuthToken   string
	UserID      string

	RequestTimeout        time.Duration
	MaxMultiplierFallback float64
	GlideDuration         time.Duration
	FrameInterval         time.Duration
	ExitDelay             time.Duration

	ViewWidth    float64
	ViewHeight   float64
	MarkerWidth  float64
	MarkerHeight float64

	// Redis is optional; an empty RedisURL keeps history in memory only.
	RedisURL      string
	RedisPassword string
	RedisDB       int
	HistoryKey    string
}

func Load() *Config {
	return &Config{
		Port:        getEnvAsInt("PORT", 8080),
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:3000/api"),
		FeedBaseURL: getEnv("FEED_BASE_URL", "ws://localhost:3000/ws/tradegame"),
		AuthToken:   getEnv("AUTH_TOKEN", ""),
		UserID:      getEnv("USER_ID", "anonymous"),

		RequestTimeout:        getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		MaxMultiplierFallback: getEnvAsFloat("MAX_MULTIPLIER_FALLBACK", 10),
		GlideDuration:         getEnvAsDuration("GLIDE_DURATION", 8*time.Second),
		FrameInterval:         getEnvAsDuration("FRAME_INTERVAL", 16*time.Millisecond),
		ExitDelay:             getEnvAsDuration("EXIT_DELAY", 2*time.Second),

		ViewWidth:    getEnvAsFloat("VIEW_WIDTH", 360),
		ViewHeight:   getEnvAsFloat("VIEW_HEIGHT", 240),
		MarkerWidth:  getEnvAsFloat("MARKER_WIDTH", 48),
		MarkerHeight: getEnvAsFloat("MARKER_HEIGHT", 48),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		HistoryKey:    getEnv("HISTORY_KEY", "tradegame:history"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("250ms") or plain milliseconds.
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
