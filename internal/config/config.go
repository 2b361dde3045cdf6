package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Relay   RelayConfig
	Scanner ScannerConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	BodyLimitBytes     int
	RedisURL           string
}

type RelayConfig struct {
	NotifyCooldown time.Duration
	URL            string
	Session        string
}

type ScannerConfig struct {
	DetectURL     string
	ScanInterval  time.Duration
	Threshold     float64
	DetectTimeout time.Duration
	FrameDir      string
	BeepEnabled   bool
	DebugEnabled  bool
	HistoryLimit  int
	FrameWidth    int
	FrameHeight   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8080"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			BodyLimitBytes:     getEnvAsInt("BODY_LIMIT_BYTES", 10*1024*1024),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Relay: RelayConfig{
			NotifyCooldown: getEnvAsMillis("NOTIFY_COOLDOWN_MS", 1000),
			URL:            getEnv("RELAY_URL", "http://localhost:8080"),
			Session:        getEnv("RELAY_SESSION", "default"),
		},
		Scanner: ScannerConfig{
			DetectURL:     getEnv("DETECT_URL", "http://localhost:8000"),
			ScanInterval:  getEnvAsMillis("SCAN_INTERVAL_MS", 2000),
			Threshold:     getEnvAsFloat("DETECT_THRESHOLD", 0.4),
			DetectTimeout: getEnvAsMillis("DETECT_TIMEOUT_MS", 10000),
			FrameDir:      getEnv("FRAME_DIR", "./frames"),
			BeepEnabled:   getEnvAsBool("BEEP_ENABLED", true),
			DebugEnabled:  getEnvAsBool("DEBUG_ENABLED", false),
			HistoryLimit:  getEnvAsInt("DEBUG_HISTORY_LIMIT", 20),
			FrameWidth:    getEnvAsInt("FRAME_WIDTH", 640),
			FrameHeight:   getEnvAsInt("FRAME_HEIGHT", 480),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}
