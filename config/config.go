package config

import (
	"os"
	"strconv"
	"time"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// ProfileTTL bounds how long a stored candidate profile lives before the
	// store drops it.
	ProfileTTL time.Duration
}

type BrowserConfig struct {
	Headless       bool
	NavTimeout     time.Duration
	SettleDelay    time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
}

// AutomationConfig carries the tunable engine parameters. The thresholds are
// deliberately configuration, not constants: the acceptance points for the
// heuristic and vision paths and the calibrated fill line can be retuned
// without touching the classifier.
type AutomationConfig struct {
	MaxConcurrentJobs  int64
	JobBudget          time.Duration
	FieldTimeout       time.Duration
	HeuristicThreshold float64
	VisionThreshold    float64
	FillThreshold      float64
}

type VisionConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type AppConfig struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	Browser     BrowserConfig
	Automation  AutomationConfig
	Vision      VisionConfig
}

func GetDatabaseConfig() DatabaseConfig {
	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "formpilot"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	return RedisConfig{
		Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         db,
		ProfileTTL: getEnvDuration("PROFILE_TTL", 24*time.Hour),
	}
}

func GetBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       getEnvBool("BROWSER_HEADLESS", true),
		NavTimeout:     getEnvDuration("BROWSER_NAV_TIMEOUT", 30*time.Second),
		SettleDelay:    getEnvDuration("BROWSER_SETTLE_DELAY", 2*time.Second),
		ViewportWidth:  getEnvInt("BROWSER_VIEWPORT_WIDTH", 1920),
		ViewportHeight: getEnvInt("BROWSER_VIEWPORT_HEIGHT", 1080),
		UserAgent: getEnv("BROWSER_USER_AGENT",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
	}
}

func GetAutomationConfig() AutomationConfig {
	return AutomationConfig{
		MaxConcurrentJobs:  int64(getEnvInt("MAX_CONCURRENT_JOBS", 3)),
		JobBudget:          getEnvDuration("JOB_BUDGET", 3*time.Minute),
		FieldTimeout:       getEnvDuration("FIELD_TIMEOUT", 5*time.Second),
		HeuristicThreshold: getEnvFloat("HEURISTIC_THRESHOLD", 0.6),
		VisionThreshold:    getEnvFloat("VISION_THRESHOLD", 0.4),
		FillThreshold:      getEnvFloat("FILL_THRESHOLD", 0.75),
	}
}

func GetVisionConfig() VisionConfig {
	return VisionConfig{
		Endpoint: getEnv("VISION_ENDPOINT", ""),
		APIKey:   getEnv("VISION_API_KEY", ""),
		Model:    getEnv("VISION_MODEL", "gemini-1.5-flash"),
		Timeout:  getEnvDuration("VISION_TIMEOUT", 20*time.Second),
	}
}

func GetAppConfig() AppConfig {
	return AppConfig{
		Port:        getEnv("PORT", "8081"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Database:    GetDatabaseConfig(),
		Redis:       GetRedisConfig(),
		Browser:     GetBrowserConfig(),
		Automation:  GetAutomationConfig(),
		Vision:      GetVisionConfig(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
