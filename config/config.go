package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort     string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// External Zelf service
	ZelfBaseURL        string
	ZelfAPIKey         string
	ZelfTimeoutSeconds int

	// Background pipeline
	ContentPullIntervalSeconds int
	AICommentIntervalSeconds   int
	FinalCommentMaxRetries     int
	FinalCommentRetrySeconds   int
	ContentRefreshOnPull       bool
	AICommentRetentionDays     int
	TaskWorkersPerQueue        int

	RateLimitPerMinute int
	AllowedOrigins     []string

	// Gin framework configuration
	GinMode string
	GinPath string

	// Redis for response caching; caching is disabled when RedisHost is empty
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// jsonSetRefresh marks whether config.json carried an explicit refresh flag so
// the default cannot stomp an explicit false.
var jsonSetRefresh bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Optional .env for local development; deployments use the real environment.
	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)

	applyDefaults(&cfg)

	applyEnvOverrides(&cfg)

	if cfg.ZelfBaseURL == "" {
		log.Println("warning: ZELF_BASE_URL not set; background pipeline cannot reach the content service")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "contentapi"
	}
	if c.ZelfTimeoutSeconds <= 0 {
		c.ZelfTimeoutSeconds = 15
	}
	if c.ContentPullIntervalSeconds <= 0 {
		c.ContentPullIntervalSeconds = 60
	}
	if c.AICommentIntervalSeconds <= 0 {
		c.AICommentIntervalSeconds = 30
	}
	if c.FinalCommentMaxRetries <= 0 {
		c.FinalCommentMaxRetries = 3
	}
	if c.FinalCommentRetrySeconds <= 0 {
		c.FinalCommentRetrySeconds = 30
	}
	if c.AICommentRetentionDays <= 0 {
		c.AICommentRetentionDays = 30
	}
	if c.TaskWorkersPerQueue <= 0 {
		c.TaskWorkersPerQueue = 4
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	// Re-pulls refresh already seen rows by default, matching the write API's
	// unconditional counter overwrite.
	if !jsonSetRefresh {
		c.ContentRefreshOnPull = true
	}
}

func applyEnvOverrides(c *AppConfig) {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.DatabaseURI = getEnv("DATABASE_URI", c.DatabaseURI)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)

	c.ZelfBaseURL = strings.TrimRight(getEnv("ZELF_BASE_URL", c.ZelfBaseURL), "/")
	c.ZelfAPIKey = getEnv("API_KEY", c.ZelfAPIKey)
	c.ZelfTimeoutSeconds = getEnvInt("ZELF_TIMEOUT_SECONDS", c.ZelfTimeoutSeconds)

	c.ContentPullIntervalSeconds = getEnvInt("CONTENT_PULL_INTERVAL_SECONDS", c.ContentPullIntervalSeconds)
	c.AICommentIntervalSeconds = getEnvInt("AI_COMMENT_INTERVAL_SECONDS", c.AICommentIntervalSeconds)
	c.FinalCommentMaxRetries = getEnvInt("FINAL_COMMENT_MAX_RETRIES", c.FinalCommentMaxRetries)
	c.FinalCommentRetrySeconds = getEnvInt("FINAL_COMMENT_RETRY_SECONDS", c.FinalCommentRetrySeconds)
	c.AICommentRetentionDays = getEnvInt("AI_COMMENT_RETENTION_DAYS", c.AICommentRetentionDays)
	c.TaskWorkersPerQueue = getEnvInt("TASK_WORKERS_PER_QUEUE", c.TaskWorkersPerQueue)
	if v := os.Getenv("CONTENT_REFRESH_ON_PULL"); v != "" {
		c.ContentRefreshOnPull = parseBool(v)
	}

	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.GinPath = getEnv("GIN_LOG_PATH", c.GinPath)

	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnvInt("REDIS_PORT", c.RedisPort)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = parseBool(v)
	}
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) (bool, bool) {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
		return false, false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if db, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(db, "DatabaseURI")
		out.DBHost = getString(db, "DBHost")
		out.DBPort = getString(db, "DBPort")
		out.DBUser = getString(db, "DBUser")
		out.DBPassword = getString(db, "DBPassword")
		out.DBName = getString(db, "DBName")
	}

	if z, ok := raw["zelf"].(map[string]any); ok {
		out.ZelfBaseURL = getString(z, "BaseURL")
		out.ZelfAPIKey = getString(z, "APIKey")
		if v := getInt(z, "TimeoutSeconds"); v != 0 {
			out.ZelfTimeoutSeconds = v
		}
	}

	if t, ok := raw["tasks"].(map[string]any); ok {
		if v := getInt(t, "ContentPullIntervalSeconds"); v != 0 {
			out.ContentPullIntervalSeconds = v
		}
		if v := getInt(t, "AICommentIntervalSeconds"); v != 0 {
			out.AICommentIntervalSeconds = v
		}
		if v := getInt(t, "FinalCommentMaxRetries"); v != 0 {
			out.FinalCommentMaxRetries = v
		}
		if v := getInt(t, "FinalCommentRetrySeconds"); v != 0 {
			out.FinalCommentRetrySeconds = v
		}
		if v := getInt(t, "AICommentRetentionDays"); v != 0 {
			out.AICommentRetentionDays = v
		}
		if v := getInt(t, "WorkersPerQueue"); v != 0 {
			out.TaskWorkersPerQueue = v
		}
		if b, set := getBool(t, "ContentRefreshOnPull"); set {
			out.ContentRefreshOnPull = b
			jsonSetRefresh = true
		}
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		if b, set := getBool(lg, "Compress"); set {
			out.LogCompress = b
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			res = append(res, t)
		}
	}
	return res
}
