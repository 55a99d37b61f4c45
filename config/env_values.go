package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Environment struct {
	// Server configs
	IsDocker             bool
	Port                 string
	Environment          string
	LogLevel             string
	CorsAllowedOrigin    string
	SubmissionsPerMinute int

	// Auth configs
	JWTSecret                        string
	JWTExpirationMilliseconds        int
	JWTRefreshExpirationMilliseconds int

	// Database configs
	MongoURI          string
	MongoDatabaseName string

	// Redis configs
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string

	// Answer engine configs
	AnswerEngineURL     string
	AnswerEngineSecret  string
	AnswerEngineTimeout time.Duration

	// Streaming configs
	StatusSendTimeout       time.Duration
	StreamHeartbeatInterval time.Duration
}

var Env Environment

// LoadEnv loads environment variables from .env file if present
// and validates required variables
func LoadEnv() error {
	Env.IsDocker = os.Getenv("IS_DOCKER") == "true"

	// Load .env file only if not running in Docker
	if !Env.IsDocker {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("Warning: .env file not found: %v\n", err)
		}
	}

	// Server configs
	Env.Port = getEnvWithDefault("PORT", "3000")
	Env.Environment = getEnvWithDefault("ENVIRONMENT", "DEVELOPMENT")
	Env.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	Env.CorsAllowedOrigin = getEnvWithDefault("CORS_ALLOWED_ORIGIN", "http://localhost:3001")
	Env.SubmissionsPerMinute = getIntEnvWithDefault("SUBMISSIONS_PER_MINUTE", 20)

	// Auth configs
	Env.JWTSecret = getRequiredEnv("JWT_SECRET", "notebook_jwt_secret")
	Env.JWTExpirationMilliseconds = getIntEnvWithDefault("JWT_EXPIRATION_MILLISECONDS", 1000*60*60*24*10)                // 10 days default
	Env.JWTRefreshExpirationMilliseconds = getIntEnvWithDefault("JWT_REFRESH_EXPIRATION_MILLISECONDS", 1000*60*60*24*30) // 30 days default

	// Database configs
	Env.MongoURI = getRequiredEnv("NOTEBOOK_MONGODB_URI", "mongodb://localhost:27017/notebook")
	Env.MongoDatabaseName = getRequiredEnv("NOTEBOOK_MONGODB_NAME", "notebook")
	Env.RedisHost = getRequiredEnv("NOTEBOOK_REDIS_HOST", "localhost")
	Env.RedisPort = getRequiredEnv("NOTEBOOK_REDIS_PORT", "6379")
	Env.RedisUsername = getEnvWithDefault("NOTEBOOK_REDIS_USERNAME", "")
	Env.RedisPassword = getEnvWithDefault("NOTEBOOK_REDIS_PASSWORD", "")

	// Answer engine configs
	Env.AnswerEngineURL = getRequiredEnv("ANSWER_ENGINE_URL", os.Getenv("RETRIEVAL_API"))
	Env.AnswerEngineSecret = getEnvWithDefault("ANSWER_ENGINE_SECRET", "")
	Env.AnswerEngineTimeout = getDurationEnvWithDefault("ANSWER_ENGINE_TIMEOUT", 0)

	// Streaming configs
	Env.StatusSendTimeout = getDurationEnvWithDefault("STATUS_SEND_TIMEOUT", 30*time.Second)
	Env.StreamHeartbeatInterval = getDurationEnvWithDefault("STREAM_HEARTBEAT_INTERVAL", 15*time.Second)

	return validateConfig()
}

// IsDevelopment reports whether the service runs in DEVELOPMENT mode.
func (e Environment) IsDevelopment() bool {
	return e.Environment == "DEVELOPMENT"
}

// Helper functions to get environment variables with defaults and validation
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getRequiredEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(strValue)
	if err != nil {
		fmt.Printf("Warning: Invalid value for %s, using default: %d\n", key, defaultValue)
		return defaultValue
	}
	return value
}

// getDurationEnvWithDefault accepts Go duration strings ("45s") or a plain
// number of milliseconds.
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	fmt.Printf("Warning: Invalid value for %s, using default: %s\n", key, defaultValue)
	return defaultValue
}

func validateConfig() error {
	if !isValidURI(Env.MongoURI) {
		return fmt.Errorf("invalid NOTEBOOK_MONGODB_URI format: %s", Env.MongoURI)
	}

	if Env.JWTExpirationMilliseconds <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_MILLISECONDS must be positive, got: %d", Env.JWTExpirationMilliseconds)
	}

	if Env.AnswerEngineURL == "" {
		return fmt.Errorf("ANSWER_ENGINE_URL is required")
	}

	if Env.AnswerEngineTimeout < 0 {
		return fmt.Errorf("ANSWER_ENGINE_TIMEOUT must not be negative, got: %s", Env.AnswerEngineTimeout)
	}

	if Env.StatusSendTimeout <= 0 {
		return fmt.Errorf("STATUS_SEND_TIMEOUT must be positive, got: %s", Env.StatusSendTimeout)
	}

	if Env.StreamHeartbeatInterval <= 0 {
		return fmt.Errorf("STREAM_HEARTBEAT_INTERVAL must be positive, got: %s", Env.StreamHeartbeatInterval)
	}

	if Env.SubmissionsPerMinute <= 0 {
		return fmt.Errorf("SUBMISSIONS_PER_MINUTE must be positive, got: %d", Env.SubmissionsPerMinute)
	}

	return nil
}

func isValidURI(uri string) bool {
	return len(uri) > 0 && (len(uri) > 10)
}
