package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Logging  LoggingConfig  `json:"logging"`
	Security SecurityConfig `json:"security"`
	Autosave AutosaveConfig `json:"autosave"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	MigrationsPath string        `json:"migrations_path"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWTSecret      string        `json:"jwt_secret"`
	JWTExpiration  time.Duration `json:"jwt_expiration"`
	EncryptionKey  string        `json:"encryption_key"`
	SessionTimeout time.Duration `json:"session_timeout"`
	CORSOrigins    []string      `json:"cors_origins"`
}

// AutosaveConfig represents save trigger timings
type AutosaveConfig struct {
	DebounceInterval  time.Duration `json:"debounce_interval"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	UnloadTimeout     time.Duration `json:"unload_timeout"`
}

// Load loads configuration from environment variables and defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "benefitnav"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			JWTExpiration:  getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
			EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
			SessionTimeout: getEnvDuration("SESSION_TIMEOUT", 20*time.Minute),
			CORSOrigins:    getEnvSlice("CORS_ORIGINS", []string{"*"}),
		},
		Autosave: AutosaveConfig{
			DebounceInterval:  getEnvDuration("AUTOSAVE_DEBOUNCE_INTERVAL", 3*time.Second),
			HeartbeatInterval: getEnvDuration("AUTOSAVE_HEARTBEAT_INTERVAL", 30*time.Second),
			UnloadTimeout:     getEnvDuration("AUTOSAVE_UNLOAD_TIMEOUT", 5*time.Second),
		},
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}

	if c.Security.JWTSecret == "" || c.Security.JWTSecret == "your-secret-key-change-in-production" {
		if c.Server.Environment == "production" {
			return fmt.Errorf("JWT secret must be set in production")
		}
	}

	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisURL returns the Redis connection URL
func (c *Config) GetRedisURL() string {
	if c.Redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", c.Redis.Password, c.Redis.Host, c.Redis.Port, c.Redis.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", c.Redis.Host, c.Redis.Port, c.Redis.DB)
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
