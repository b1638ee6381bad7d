package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string
	Origin               string
	Environment          string
	LogLevel             string
	JWTSecret            string
	JWTExpirationMinutes int
	RoomTokenSecret      string
	Database             DatabaseConfig
	Store                StoreConfig
	Redis                RedisConfig
	Schedule             ScheduleConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// StoreConfig selects where consultation records are persisted. SyncInterval
// is how often a mysql-backed instance re-reads records written by other
// instances.
type StoreConfig struct {
	Driver       string // "mysql" or "file"
	File         string
	SyncInterval time.Duration
}

// RedisConfig enables the shared slot lock. An empty Addr keeps locking in-process.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	SlotLockTTL time.Duration
}

// ScheduleConfig controls how slot labels are read and when rooms open.
type ScheduleConfig struct {
	Timezone         string
	JoinWindowBefore time.Duration
	JoinWindowAfter  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "telemed"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	storeConfig := StoreConfig{
		Driver: getEnv("STORE_DRIVER", "mysql"),
		File:   getEnv("STORE_FILE", "data/consultations.json"),
	}
	if storeConfig.Driver != "mysql" && storeConfig.Driver != "file" {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want mysql or file", storeConfig.Driver)
	}
	syncSeconds, err := strconv.Atoi(getEnv("STORE_SYNC_INTERVAL_SECONDS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_SYNC_INTERVAL_SECONDS: %w", err)
	}
	storeConfig.SyncInterval = time.Duration(syncSeconds) * time.Second

	redisAddr := getEnv("REDIS_ADDR", "")
	if redisAddr != "" && storeConfig.Driver == "file" {
		// a file snapshot is private to one process, so there is nothing to share a lock over
		return nil, fmt.Errorf("REDIS_ADDR requires STORE_DRIVER=mysql")
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	lockTTL, err := strconv.Atoi(getEnv("SLOT_LOCK_TTL_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOT_LOCK_TTL_SECONDS: %w", err)
	}

	before, err := strconv.Atoi(getEnv("JOIN_WINDOW_BEFORE_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOIN_WINDOW_BEFORE_MINUTES: %w", err)
	}

	after, err := strconv.Atoi(getEnv("JOIN_WINDOW_AFTER_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOIN_WINDOW_AFTER_MINUTES: %w", err)
	}

	scheduleConfig := ScheduleConfig{
		Timezone:         getEnv("TIMEZONE", "UTC"),
		JoinWindowBefore: time.Duration(before) * time.Minute,
		JoinWindowAfter:  time.Duration(after) * time.Minute,
	}
	if _, err := time.LoadLocation(scheduleConfig.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                 getEnv("PORT", "3001"),
		Origin:               getEnv("ORIGIN", "http://localhost:4200"),
		Environment:          getEnv("NODE_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		JWTSecret:            getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTExpirationMinutes: jwtExpMinutes,
		RoomTokenSecret:      getEnv("ROOM_TOKEN_SECRET", "default_room_secret"),
		Database:             dbConfig,
		Store:                storeConfig,
		Redis: RedisConfig{
			Addr:        redisAddr,
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          redisDB,
			SlotLockTTL: time.Duration(lockTTL) * time.Second,
		},
		Schedule: scheduleConfig,
	}, nil
}

// Location resolves the configured time zone. LoadConfig has already
// checked the name.
func (s ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
