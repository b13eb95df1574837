package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode     string
	Port        string
	Database    DatabaseConfig
	JWT         JWTConfig
	Cookie      CookieConfig
	Messaging   MessagingConfig
	Redis       RedisConfig
	Workflow    WorkflowConfig
	SeedDevData bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// CookieConfig holds auth cookie settings
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// MessagingConfig holds the event broker settings. An empty URL
// means events are only written to the log.
type MessagingConfig struct {
	URL      string
	Exchange string
}

// RedisConfig holds the dashboard cache settings. An empty Addr
// means an in-process cache is used.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WorkflowConfig holds loan and helpdesk tuning
type WorkflowConfig struct {
	SLAConfigPath     string
	SweepSchedule     string
	DashboardCacheTTL time.Duration
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	db := loadDatabaseConfig(appMode)
	if db.Driver != "mysql" && db.Driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'postgres')", db.Driver)
	}

	workflow, err := loadWorkflowConfig()
	if err != nil {
		return nil, err
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	seed, _ := strconv.ParseBool(getEnv("SEED_DEV_DATA", strconv.FormatBool(appMode == "dev")))

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: db,
		JWT:      loadJWTConfig(appMode),
		Cookie: CookieConfig{
			Secure:   appMode == "prod",
			SameSite: getEnv("COOKIE_SAMESITE", "Lax"),
			Domain:   getEnv("COOKIE_DOMAIN", ""),
		},
		Messaging: MessagingConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "assetloan.events"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Workflow:    workflow,
		SeedDevData: seed && appMode == "dev",
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	driver := strings.ToLower(strings.TrimSpace(getEnv(prefix+"DB_DRIVER", "mysql")))
	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "ministry_assetloan"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "60"))

	return JWTConfig{
		Secret:          getEnv(modePrefix(mode)+"JWT_SECRET", "default_secret"),
		AccessTokenMins: accessMins,
	}
}

// loadWorkflowConfig loads SLA and sweep settings
func loadWorkflowConfig() (WorkflowConfig, error) {
	secs, err := strconv.Atoi(getEnv("DASHBOARD_CACHE_SECONDS", "30"))
	if err != nil || secs < 0 {
		return WorkflowConfig{}, fmt.Errorf("invalid DASHBOARD_CACHE_SECONDS: '%s'", os.Getenv("DASHBOARD_CACHE_SECONDS"))
	}

	return WorkflowConfig{
		SLAConfigPath:     getEnv("SLA_CONFIG_PATH", "config/sla.yaml"),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "*/15 * * * *"),
		DashboardCacheTTL: time.Duration(secs) * time.Second,
	}, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://assetloan.ministry.local"
	}
	return origins
}
