// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the storefront API
type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Security     SecurityConfig
	External     ExternalConfig
	Upload       UploadConfig
	Cache        CacheConfig
	Notification NotificationConfig
	Inventory    InventoryConfig
	Loyalty      LoyaltyConfig
	Logging      LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
	BaseURL     string

	// Printed on receipts
	StoreName    string
	StoreAddress string
	StorePhone   string
	StoreEmail   string
	Timezone     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host          string
	Port          string
	Name          string
	User          string
	Password      string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	TxMaxAttempts int
	TxBackoff     time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains JWT token configuration
type JWTConfig struct {
	Secret               string
	AccessTokenExpiry    time.Duration
	RefreshTokenExpiry   time.Duration
	RefreshTokenRotation bool
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	BcryptCost         int
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
	AdminEmail         string
	AdminPassword      string
}

// ExternalConfig contains external service configurations
type ExternalConfig struct {
	Email   EmailConfig
	SMS     SMSConfig
	Storage StorageConfig
}

// EmailConfig contains email service configuration
type EmailConfig struct {
	Provider     string // smtp or resend
	APIKey       string
	FromEmail    string
	FromName     string
	ReplyTo      string
	BaseURL      string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool
}

// SMSConfig contains SMS gateway configuration
type SMSConfig struct {
	Provider   string // semaphore or log
	APIKey     string
	SenderName string
	BaseURL    string
}

// StorageConfig contains payment proof storage configuration
type StorageConfig struct {
	Provider               string // local or cloudinary
	LocalPath              string
	PublicBaseURL          string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	CloudinaryFolder       string
}

// UploadConfig contains file upload configuration
type UploadConfig struct {
	MaxSize           int64
	AllowedExtensions []string
}

// CacheConfig selects and tunes the query cache
type CacheConfig struct {
	Driver        string // memory or redis
	TTL           time.Duration
	SweepInterval time.Duration
}

// NotificationConfig tunes background notification dispatch
type NotificationConfig struct {
	DispatchTimeout time.Duration
	InboxLimit      int64
	InboxTTL        time.Duration
}

// InventoryConfig contains stock thresholds
type InventoryConfig struct {
	LowStockThreshold int
}

// LoyaltyConfig contains reward settings
type LoyaltyConfig struct {
	RewardValidity time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:         getEnv("APP_NAME", "Kusina De Amadeo API"),
			Version:      getEnv("APP_VERSION", "1.0.0"),
			Environment:  getEnv("APP_ENV", "development"),
			Debug:        getEnvAsBool("APP_DEBUG", true),
			BaseURL:      getEnv("APP_BASE_URL", "http://localhost:3000"),
			StoreName:    getEnv("STORE_NAME", "Kusina De Amadeo"),
			StoreAddress: getEnv("STORE_ADDRESS", "Amadeo, Cavite"),
			StorePhone:   getEnv("STORE_PHONE", ""),
			StoreEmail:   getEnv("STORE_EMAIL", ""),
			Timezone:     getEnv("STORE_TIMEZONE", "Asia/Manila"),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 20*time.Second),
			MaxBodyBytes:   getEnvAsInt64("SERVER_MAX_BODY_BYTES", 10<<20),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			Name:          getEnv("DB_NAME", "kusina_db"),
			User:          getEnv("DB_USER", "kusina_user"),
			Password:      getEnv("DB_PASSWORD", "kusina_password"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:  getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:   getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
			TxMaxAttempts: getEnvAsInt("DB_TX_MAX_ATTEMPTS", 5),
			TxBackoff:     getEnvAsDuration("DB_TX_BACKOFF", 20*time.Millisecond),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:               getEnv("JWT_SECRET", "kusina-de-amadeo-development-secret-key"),
			AccessTokenExpiry:    getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
			RefreshTokenExpiry:   getEnvAsDuration("JWT_REFRESH_EXPIRE", 7*24*time.Hour),
			RefreshTokenRotation: getEnvAsBool("JWT_REFRESH_ROTATION", true),
		},
		Security: SecurityConfig{
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
			AdminEmail:         getEnv("ADMIN_EMAIL", "admin@kusinadeamadeo.com"),
			AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		},
		External: ExternalConfig{
			Email: EmailConfig{
				Provider:     getEnv("EMAIL_PROVIDER", "smtp"),
				APIKey:       getEnv("RESEND_API_KEY", ""),
				FromEmail:    getEnv("FROM_EMAIL", "noreply@kusinadeamadeo.com"),
				FromName:     getEnv("FROM_NAME", "Kusina De Amadeo"),
				ReplyTo:      getEnv("REPLY_TO_EMAIL", ""),
				BaseURL:      getEnv("APP_BASE_URL", "http://localhost:3000"),
				SMTPHost:     getEnv("SMTP_HOST", ""),
				SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
				SMTPUsername: getEnv("SMTP_USER", ""),
				SMTPPassword: getEnv("SMTP_PASS", ""),
				SMTPUseTLS:   getEnvAsBool("SMTP_USE_TLS", false),
			},
			SMS: SMSConfig{
				Provider:   getEnv("SMS_PROVIDER", "log"),
				APIKey:     getEnv("SEMAPHORE_API_KEY", ""),
				SenderName: getEnv("SMS_SENDER_NAME", "KUSINA"),
				BaseURL:    getEnv("SEMAPHORE_BASE_URL", "https://api.semaphore.co/api/v4"),
			},
			Storage: StorageConfig{
				Provider:               getEnv("STORAGE_PROVIDER", "local"),
				LocalPath:              getEnv("STORAGE_LOCAL_PATH", "./uploads"),
				PublicBaseURL:          getEnv("STORAGE_PUBLIC_BASE_URL", "/uploads"),
				CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
				CloudinaryUploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", ""),
				CloudinaryFolder:       getEnv("CLOUDINARY_FOLDER", "payment-proofs"),
			},
		},
		Upload: UploadConfig{
			MaxSize:           getEnvAsInt64("UPLOAD_MAX_SIZE", 5<<20),
			AllowedExtensions: getEnvAsSlice("UPLOAD_ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "webp"}),
		},
		Cache: CacheConfig{
			Driver:        getEnv("CACHE_DRIVER", "memory"),
			TTL:           getEnvAsDuration("CACHE_TTL", 5*time.Minute),
			SweepInterval: getEnvAsDuration("CACHE_SWEEP_INTERVAL", time.Minute),
		},
		Notification: NotificationConfig{
			DispatchTimeout: getEnvAsDuration("NOTIFICATION_DISPATCH_TIMEOUT", 30*time.Second),
			InboxLimit:      getEnvAsInt64("NOTIFICATION_INBOX_LIMIT", 50),
			InboxTTL:        getEnvAsDuration("NOTIFICATION_INBOX_TTL", 30*24*time.Hour),
		},
		Inventory: InventoryConfig{
			LowStockThreshold: getEnvAsInt("LOW_STOCK_THRESHOLD", 5),
		},
		Loyalty: LoyaltyConfig{
			RewardValidity: getEnvAsDuration("LOYALTY_REWARD_VALIDITY", 30*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.TxMaxAttempts < 1 {
		return fmt.Errorf("DB_TX_MAX_ATTEMPTS must be at least 1")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid STORE_TIMEZONE %q: %w", c.App.Timezone, err)
	}

	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_DRIVER must be memory or redis, got %q", c.Cache.Driver)
	}

	switch c.External.Storage.Provider {
	case "local":
	case "cloudinary":
		if c.External.Storage.CloudinaryCloudName == "" || c.External.Storage.CloudinaryUploadPreset == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME and CLOUDINARY_UPLOAD_PRESET are required for cloudinary storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER: %s", c.External.Storage.Provider)
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the store's time zone, falling back to Philippine time
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.App.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("PHT", 8*60*60)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
