package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cart      CartConfig
	Storage   StorageConfig
	Mail      MailConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	BaseURL     string
	FrontendURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type CartConfig struct {
	SessionKey    string
	CookieSecure  bool
	TTL           time.Duration
	EvictSchedule string
}

type StorageConfig struct {
	UploadDir     string
	PublicBaseURL string
	MaxUploadSize int64
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
}

type LoggerConfig struct {
	FileEnable bool
	Filename   string
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

// PasswordResetURL is the frontend page that accepts ?token=...
func (c *Config) PasswordResetURL() string {
	return c.Server.FrontendURL + "/auth/reset"
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func Load() *Config {
	// Preload .env so values are visible to anything reading the process env directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_BASE_URL", "http://localhost:8080")
	viper.SetDefault("SERVER_FRONTEND_URL", "http://localhost:5173")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("CART_SESSION_KEY", "dev-cart-session-key-change-me")
	viper.SetDefault("CART_COOKIE_SECURE", false)
	viper.SetDefault("CART_TTL", "72h")
	viper.SetDefault("CART_EVICT_SCHEDULE", "@every 10m")
	viper.SetDefault("STORAGE_UPLOAD_DIR", "./uploads")
	viper.SetDefault("STORAGE_MAX_UPLOAD_SIZE", 5<<20)
	viper.SetDefault("MAIL_PORT", 587)
	viper.SetDefault("MAIL_FROM", "no-reply@giftstore.local")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 120)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("LOG_FILE_ENABLE", false)
	viper.SetDefault("LOG_FILENAME", "./logs/gift-store.log")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	baseURL := viper.GetString("SERVER_BASE_URL")
	publicBase := viper.GetString("STORAGE_PUBLIC_BASE_URL")
	if publicBase == "" {
		publicBase = baseURL
	}

	return &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Env:         viper.GetString("SERVER_ENV"),
			BaseURL:     baseURL,
			FrontendURL: strings.TrimRight(viper.GetString("SERVER_FRONTEND_URL"), "/"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Cart: CartConfig{
			SessionKey:    viper.GetString("CART_SESSION_KEY"),
			CookieSecure:  viper.GetBool("CART_COOKIE_SECURE"),
			TTL:           viper.GetDuration("CART_TTL"),
			EvictSchedule: viper.GetString("CART_EVICT_SCHEDULE"),
		},
		Storage: StorageConfig{
			UploadDir:     viper.GetString("STORAGE_UPLOAD_DIR"),
			PublicBaseURL: publicBase,
			MaxUploadSize: viper.GetInt64("STORAGE_MAX_UPLOAD_SIZE"),
		},
		Mail: MailConfig{
			Host:     viper.GetString("MAIL_HOST"),
			Port:     viper.GetInt("MAIL_PORT"),
			Username: viper.GetString("MAIL_USERNAME"),
			Password: viper.GetString("MAIL_PASSWORD"),
			From:     viper.GetString("MAIL_FROM"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			Enabled:           viper.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:            viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Logger: LoggerConfig{
			FileEnable: viper.GetBool("LOG_FILE_ENABLE"),
			Filename:   viper.GetString("LOG_FILENAME"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
