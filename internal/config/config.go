package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Replenishment ReplenishmentConfig
	Policy        PolicyConfig
	Storage       StorageConfig
	Events        EventsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConcurrent int64
}

type CacheConfig struct {
	Enabled         bool
	RedisURL        string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	QueryTTLSeconds int
}

// ReplenishmentConfig tunes batching and error recovery of a run.
type ReplenishmentConfig struct {
	BatchSize       int
	MinADSThreshold float64
	ErrorRecovery   bool
	MaxRetries      int
	RetryDelay      time.Duration
	Workers         int
	Debug           bool
}

// PolicyConfig holds the replenishment/safety-days policy and the sales window.
type PolicyConfig struct {
	SalesLookbackDays int
	LeadTimeDays      float64
	SafetyDays        float64
	ReviewDays        float64
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type EventsConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 120)
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "autopo")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_QUERY_TTL_SECONDS", 60)
		viper.SetDefault("REPLENISHMENT_BATCH_SIZE", 100)
		viper.SetDefault("REPLENISHMENT_MIN_ADS_THRESHOLD", 0.1)
		viper.SetDefault("REPLENISHMENT_ERROR_RECOVERY", true)
		viper.SetDefault("REPLENISHMENT_MAX_RETRIES", 3)
		viper.SetDefault("REPLENISHMENT_RETRY_DELAY_MS", 100)
		viper.SetDefault("REPLENISHMENT_WORKERS", 1)
		viper.SetDefault("REPLENISHMENT_DEBUG", false)
		viper.SetDefault("POLICY_SALES_LOOKBACK_DAYS", 30)
		viper.SetDefault("POLICY_LEAD_TIME_DAYS", 7)
		viper.SetDefault("POLICY_SAFETY_DAYS", 7)
		viper.SetDefault("POLICY_REVIEW_DAYS", 14)
		viper.SetDefault("REPORT_STORAGE_ENABLED", false)
		viper.SetDefault("REPORT_STORAGE_REGION", "us-east-1")
		viper.SetDefault("REPORT_STORAGE_USE_SSL", true)
		viper.SetDefault("REPORT_STORAGE_PREFIX", "replenishment/weekly")
		viper.SetDefault("EVENTS_ENABLED", false)
		viper.SetDefault("EVENTS_KAFKA_BROKERS", []string{"localhost:9092"})
		viper.SetDefault("EVENTS_TOPIC", "replenishment-events")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:          viper.GetString("DB_HOST"),
				Port:          viper.GetString("DB_PORT"),
				User:          viper.GetString("DB_USER"),
				Password:      viper.GetString("DB_PASSWORD"),
				DBName:        viper.GetString("DB_NAME"),
				SSLMode:       viper.GetString("DB_SSLMODE"),
				MaxConcurrent: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
			},
			Cache: CacheConfig{
				Enabled:         viper.GetBool("CACHE_ENABLED"),
				RedisURL:        viper.GetString("REDIS_URL"),
				RedisHost:       viper.GetString("REDIS_HOST"),
				RedisPort:       viper.GetString("REDIS_PORT"),
				RedisPassword:   viper.GetString("REDIS_PASSWORD"),
				RedisDB:         viper.GetInt("REDIS_DB"),
				QueryTTLSeconds: viper.GetInt("CACHE_QUERY_TTL_SECONDS"),
			},
			Replenishment: ReplenishmentConfig{
				BatchSize:       viper.GetInt("REPLENISHMENT_BATCH_SIZE"),
				MinADSThreshold: viper.GetFloat64("REPLENISHMENT_MIN_ADS_THRESHOLD"),
				ErrorRecovery:   viper.GetBool("REPLENISHMENT_ERROR_RECOVERY"),
				MaxRetries:      viper.GetInt("REPLENISHMENT_MAX_RETRIES"),
				RetryDelay:      time.Duration(viper.GetInt("REPLENISHMENT_RETRY_DELAY_MS")) * time.Millisecond,
				Workers:         viper.GetInt("REPLENISHMENT_WORKERS"),
				Debug:           viper.GetBool("REPLENISHMENT_DEBUG"),
			},
			Policy: PolicyConfig{
				SalesLookbackDays: viper.GetInt("POLICY_SALES_LOOKBACK_DAYS"),
				LeadTimeDays:      viper.GetFloat64("POLICY_LEAD_TIME_DAYS"),
				SafetyDays:        viper.GetFloat64("POLICY_SAFETY_DAYS"),
				ReviewDays:        viper.GetFloat64("POLICY_REVIEW_DAYS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("REPORT_STORAGE_ENABLED"),
				Endpoint:  viper.GetString("REPORT_STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("REPORT_STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("REPORT_STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("REPORT_STORAGE_BUCKET"),
				Region:    viper.GetString("REPORT_STORAGE_REGION"),
				UseSSL:    viper.GetBool("REPORT_STORAGE_USE_SSL"),
				Prefix:    viper.GetString("REPORT_STORAGE_PREFIX"),
			},
			Events: EventsConfig{
				Enabled: viper.GetBool("EVENTS_ENABLED"),
				Brokers: viper.GetStringSlice("EVENTS_KAFKA_BROKERS"),
				Topic:   viper.GetString("EVENTS_TOPIC"),
			},
		}
	})

	return instance
}
