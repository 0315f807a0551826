package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv    string
	Redis     RedisConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Track     TrackConfig
	Analytics AnalyticsConfig
	NATS      NATSConfig
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	Addr         string
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CacheAdminToken string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	MaxConnIdleTime time.Duration
	AutoMigrate     bool
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type TrackConfig struct {
	DedupWindow          time.Duration
	LinkCacheTTL         time.Duration
	HostnamesTTL         time.Duration
	HostnamesTimeout     time.Duration
	LinkLookupTimeout    time.Duration
	CacheWriteTimeout    time.Duration
	DevClientIP          string
	AllowlistSettingsURL string
	BackgroundTimeout    time.Duration
}

type AnalyticsConfig struct {
	Sink         string
	MaxAttempts  int
	RetryBackoff time.Duration
}

type NATSConfig struct {
	URL     string
	Stream  string
	Subject string
	Durable string
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", "development")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	viper.SetDefault("CACHE_ADMIN_TOKEN", "")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 20)
	viper.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	viper.SetDefault("REDIS_MAX_RETRIES", 2)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "root")
	viper.SetDefault("DB_PASSWORD", "root")
	viper.SetDefault("DB_NAME", "clicktracker")
	viper.SetDefault("DB_MAX_CONNS", 20)
	viper.SetDefault("DB_MIN_CONNS", 2)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_MAX_CONN_IDLE_TIME", "5m")
	viper.SetDefault("DB_AUTO_MIGRATE", true)

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_OUTPUT_PATH", "")
	viper.SetDefault("LOG_MAX_SIZE", 100)
	viper.SetDefault("LOG_MAX_BACKUPS", 3)
	viper.SetDefault("LOG_MAX_AGE", 28)
	viper.SetDefault("LOG_COMPRESS", true)

	viper.SetDefault("TRACK_DEDUP_WINDOW", "1h")
	viper.SetDefault("TRACK_LINK_CACHE_TTL", "24h")
	viper.SetDefault("TRACK_HOSTNAMES_TTL", "1h")
	viper.SetDefault("TRACK_HOSTNAMES_TIMEOUT", "2s")
	viper.SetDefault("TRACK_LINK_LOOKUP_TIMEOUT", "2s")
	viper.SetDefault("TRACK_CACHE_WRITE_TIMEOUT", "2s")
	viper.SetDefault("TRACK_DEV_CLIENT_IP", "127.0.0.1")
	viper.SetDefault("TRACK_ALLOWLIST_SETTINGS_URL", "https://app.dub.co/settings/analytics")
	viper.SetDefault("TRACK_BACKGROUND_TIMEOUT", "10s")

	viper.SetDefault("ANALYTICS_SINK", "postgres")
	viper.SetDefault("ANALYTICS_MAX_ATTEMPTS", 3)
	viper.SetDefault("ANALYTICS_RETRY_BACKOFF", "100ms")

	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("NATS_STREAM", "CLICKS")
	viper.SetDefault("NATS_SUBJECT", "clicks.recorded")
	viper.SetDefault("NATS_DURABLE", "click-ingest")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, using default values")
	}

	redisConfig := RedisConfig{
		Host:         viper.GetString("REDIS_HOST"),
		Port:         viper.GetString("REDIS_PORT"),
		Password:     viper.GetString("REDIS_PASSWORD"),
		DB:           viper.GetInt("REDIS_DB"),
		PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
		MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
		MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
	}

	redisConfig.Addr = fmt.Sprintf("%s:%s", redisConfig.Host, redisConfig.Port)

	dbConfig := DatabaseConfig{
		Host:            viper.GetString("DB_HOST"),
		Port:            viper.GetString("DB_PORT"),
		User:            viper.GetString("DB_USER"),
		Password:        viper.GetString("DB_PASSWORD"),
		Name:            viper.GetString("DB_NAME"),
		MaxConns:        viper.GetInt("DB_MAX_CONNS"),
		MinConns:        viper.GetInt("DB_MIN_CONNS"),
		ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
		MaxConnIdleTime: viper.GetDuration("DB_MAX_CONN_IDLE_TIME"),
		AutoMigrate:     viper.GetBool("DB_AUTO_MIGRATE"),
	}

	dbConfig.URL = viper.GetString("DATABASE_URL")
	if dbConfig.URL == "" {
		dbConfig.URL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			dbConfig.User,
			dbConfig.Password,
			dbConfig.Host,
			dbConfig.Port,
			dbConfig.Name,
		)
	}

	cfg := &Config{
		AppEnv: viper.GetString("APP_ENV"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    viper.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: viper.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			CacheAdminToken: viper.GetString("CACHE_ADMIN_TOKEN"),
		},
		Redis:    redisConfig,
		Database: dbConfig,
		Log: LogConfig{
			Level:      viper.GetString("LOG_LEVEL"),
			Format:     viper.GetString("LOG_FORMAT"),
			OutputPath: viper.GetString("LOG_OUTPUT_PATH"),
			MaxSize:    viper.GetInt("LOG_MAX_SIZE"),
			MaxBackups: viper.GetInt("LOG_MAX_BACKUPS"),
			MaxAge:     viper.GetInt("LOG_MAX_AGE"),
			Compress:   viper.GetBool("LOG_COMPRESS"),
		},
		Track: TrackConfig{
			DedupWindow:          viper.GetDuration("TRACK_DEDUP_WINDOW"),
			LinkCacheTTL:         viper.GetDuration("TRACK_LINK_CACHE_TTL"),
			HostnamesTTL:         viper.GetDuration("TRACK_HOSTNAMES_TTL"),
			HostnamesTimeout:     viper.GetDuration("TRACK_HOSTNAMES_TIMEOUT"),
			LinkLookupTimeout:    viper.GetDuration("TRACK_LINK_LOOKUP_TIMEOUT"),
			CacheWriteTimeout:    viper.GetDuration("TRACK_CACHE_WRITE_TIMEOUT"),
			DevClientIP:          viper.GetString("TRACK_DEV_CLIENT_IP"),
			AllowlistSettingsURL: viper.GetString("TRACK_ALLOWLIST_SETTINGS_URL"),
			BackgroundTimeout:    viper.GetDuration("TRACK_BACKGROUND_TIMEOUT"),
		},
		Analytics: AnalyticsConfig{
			Sink:         viper.GetString("ANALYTICS_SINK"),
			MaxAttempts:  viper.GetInt("ANALYTICS_MAX_ATTEMPTS"),
			RetryBackoff: viper.GetDuration("ANALYTICS_RETRY_BACKOFF"),
		},
		NATS: NATSConfig{
			URL:     viper.GetString("NATS_URL"),
			Stream:  viper.GetString("NATS_STREAM"),
			Subject: viper.GetString("NATS_SUBJECT"),
			Durable: viper.GetString("NATS_DURABLE"),
		},
	}

	if cfg.Analytics.Sink != "postgres" && cfg.Analytics.Sink != "nats" {
		return nil, fmt.Errorf("unsupported ANALYTICS_SINK %q", cfg.Analytics.Sink)
	}

	return cfg, nil
}
