package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
	Providers  ProvidersConfig
	Cache      CacheConfig
	Lookup     LookupConfig
	Bulk       BulkConfig
}

type AppConfig struct {
	Env  string
	Port int
	Host string
}

type ClickHouseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Enabled  bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ProvidersConfig struct {
	VirusTotalKey string
	AbuseIPDBKey  string
	OTXKey        string
	URLhausKey    string
	ThreatFoxKey  string
}

type CacheConfig struct {
	TTLIP     time.Duration
	TTLDomain time.Duration
	TTLURL    time.Duration
	TTLHash   time.Duration
}

type LookupConfig struct {
	OverallTimeout  time.Duration
	ProviderTimeout time.Duration
}

type BulkConfig struct {
	Workers       int
	RatePerSecond float64
	MaxItems      int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/etc/flashthreat")

	viper.AutomaticEnv()
	bindEnvVars()
	setDefaults()

	// Config file is optional
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	}

	config := &Config{
		App: AppConfig{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetInt("APP_PORT"),
			Host: viper.GetString("APP_HOST"),
		},
		ClickHouse: ClickHouseConfig{
			Host:     viper.GetString("CLICKHOUSE_HOST"),
			Port:     viper.GetInt("CLICKHOUSE_PORT"),
			User:     viper.GetString("CLICKHOUSE_USER"),
			Password: viper.GetString("CLICKHOUSE_PASSWORD"),
			Database: viper.GetString("CLICKHOUSE_DATABASE"),
			Enabled:  viper.GetBool("CLICKHOUSE_ENABLED"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Providers: ProvidersConfig{
			VirusTotalKey: viper.GetString("VIRUSTOTAL_API_KEY"),
			AbuseIPDBKey:  viper.GetString("ABUSEIPDB_API_KEY"),
			OTXKey:        viper.GetString("OTX_API_KEY"),
			URLhausKey:    viper.GetString("URLHAUS_API_KEY"),
			ThreatFoxKey:  viper.GetString("THREATFOX_API_KEY"),
		},
		Cache: CacheConfig{
			TTLIP:     viper.GetDuration("CACHE_TTL_IP"),
			TTLDomain: viper.GetDuration("CACHE_TTL_DOMAIN"),
			TTLURL:    viper.GetDuration("CACHE_TTL_URL"),
			TTLHash:   viper.GetDuration("CACHE_TTL_HASH"),
		},
		Lookup: LookupConfig{
			OverallTimeout:  viper.GetDuration("LOOKUP_TIMEOUT"),
			ProviderTimeout: viper.GetDuration("PROVIDER_TIMEOUT"),
		},
		Bulk: BulkConfig{
			Workers:       viper.GetInt("BULK_WORKERS"),
			RatePerSecond: viper.GetFloat64("BULK_RATE_LIMIT"),
			MaxItems:      viper.GetInt("BULK_MAX_ITEMS"),
		},
	}

	return config, nil
}

func bindEnvVars() {
	// App
	viper.BindEnv("APP_ENV")
	viper.BindEnv("APP_PORT")
	viper.BindEnv("APP_HOST")

	// ClickHouse
	viper.BindEnv("CLICKHOUSE_HOST")
	viper.BindEnv("CLICKHOUSE_PORT")
	viper.BindEnv("CLICKHOUSE_USER")
	viper.BindEnv("CLICKHOUSE_PASSWORD")
	viper.BindEnv("CLICKHOUSE_DATABASE")
	viper.BindEnv("CLICKHOUSE_ENABLED")

	// Redis
	viper.BindEnv("REDIS_ADDR")
	viper.BindEnv("REDIS_PASSWORD")
	viper.BindEnv("REDIS_DB")

	// Providers
	viper.BindEnv("VIRUSTOTAL_API_KEY")
	viper.BindEnv("ABUSEIPDB_API_KEY")
	viper.BindEnv("OTX_API_KEY")
	viper.BindEnv("URLHAUS_API_KEY")
	viper.BindEnv("THREATFOX_API_KEY")

	// Cache TTLs
	viper.BindEnv("CACHE_TTL_IP")
	viper.BindEnv("CACHE_TTL_DOMAIN")
	viper.BindEnv("CACHE_TTL_URL")
	viper.BindEnv("CACHE_TTL_HASH")

	// Lookup
	viper.BindEnv("LOOKUP_TIMEOUT")
	viper.BindEnv("PROVIDER_TIMEOUT")

	// Bulk
	viper.BindEnv("BULK_WORKERS")
	viper.BindEnv("BULK_RATE_LIMIT")
	viper.BindEnv("BULK_MAX_ITEMS")
}

func setDefaults() {
	// App defaults
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_HOST", "0.0.0.0")

	// ClickHouse defaults
	viper.SetDefault("CLICKHOUSE_HOST", "localhost")
	viper.SetDefault("CLICKHOUSE_PORT", 9000)
	viper.SetDefault("CLICKHOUSE_USER", "flashthreat")
	viper.SetDefault("CLICKHOUSE_DATABASE", "flashthreat")
	viper.SetDefault("CLICKHOUSE_ENABLED", false)

	// Redis defaults (empty addr means in-memory cache)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_DB", 0)

	// Cache TTL defaults
	viper.SetDefault("CACHE_TTL_IP", 30*time.Minute)
	viper.SetDefault("CACHE_TTL_DOMAIN", 2*time.Hour)
	viper.SetDefault("CACHE_TTL_URL", time.Hour)
	viper.SetDefault("CACHE_TTL_HASH", 24*time.Hour)

	// Lookup defaults
	viper.SetDefault("LOOKUP_TIMEOUT", 15*time.Second)
	viper.SetDefault("PROVIDER_TIMEOUT", 10*time.Second)

	// Bulk defaults
	viper.SetDefault("BULK_WORKERS", 4)
	viper.SetDefault("BULK_RATE_LIMIT", 8.0)
	viper.SetDefault("BULK_MAX_ITEMS", 1000)
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func SetupLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
