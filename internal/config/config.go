/**
 * @description
 * Configuration management for the ledger service. Uses Viper to read
 * settings from environment variables, with an optional .env file for local
 * development.
 *
 * @dependencies
 * - github.com/spf13/viper: Application configuration.
 */

package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the ledger service.
type Config struct {
	ServerPort         string `mapstructure:"SERVER_PORT"`
	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	RedisURL           string `mapstructure:"REDIS_URL"`
	RateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL        string `mapstructure:"RABBITMQ_URL"`
	TransferEventQueue string `mapstructure:"TRANSFER_EVENT_QUEUE"`
	ReconcileSchedule  string `mapstructure:"RECONCILE_SCHEDULE"`
	LockTimeoutMS      int    `mapstructure:"LOCK_TIMEOUT_MS"`
	TransferRatePerMin int    `mapstructure:"TRANSFER_RATE_LIMIT_PER_MINUTE"`
	DevMode            bool   `mapstructure:"DEV_MODE"`
	SeedCustomers      int    `mapstructure:"SEED_CUSTOMERS"`
}

// LockTimeout returns the bounded wait applied to account locks.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

// LoadConfig reads configuration from environment variables and an optional
// .env file in the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("TRANSFER_EVENT_QUEUE", "ledger.transfer_events")
	viper.SetDefault("RECONCILE_SCHEDULE", "@every 5m")
	viper.SetDefault("LOCK_TIMEOUT_MS", 5000)
	viper.SetDefault("TRANSFER_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("DEV_MODE", false)
	viper.SetDefault("SEED_CUSTOMERS", 0)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TRANSFER_EVENT_QUEUE")
	_ = viper.BindEnv("RECONCILE_SCHEDULE")
	_ = viper.BindEnv("LOCK_TIMEOUT_MS")
	_ = viper.BindEnv("TRANSFER_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("DEV_MODE")
	_ = viper.BindEnv("SEED_CUSTOMERS")

	// The .env file is optional.
	if readErr := viper.ReadInConfig(); readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read config file, using environment values", "err", readErr)
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	config.RateLimitPrefix = strings.TrimSpace(config.RateLimitPrefix)
	if config.RateLimitPrefix == "" {
		config.RateLimitPrefix = "ledger:rate_limit"
	}
	if config.LockTimeoutMS <= 0 {
		config.LockTimeoutMS = 5000
	}
	if config.TransferRatePerMin < 0 {
		config.TransferRatePerMin = 0
	}
	if config.SeedCustomers < 0 {
		config.SeedCustomers = 0
	}

	return
}
