/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables and an
 * optional .env file, providing a centralized way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the service. These values
// are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	SupabaseURL          string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey      string `mapstructure:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret    string `mapstructure:"SUPABASE_JWT_SECRET"`
	SiteBaseURL          string `mapstructure:"SITE_BASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	UserEventsExchange   string `mapstructure:"USER_EVENTS_EXCHANGE"`

	AvailabilityRateLimitPerMinute int `mapstructure:"AVAILABILITY_RATE_LIMIT_PER_MINUTE"`
	RegisterRateLimitPerMinute     int `mapstructure:"REGISTER_RATE_LIMIT_PER_MINUTE"`
}

// ErrMissingStoreConfig is returned when the external store coordinates are
// absent; the service cannot reach auth or data without them.
var ErrMissingStoreConfig = errors.New("SUPABASE_URL and SUPABASE_ANON_KEY must be set")

// LoadConfig reads configuration from environment variables and an optional
// .env file in the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SITE_BASE_URL", "http://localhost:5173")
	viper.SetDefault("USER_EVENTS_EXCHANGE", "user_events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ishuriai:rate_limit")
	viper.SetDefault("AVAILABILITY_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("REGISTER_RATE_LIMIT_PER_MINUTE", 10)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("SUPABASE_URL")
	_ = viper.BindEnv("SUPABASE_ANON_KEY")
	_ = viper.BindEnv("SUPABASE_JWT_SECRET")
	_ = viper.BindEnv("SITE_BASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("USER_EVENTS_EXCHANGE")
	_ = viper.BindEnv("AVAILABILITY_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("REGISTER_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Hosting platforms inject PORT; it wins over SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.SupabaseURL = strings.TrimSpace(strings.TrimSuffix(config.SupabaseURL, "/"))
	config.SupabaseAnonKey = strings.TrimSpace(config.SupabaseAnonKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ishuriai:rate_limit"
	}
	if strings.TrimSpace(config.UserEventsExchange) == "" {
		config.UserEventsExchange = "user_events"
	}
	if config.AvailabilityRateLimitPerMinute <= 0 {
		config.AvailabilityRateLimitPerMinute = 60
	}
	if config.RegisterRateLimitPerMinute <= 0 {
		config.RegisterRateLimitPerMinute = 10
	}

	if config.SupabaseURL == "" || config.SupabaseAnonKey == "" {
		return config, ErrMissingStoreConfig
	}

	return
}
