// Package config provides configuration management for SkyTrace services
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Service identification
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`

	// Anomaly detection settings
	Contamination      float64 `mapstructure:"contamination"`
	RiskAlertThreshold float64 `mapstructure:"risk_alert_threshold"`

	// Geolocation settings
	EnableGeolocation bool   `mapstructure:"enable_geolocation"`
	GeoServiceURL     string `mapstructure:"geo_service_url"`
	GeoMMDBPath       string `mapstructure:"geo_mmdb_path"`

	// Geolocation cache backend: "memory" or "redis"
	GeoCacheBackend string `mapstructure:"geo_cache_backend"`
	RedisURL        string `mapstructure:"redis_url"`
}

// IsProduction returns true when running in a production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Load reads configuration from file and environment variables
func Load(serviceName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/skytrace")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("SKYTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.ServiceName = serviceName

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)

	v.SetDefault("contamination", 0.1)
	v.SetDefault("risk_alert_threshold", 0.7)

	v.SetDefault("enable_geolocation", true)
	v.SetDefault("geo_service_url", "http://ip-api.com/json")
	v.SetDefault("geo_mmdb_path", "")

	v.SetDefault("geo_cache_backend", "memory")
	v.SetDefault("redis_url", "redis://localhost:6379")
}

func validate(cfg *Config) error {
	if cfg.Contamination < 0.01 || cfg.Contamination > 0.3 {
		return fmt.Errorf("contamination must be in [0.01, 0.3], got %g", cfg.Contamination)
	}
	if cfg.RiskAlertThreshold < 0.1 || cfg.RiskAlertThreshold > 1.0 {
		return fmt.Errorf("risk_alert_threshold must be in [0.1, 1.0], got %g", cfg.RiskAlertThreshold)
	}
	if cfg.GeoCacheBackend != "memory" && cfg.GeoCacheBackend != "redis" {
		return fmt.Errorf("geo_cache_backend must be \"memory\" or \"redis\", got %q", cfg.GeoCacheBackend)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535], got %d", cfg.Port)
	}
	return nil
}
