// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/flowinspectord/main.go)
//  2. Environment variables (FLOWINSPECT_ prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// Environment variables are mapped from FLOWINSPECT_CATEGORY_SETTING format,
// e.g., FLOWINSPECT_ADMIN_PORT maps to admin.port in YAML.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Uses FLOWINSPECT_ prefix: FLOWINSPECT_ADMIN_PORT -> admin.port
	v.SetEnvPrefix("FLOWINSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.dns_cache_capacity", 2048)
	v.SetDefault("engine.reverse_index_persist", true)

	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 8099)
	v.SetDefault("admin.api_key", "")

	v.SetDefault("store.path", "flowinspect.db")

	v.SetDefault("clustersync.mode", string(ClusterStandalone))
	v.SetDefault("clustersync.primary_url", "")
	v.SetDefault("clustersync.poll_interval", "30s")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	loadEngineConfig(v, cfg)
	loadAdminConfig(v, cfg)
	loadStoreConfig(v, cfg)
	loadClusterSyncConfig(v, cfg)
	loadLoggingConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEngineConfig(v *viper.Viper, cfg *Config) {
	cfg.Engine.DNSCacheCapacity = v.GetInt("engine.dns_cache_capacity")
	cfg.Engine.ReverseIndexPersist = v.GetBool("engine.reverse_index_persist")
}

func loadAdminConfig(v *viper.Viper, cfg *Config) {
	cfg.Admin.Host = v.GetString("admin.host")
	cfg.Admin.Port = v.GetInt("admin.port")
	cfg.Admin.APIKey = v.GetString("admin.api_key")
}

func loadStoreConfig(v *viper.Viper, cfg *Config) {
	cfg.Store.Path = v.GetString("store.path")
}

func loadClusterSyncConfig(v *viper.Viper, cfg *Config) {
	cfg.ClusterSync.Mode = ClusterSyncMode(strings.ToLower(v.GetString("clustersync.mode")))
	cfg.ClusterSync.PrimaryURL = v.GetString("clustersync.primary_url")
	cfg.ClusterSync.PollInterval = v.GetString("clustersync.poll_interval")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Engine.DNSCacheCapacity <= 0 {
		cfg.Engine.DNSCacheCapacity = 2048
	}

	if cfg.Admin.Host == "" {
		cfg.Admin.Host = "127.0.0.1"
	}
	if cfg.Admin.Port <= 0 || cfg.Admin.Port > 65535 {
		return errors.New("admin.port must be 1..65535")
	}

	switch cfg.ClusterSync.Mode {
	case ClusterStandalone, ClusterPrimary, ClusterSecondary:
	case "":
		cfg.ClusterSync.Mode = ClusterStandalone
	default:
		return fmt.Errorf("clustersync.mode must be one of standalone|primary|secondary, got %q", cfg.ClusterSync.Mode)
	}
	if cfg.ClusterSync.Mode == ClusterSecondary && cfg.ClusterSync.PrimaryURL == "" {
		return errors.New("clustersync.primary_url is required when clustersync.mode is secondary")
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}

	return nil
}
