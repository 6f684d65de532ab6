// Package config loads flowinspectord's configuration from a YAML file with
// environment-variable overrides, using Viper exactly as the teacher
// repo's config package does: defaults set first, then a config file, then
// FLOWINSPECT_-prefixed environment variables taking highest priority.
package config

import (
	"os"
	"strings"
)

// EngineConfig tunes the in-process flow.Engine.
type EngineConfig struct {
	DNSCacheCapacity    int  `yaml:"dns_cache_capacity"    mapstructure:"dns_cache_capacity"`
	ReverseIndexPersist bool `yaml:"reverse_index_persist" mapstructure:"reverse_index_persist"`
}

// AdminConfig controls the admin/introspection HTTP API.
type AdminConfig struct {
	Host   string `yaml:"host"    mapstructure:"host"`
	Port   int    `yaml:"port"    mapstructure:"port"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// StoreConfig controls the optional SQLite domain-observation store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ClusterSyncMode selects whether flowinspectord shares reverse-index
// state with peers, and in which role.
type ClusterSyncMode string

const (
	ClusterStandalone ClusterSyncMode = "standalone"
	ClusterPrimary    ClusterSyncMode = "primary"
	ClusterSecondary  ClusterSyncMode = "secondary"
)

// ClusterSyncConfig controls internal/clustersync.
type ClusterSyncConfig struct {
	Mode         ClusterSyncMode `yaml:"mode"          mapstructure:"mode"`
	PrimaryURL   string          `yaml:"primary_url"   mapstructure:"primary_url"`
	PollInterval string          `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// LoggingConfig controls internal/logging.
type LoggingConfig struct {
	Level      string `yaml:"level"      mapstructure:"level"`
	Structured bool   `yaml:"structured" mapstructure:"structured"`
}

// Config is the root configuration structure.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"      mapstructure:"engine"`
	Admin       AdminConfig       `yaml:"admin"       mapstructure:"admin"`
	Store       StoreConfig       `yaml:"store"       mapstructure:"store"`
	ClusterSync ClusterSyncConfig `yaml:"clustersync" mapstructure:"clustersync"`
	Logging     LoggingConfig     `yaml:"logging"     mapstructure:"logging"`
}

// ResolveConfigPath determines the config file path from a flag value or
// the FLOWINSPECT_CONFIG environment variable, flag taking priority.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("FLOWINSPECT_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file (optional) with environment
// variable overrides. This is the package's main entry point.
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
