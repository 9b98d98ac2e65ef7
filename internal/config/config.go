// Package config loads ripple settings from .ripple.yaml, RIPPLE_* environment
// variables and built-in defaults, in that order of precedence from lowest to
// highest: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/skelly-dev/ripple/internal/resolve"
	"github.com/skelly-dev/ripple/internal/snapshot"
)

const (
	FileName  = ".ripple"
	EnvPrefix = "RIPPLE"
)

type Config struct {
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Resolver ResolverConfig `json:"resolver" mapstructure:"resolver"`
	Extract  ExtractConfig  `json:"extract" mapstructure:"extract"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Snapshot SnapshotConfig `json:"snapshot" mapstructure:"snapshot"`
}

// AnalysisConfig holds the thresholds and search bounds of the analyses.
type AnalysisConfig struct {
	HighFanIn        int `json:"highFanIn" mapstructure:"highFanIn"`
	BreakingFanIn    int `json:"breakingFanIn" mapstructure:"breakingFanIn"`
	MaxDepth         int `json:"maxDepth" mapstructure:"maxDepth"`
	HubCount         int `json:"hubCount" mapstructure:"hubCount"`
	MaxCriticalPaths int `json:"maxCriticalPaths" mapstructure:"maxCriticalPaths"`
	MaxPathsPerPair  int `json:"maxPathsPerPair" mapstructure:"maxPathsPerPair"`
	MaxPathLength    int `json:"maxPathLength" mapstructure:"maxPathLength"`
	MaxSearchSteps   int `json:"maxSearchSteps" mapstructure:"maxSearchSteps"`
}

type ResolverConfig struct {
	Suffixes []string `json:"suffixes" mapstructure:"suffixes"`
}

type ExtractConfig struct {
	// Workers bounds parallel parsing; 0 means one per CPU.
	Workers int      `json:"workers" mapstructure:"workers"`
	Ignore  []string `json:"ignore" mapstructure:"ignore"`
}

type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

type SnapshotConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			HighFanIn:        5,
			BreakingFanIn:    10,
			MaxDepth:         5,
			HubCount:         5,
			MaxCriticalPaths: 5,
			MaxPathsPerPair:  64,
			MaxPathLength:    24,
			MaxSearchSteps:   200000,
		},
		Resolver: ResolverConfig{Suffixes: append([]string(nil), resolve.DefaultSuffixes...)},
		Extract:  ExtractConfig{Workers: 0},
		Logging:  LoggingConfig{Level: "warn", Format: "human"},
		Snapshot: SnapshotConfig{Path: snapshot.DefaultPath},
	}
}

// Load reads configuration for the project at root. When explicitPath is set it
// must exist; otherwise .ripple.{yaml,yml,json,toml} in root is optional.
func Load(root, explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("analysis.highFanIn", d.Analysis.HighFanIn)
	v.SetDefault("analysis.breakingFanIn", d.Analysis.BreakingFanIn)
	v.SetDefault("analysis.maxDepth", d.Analysis.MaxDepth)
	v.SetDefault("analysis.hubCount", d.Analysis.HubCount)
	v.SetDefault("analysis.maxCriticalPaths", d.Analysis.MaxCriticalPaths)
	v.SetDefault("analysis.maxPathsPerPair", d.Analysis.MaxPathsPerPair)
	v.SetDefault("analysis.maxPathLength", d.Analysis.MaxPathLength)
	v.SetDefault("analysis.maxSearchSteps", d.Analysis.MaxSearchSteps)
	v.SetDefault("resolver.suffixes", d.Resolver.Suffixes)
	v.SetDefault("extract.workers", d.Extract.Workers)
	v.SetDefault("extract.ignore", d.Extract.Ignore)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("snapshot.path", d.Snapshot.Path)
}

// SnapshotPath resolves the snapshot location against root.
func (c *Config) SnapshotPath(root string) string {
	if filepath.IsAbs(c.Snapshot.Path) {
		return c.Snapshot.Path
	}
	return filepath.Join(root, c.Snapshot.Path)
}

// Validate checks that every threshold is usable.
func (c *Config) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"analysis.breakingFanIn", c.Analysis.BreakingFanIn},
		{"analysis.hubCount", c.Analysis.HubCount},
		{"analysis.maxCriticalPaths", c.Analysis.MaxCriticalPaths},
		{"analysis.maxPathsPerPair", c.Analysis.MaxPathsPerPair},
		{"analysis.maxSearchSteps", c.Analysis.MaxSearchSteps},
	}
	for _, p := range positive {
		if p.value < 1 {
			return &ConfigError{Field: p.field, Message: "must be at least 1"}
		}
	}
	if c.Analysis.HighFanIn < 0 {
		return &ConfigError{Field: "analysis.highFanIn", Message: "must not be negative"}
	}
	if c.Analysis.MaxDepth < 0 {
		return &ConfigError{Field: "analysis.maxDepth", Message: "must not be negative"}
	}
	if c.Analysis.MaxPathLength < 2 {
		return &ConfigError{Field: "analysis.maxPathLength", Message: "must be at least 2"}
	}
	if c.Extract.Workers < 0 {
		return &ConfigError{Field: "extract.workers", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	if strings.TrimSpace(c.Snapshot.Path) == "" {
		return &ConfigError{Field: "snapshot.path", Message: "must not be empty"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
