/*
Package config manages TOML config for the wikigram build and serve tools.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/mkthr/wikigram/internal/utils"
)

// Config holds the entire config structure.
type Config struct {
	Build BuildConfig `toml:"build"`
	Serve ServeConfig `toml:"serve"`
}

// BuildConfig holds the corpus-to-artifact pipeline options.
type BuildConfig struct {
	MaxNgramOrder      int    `toml:"max_ngram_order"`
	MinFrequencyCutoff uint64 `toml:"min_frequency_cutoff"`
	MemoryBudget       int64  `toml:"memory_budget"`
	Workers            int    `toml:"workers"`
	SpillDir           string `toml:"spill_dir"`
	OutputPath         string `toml:"output_path"`
	ScoreScheme        string `toml:"score_scheme"` // "count" or "log"
}

// ServeConfig holds query engine options.
type ServeConfig struct {
	MaxLimit      int    `toml:"max_limit"`
	MinPrefix     int    `toml:"min_prefix"`
	HotMinCount   uint64 `toml:"hot_min_count"`
	HotMaxEntries int    `toml:"hot_max_entries"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			MaxNgramOrder:      3,
			MinFrequencyCutoff: 2,
			MemoryBudget:       256 << 20,
			Workers:            0, // 0 means NumCPU
			SpillDir:           "",
			OutputPath:         "output/wiki-ngrams.wgfs",
			ScoreScheme:        "log",
		},
		Serve: ServeConfig{
			MaxLimit:      64,
			MinPrefix:     1,
			HotMinCount:   50,
			HotMaxEntries: 100000,
		},
	}
}

// EffectiveWorkers resolves the worker count, treating 0 as NumCPU.
func (c BuildConfig) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Validate checks the build section for values the pipeline cannot run with.
func (c BuildConfig) Validate() error {
	if c.MaxNgramOrder < 1 {
		return fmt.Errorf("max_ngram_order must be positive, got %d", c.MaxNgramOrder)
	}
	if c.MemoryBudget < 0 {
		return fmt.Errorf("memory_budget must be non-negative, got %d", c.MemoryBudget)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output_path must be set")
	}
	switch c.ScoreScheme {
	case "count", "log":
	default:
		return fmt.Errorf("score_scheme must be \"count\" or \"log\", got %q", c.ScoreScheme)
	}
	return nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/wikigram
// 2. Current executable dir
// 3. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "wikigram")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/wikigram/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using builtin defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing.
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using builtin defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := utils.SaveTOMLFile(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using builtin defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file, falling back to partial recovery on
// parse errors so one bad key does not discard the whole file.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if buildSection, ok := utils.ExtractSection(tempConfig, "build"); ok {
		extractBuildConfig(buildSection, &config.Build)
	}
	if serveSection, ok := utils.ExtractSection(tempConfig, "serve"); ok {
		extractServeConfig(serveSection, &config.Serve)
	}
	return config, nil
}

func extractBuildConfig(data map[string]any, build *BuildConfig) {
	if val, ok := utils.ExtractInt64(data, "max_ngram_order"); ok {
		build.MaxNgramOrder = val
	}
	if val, ok := utils.ExtractInt64(data, "min_frequency_cutoff"); ok && val >= 0 {
		build.MinFrequencyCutoff = uint64(val)
	}
	if val, ok := utils.ExtractInt64(data, "memory_budget"); ok {
		build.MemoryBudget = int64(val)
	}
	if val, ok := utils.ExtractInt64(data, "workers"); ok {
		build.Workers = val
	}
	if val, ok := utils.ExtractString(data, "spill_dir"); ok {
		build.SpillDir = val
	}
	if val, ok := utils.ExtractString(data, "output_path"); ok {
		build.OutputPath = val
	}
	if val, ok := utils.ExtractString(data, "score_scheme"); ok {
		build.ScoreScheme = val
	}
}

func extractServeConfig(data map[string]any, serve *ServeConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		serve.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		serve.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "hot_min_count"); ok && val >= 0 {
		serve.HotMinCount = uint64(val)
	}
	if val, ok := utils.ExtractInt64(data, "hot_max_entries"); ok {
		serve.HotMaxEntries = val
	}
}
