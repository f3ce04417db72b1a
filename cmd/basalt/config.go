package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the basalt configuration file (~/.config/basalt/config.yaml).
// Numeric fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Toy model shape defaults
	DType   string `yaml:"dtype"`
	Vocab   *int64 `yaml:"vocab"`
	Heads   *int64 `yaml:"heads"`
	KVHeads *int64 `yaml:"kv_heads"`
	HeadDim *int64 `yaml:"head_dim"`
	Steps   *int64 `yaml:"steps"`
	Seed    *int64 `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "basalt", "config.yaml")
}

// applyModelConfig applies config file defaults to the shared model flags
// when the corresponding CLI flag was not explicitly set. steps may be nil
// for commands without a --steps flag.
func applyModelConfig(c *cli.Command, cfg Config, steps *int64) {
	if cfg.DType != "" && !c.IsSet("dtype") {
		dtypeName = cfg.DType
	}
	if cfg.Vocab != nil && !c.IsSet("vocab") {
		vocab = *cfg.Vocab
	}
	if cfg.Heads != nil && !c.IsSet("heads") {
		heads = *cfg.Heads
	}
	if cfg.KVHeads != nil && !c.IsSet("kv-heads") {
		kvHeads = *cfg.KVHeads
	}
	if cfg.HeadDim != nil && !c.IsSet("head-dim") {
		headDim = *cfg.HeadDim
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
	if cfg.Steps != nil && steps != nil && !c.IsSet("steps") {
		*steps = *cfg.Steps
	}
}

// applyLogConfig applies config file defaults to the logging flags.
func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
