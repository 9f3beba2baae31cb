package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Pipeline
	InputPath     string `mapstructure:"input_path" yaml:"input_path"`
	OutputPath    string `mapstructure:"output_path" yaml:"output_path"`
	Seed          uint64 `mapstructure:"seed" yaml:"seed"`
	WriteManifest bool   `mapstructure:"write_manifest" yaml:"write_manifest"`

	// Dashboard
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

const dirName = ".churnlens"

// Defaults returns the built-in configuration.
func Defaults() Global {
	return Global{
		InputPath:     "WA_Fn-UseC_-Telco-Customer-Churn.csv",
		OutputPath:    "professional_churn_dataset.csv",
		Seed:          42,
		WriteManifest: true,
		PreviewRows:   50,
		ListenAddr:    "127.0.0.1:8501",
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// DefaultPath returns ~/.churnlens/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.churnlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by callers.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CHURNLENS")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("input_path", d.InputPath)
	v.SetDefault("output_path", d.OutputPath)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("write_manifest", d.WriteManifest)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = d.PreviewRows
	}
	return &c, nil
}
