// Package config loads settings from config.yaml, the environment, a .env file
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/yurifrl/brokerfacts/pkg/dialect"
)

const EnvPrefix = "BROKERFACTS"

type YNAB struct {
	Token    string `mapstructure:"token"`
	BudgetID string `mapstructure:"budget_id"`
	// Accounts maps a statement account key to a YNAB account id.
	Accounts map[string]string `mapstructure:"accounts"`
	// Threshold is the smallest difference, in currency units, worth an adjustment.
	Threshold float64 `mapstructure:"threshold"`
}

type Config struct {
	Dialects     []string `mapstructure:"dialects"`
	DialectFiles []string `mapstructure:"dialect_files"`
	Output       string   `mapstructure:"output"`
	Workers      int      `mapstructure:"workers"`
	LogLevel     string   `mapstructure:"log_level"`
	XLSCharset   string   `mapstructure:"xls_charset"`
	DatabaseURL  string   `mapstructure:"database_url"`
	Addr         string   `mapstructure:"addr"`
	CacheDir     string   `mapstructure:"cache_dir"`
	YNAB         YNAB     `mapstructure:"ynab"`
}

// flagKeys maps config keys to the flag names that override them.
var flagKeys = map[string]string{
	"dialects":      "dialect",
	"dialect_files": "dialect-file",
	"output":        "output",
	"workers":       "workers",
	"log_level":     "log-level",
	"xls_charset":   "xls-charset",
	"database_url":  "database-url",
	"addr":          "addr",
	"cache_dir":     "cache-dir",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "table")
	v.SetDefault("workers", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("xls_charset", "cp1252")
	v.SetDefault("addr", ":8080")
	v.SetDefault("cache_dir", "output")
	v.SetDefault("ynab.threshold", 0.01)
}

// Build reads configuration. cfgFile may be empty, in which case config.yaml is
// looked up in the working directory and $HOME/.config/brokerfacts; a missing
// file is not an error. flags may be nil.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/brokerfacts")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// nested keys are only resolved from the environment once bound
	for _, key := range []string{"ynab.token", "ynab.budget_id", "ynab.threshold"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return &c, nil
}

// Logger builds the process logger at the configured level.
func (c *Config) Logger(prefix string) *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    level == log.DebugLevel,
		Prefix:          prefix,
		Level:           level,
	})
}

// Registry returns the builtin dialects plus every configured dialect file.
func (c *Config) Registry() (*dialect.Registry, error) {
	reg := dialect.Builtin()
	for _, path := range c.DialectFiles {
		p, err := dialect.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Profiles resolves the configured dialect names. No names selects every
// registered dialect, builtins first.
func (c *Config) Profiles() ([]*dialect.Profile, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	return reg.Select(c.Dialects)
}
