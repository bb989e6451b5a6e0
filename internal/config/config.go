package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/imagemin/internal/batch"
	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dunamismax/imagemin/internal/prefs"
	"github.com/dunamismax/imagemin/internal/telemetry"
	"github.com/spf13/viper"
)

const envPrefix = "IMAGEMIN"

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Prefs   PrefsConfig   `mapstructure:"prefs"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

type PrefsConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
}

type BatchConfig struct {
	FailurePolicy  string `mapstructure:"failure_policy"`
	DefaultFormat  string `mapstructure:"default_format"`
	DefaultQuality int    `mapstructure:"default_quality"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

type TracingConfig struct {
	Exporter     string `mapstructure:"exporter"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("api.addr", "127.0.0.1:8787")

	v.SetDefault("prefs.backend", prefs.BackendPebble)
	v.SetDefault("prefs.path", defaultPrefsPath())
	v.SetDefault("prefs.database_url", "")

	v.SetDefault("batch.failure_policy", string(batch.PolicyAbort))
	v.SetDefault("batch.default_format", string(domain.ChoiceOriginal))
	v.SetDefault("batch.default_quality", domain.DefaultQuality)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.console", true)

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.otlp_insecure", false)
}

// Load reads defaults, then config.yaml (configPath, or ./ and
// $HOME/.imagemin), then IMAGEMIN_* environment variables.
func Load(configPath string) (Config, error) {
	v := viper.New()
	defaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.imagemin")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	host, _, err := net.SplitHostPort(c.API.Addr)
	if err != nil {
		return fmt.Errorf("invalid api.addr %q: %w", c.API.Addr, err)
	}
	if !isLoopback(host) {
		return fmt.Errorf("api.addr must bind to loopback, got %q", host)
	}

	switch strings.ToLower(c.Prefs.Backend) {
	case prefs.BackendMemory, prefs.BackendPebble:
	case prefs.BackendPostgres:
		if strings.TrimSpace(c.Prefs.DatabaseURL) == "" {
			return errors.New("prefs.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid prefs.backend: %s (valid: memory, pebble, postgres)", c.Prefs.Backend)
	}

	if _, err := batch.ParsePolicy(c.Batch.FailurePolicy); err != nil {
		return err
	}
	if _, err := domain.ParseFormatChoice(c.Batch.DefaultFormat); err != nil {
		return fmt.Errorf("invalid batch.default_format: %w", err)
	}
	if c.Batch.DefaultQuality < domain.MinQuality || c.Batch.DefaultQuality > domain.MaxQuality {
		return fmt.Errorf("invalid batch.default_quality %d: %w", c.Batch.DefaultQuality, domain.ErrInvalidQuality)
	}

	if _, err := telemetry.ParseExporter(c.Tracing.Exporter); err != nil {
		return fmt.Errorf("invalid tracing.exporter: %w", err)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".imagemin", "prefs")
	}
	return filepath.Join(dir, "imagemin", "prefs")
}
