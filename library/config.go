package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Storage backends selectable through the "backend" setting.
const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

// Config is the runtime configuration shared by the library binaries.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	Backend  string `mapstructure:"backend"`
	Database string `mapstructure:"database"`
	LogLevel string `mapstructure:"log_level"`
}

// SetConfigDefaults registers defaults and environment binding on v.
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("backend", BackendText)
	v.SetDefault("database", "library.db")
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix("LIBRARY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// LoadConfig reads cfgFile, or library.yaml from the working directory when
// cfgFile is empty; a missing default file is not an error.
func LoadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	SetConfigDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("library")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	switch cfg.Backend {
	case BackendText, BackendSQLite:
	default:
		return Config{}, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, BackendText, BackendSQLite)
	}
	return cfg, nil
}

// DatabasePath resolves the SQLite file relative to the data directory.
func (c Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.DataDir, c.Database)
}

// OpenPersister builds the storage backend named by the config.
func OpenPersister(cfg Config, logger *zap.Logger) (Persister, error) {
	if cfg.Backend == BackendSQLite {
		return NewDatabase(cfg.DatabasePath(), logger)
	}
	return NewFlatFiles(cfg.DataDir, logger), nil
}

// NewLogger returns a console logger on stderr at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
