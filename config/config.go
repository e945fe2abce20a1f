package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // scheduler.timezone must resolve in images without a zoneinfo db

	"github.com/spf13/viper"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	LevelDB   LevelDBConfig   `mapstructure:"leveldb"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Accrual   AccrualConfig   `mapstructure:"accrual"`
	Store     StoreConfig     `mapstructure:"store"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	AppLogFile string `mapstructure:"app_log_file"`
	Level      string `mapstructure:"level"`
}

type LevelDBConfig struct {
	Path string `mapstructure:"path"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Timezone string `mapstructure:"timezone"`
}

type AccrualConfig struct {
	Workers int `mapstructure:"workers"`
}

type StoreConfig struct {
	BulkReadTimeout time.Duration `mapstructure:"bulk_read_timeout"`
}

// Location resolves the scheduler timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("leveldb.path", "data/participants")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("accrual.workers", 8)
	v.SetDefault("store.bulk_read_timeout", 30*time.Second)
}

// Load reads the YAML file at path, if present, with MLM_* environment
// variables taking precedence (MLM_SERVER_PORT overrides server.port).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MLM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.LevelDB.Path == "" {
		return errors.New("leveldb.path is required")
	}
	if c.Accrual.Workers <= 0 {
		return errors.New("accrual.workers must be positive")
	}
	if c.Store.BulkReadTimeout <= 0 {
		return errors.New("store.bulk_read_timeout must be positive")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	return nil
}
