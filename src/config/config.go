// Package config loads the YAML configuration, applies .env and environment
// overrides and sets up logging.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreDir    = "dir"
	StoreRedis  = "redis"
)

// EnvPrefix prefixes every environment override, e.g. SENTIMENT_STORE_TYPE.
const EnvPrefix = "SENTIMENT_"

type StoreConfig struct {
	Type          string `yaml:"type"`
	Dir           string `yaml:"dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

// TTL returns the redis expiry; zero keeps values forever.
func (s StoreConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

type MQConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Queue       string `yaml:"queue"`
	ResultQueue string `yaml:"result_queue"`
}

type WatchConfig struct {
	Dir        string `yaml:"dir"`
	DebounceMs int    `yaml:"debounce_ms"`
}

// Config struct for YAML config file
type Config struct {
	LogDir            string      `yaml:"log_dir"`
	LogLevel          string      `yaml:"log_level"`
	TopN              int         `yaml:"top_n"`
	Tiers             int         `yaml:"tiers"`
	Partitions        int         `yaml:"partitions"`
	KeywordFilterFile string      `yaml:"keyword_filter_file"`
	Store             StoreConfig `yaml:"store"`
	MQ                MQConfig    `yaml:"mq"`
	Watch             WatchConfig `yaml:"watch"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		TopN:       5,
		Partitions: 1,
		Store: StoreConfig{
			Type:      StoreDir,
			Dir:       ".sentiment",
			RedisAddr: "localhost:6379",
			KeyPrefix: "sentiment:",
		},
		MQ: MQConfig{
			Host:        "localhost",
			Port:        5672,
			Username:    "guest",
			Password:    "guest",
			Queue:       "exports_in",
			ResultQueue: "dashboards_out",
		},
		Watch: WatchConfig{DebounceMs: 500},
	}
}

// Load reads the YAML file at path over the defaults, then applies overrides from
// a .env file next to the working directory and from the environment. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}

	str("LOG_DIR", &c.LogDir)
	str("LOG_LEVEL", &c.LogLevel)
	num("TOP_N", &c.TopN)
	num("TIERS", &c.Tiers)
	num("PARTITIONS", &c.Partitions)
	str("KEYWORD_FILTER_FILE", &c.KeywordFilterFile)
	str("STORE_TYPE", &c.Store.Type)
	str("STORE_DIR", &c.Store.Dir)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	num("REDIS_DB", &c.Store.RedisDB)
	str("KEY_PREFIX", &c.Store.KeyPrefix)
	num("TTL_SECONDS", &c.Store.TTLSeconds)
	str("MQ_HOST", &c.MQ.Host)
	num("MQ_PORT", &c.MQ.Port)
	str("MQ_USERNAME", &c.MQ.Username)
	str("MQ_PASSWORD", &c.MQ.Password)
	str("MQ_QUEUE", &c.MQ.Queue)
	str("MQ_RESULT_QUEUE", &c.MQ.ResultQueue)
	str("WATCH_DIR", &c.Watch.Dir)
	num("WATCH_DEBOUNCE_MS", &c.Watch.DebounceMs)

	return errors.Join(errs...)
}

// Validate checks the settings every command relies on. Queue and watch settings
// are checked by the commands that use them.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.TopN < 0 {
		return fmt.Errorf("top_n must not be negative, got %d", c.TopN)
	}
	if c.Tiers < 0 {
		return fmt.Errorf("tiers must not be negative, got %d", c.Tiers)
	}
	if c.Partitions < 0 {
		return fmt.Errorf("partitions must not be negative, got %d", c.Partitions)
	}
	switch c.Store.Type {
	case StoreMemory:
	case StoreDir:
		if c.Store.Dir == "" {
			return errors.New("store.dir must be set for the dir store")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr must be set for the redis store")
		}
		if c.Store.TTLSeconds < 0 {
			return fmt.Errorf("store.ttl_seconds must not be negative, got %d", c.Store.TTLSeconds)
		}
	default:
		return fmt.Errorf("unknown store type %q (want memory, dir or redis)", c.Store.Type)
	}
	return nil
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", name, err)
	}
	return level, nil
}

// SetupLogger returns a text logger writing to pipeline.log in logDir, creating the
// directory if needed. With an empty logDir it logs to stderr. The returned closer
// must be closed on exit.
func SetupLogger(logDir, levelName string) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if logDir == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, err
	}
	logPath := filepath.Join(logDir, "pipeline.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewTextHandler(logFile, opts)), logFile, nil
}
