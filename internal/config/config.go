package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
)

// DefaultMaxTasks is the per-run file limit. It is a string so that it can
// be set at build time:
//
//	go build -ldflags "-X github.com/YenHsinCHEN/MopsDownloader/internal/config.DefaultMaxTasks=50"
var DefaultMaxTasks = "30"

const fallbackMaxTasks = 30

// Config defines configuration for the mopsdl CLI.
type Config struct {
	Origin            string        `yaml:"origin"`
	ListingPath       string        `yaml:"listing_path"`
	SaveDirectory     string        `yaml:"save_directory"`
	MaxTasks          int           `yaml:"max_tasks"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	UserAgent         string        `yaml:"user_agent"`
	WarmUp            time.Duration `yaml:"warm_up"`
	LogLevel          string        `yaml:"log_level"`
	MetricsFile       string        `yaml:"metrics_file"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Origin:            mops.DefaultOrigin,
		ListingPath:       mops.DefaultListingPath,
		MaxTasks:          defaultMaxTasks(),
		Timeout:           60 * time.Second,
		RequestsPerSecond: 2,
		WarmUp:            time.Second,
		LogLevel:          "info",
	}
}

func defaultMaxTasks() int {
	n, err := strconv.Atoi(strings.TrimSpace(DefaultMaxTasks))
	if err != nil || n <= 0 {
		return fallbackMaxTasks
	}
	return n
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Origin            string   `yaml:"origin"`
	ListingPath       string   `yaml:"listing_path"`
	SaveDirectory     string   `yaml:"save_directory"`
	MaxTasks          int      `yaml:"max_tasks"`
	Timeout           string   `yaml:"timeout"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"`
	UserAgent         string   `yaml:"user_agent"`
	WarmUp            string   `yaml:"warm_up"`
	LogLevel          string   `yaml:"log_level"`
	MetricsFile       string   `yaml:"metrics_file"`
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Origin != "" {
		cfg.Origin = yc.Origin
	}
	if yc.ListingPath != "" {
		cfg.ListingPath = yc.ListingPath
	}
	if yc.SaveDirectory != "" {
		cfg.SaveDirectory = yc.SaveDirectory
	}
	if yc.MaxTasks != 0 {
		cfg.MaxTasks = yc.MaxTasks
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *yc.RequestsPerSecond
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.WarmUp != "" {
		d, err := time.ParseDuration(yc.WarmUp)
		if err != nil {
			return Config{}, fmt.Errorf("parse warm_up: %w", err)
		}
		cfg.WarmUp = d
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.MetricsFile != "" {
		cfg.MetricsFile = yc.MetricsFile
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are ignored and variables that are
// already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the MOPSDL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("MOPSDL_ORIGIN"); v != "" {
		c.Origin = v
	}
	if v := os.Getenv("MOPSDL_LISTING_PATH"); v != "" {
		c.ListingPath = v
	}
	if v := os.Getenv("MOPSDL_SAVE_DIRECTORY"); v != "" {
		c.SaveDirectory = v
	}
	if v := os.Getenv("MOPSDL_MAX_TASKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MOPSDL_MAX_TASKS: %w", err)
		}
		c.MaxTasks = n
	}
	if v := os.Getenv("MOPSDL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MOPSDL_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("MOPSDL_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse MOPSDL_REQUESTS_PER_SECOND: %w", err)
		}
		c.RequestsPerSecond = f
	}
	if v := os.Getenv("MOPSDL_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("MOPSDL_WARM_UP"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MOPSDL_WARM_UP: %w", err)
		}
		c.WarmUp = d
	}
	if v := os.Getenv("MOPSDL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MOPSDL_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Origin == "" {
		return errors.New("config: origin is required")
	}
	u, err := url.Parse(c.Origin)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("config: origin %q is not an absolute URL", c.Origin)
	}
	if c.MaxTasks <= 0 {
		return errors.New("config: max_tasks must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("config: requests_per_second must not be negative")
	}
	if c.WarmUp < 0 {
		return errors.New("config: warm_up must not be negative")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Origin != "" {
		c.Origin = override.Origin
	}
	if override.ListingPath != "" {
		c.ListingPath = override.ListingPath
	}
	if override.SaveDirectory != "" {
		c.SaveDirectory = override.SaveDirectory
	}
	if override.MaxTasks != 0 {
		c.MaxTasks = override.MaxTasks
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.RequestsPerSecond != 0 {
		c.RequestsPerSecond = override.RequestsPerSecond
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.WarmUp != 0 {
		c.WarmUp = override.WarmUp
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.MetricsFile != "" {
		c.MetricsFile = override.MetricsFile
	}
	return c
}
