// Package config loads harvester settings from a YAML file, a .env file and
// the process environment, in that order of precedence from lowest to
// highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultFile = "surveilans.yaml"

type Config struct {
	Portal PortalConfig `yaml:"portal"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
	Mirror MirrorConfig `yaml:"mirror"`
}

type PortalConfig struct {
	BaseURL         string        `yaml:"base_url"`
	UserAgent       string        `yaml:"user_agent"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	ListTimeout     time.Duration `yaml:"list_timeout"`
	PacingDelay     time.Duration `yaml:"pacing_delay"`
	RetryAttempts   uint8         `yaml:"retry_attempts"`
	RetryInitial    time.Duration `yaml:"retry_initial"`
	RetryMultiplier float64       `yaml:"retry_multiplier"`
	RetryMaxDelay   time.Duration `yaml:"retry_max_delay"`
	RetryJitter     float64       `yaml:"retry_jitter"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	MetricsFile string `yaml:"metrics_file"`
}

type LogConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// MirrorConfig is only active when Bucket is set.
type MirrorConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Portal.BaseURL == "" {
		c.Portal.BaseURL = "https://surveilans-dinkes.jakarta.go.id/sarsbaru/"
	}
	if c.Portal.QueryTimeout <= 0 {
		c.Portal.QueryTimeout = 30 * time.Second
	}
	if c.Portal.ListTimeout <= 0 {
		c.Portal.ListTimeout = 15 * time.Second
	}
	if c.Portal.PacingDelay <= 0 {
		c.Portal.PacingDelay = 500 * time.Millisecond
	}
	if c.Portal.RetryAttempts == 0 {
		c.Portal.RetryAttempts = 3
	}
	if c.Portal.RetryInitial <= 0 {
		c.Portal.RetryInitial = 5 * time.Second
	}
	if c.Portal.RetryMultiplier < 1 {
		c.Portal.RetryMultiplier = 2
	}
	if c.Portal.RetryMaxDelay <= 0 {
		c.Portal.RetryMaxDelay = 5 * time.Minute
	}
	if c.Portal.RetryJitter < 0 || c.Portal.RetryJitter > 1 {
		c.Portal.RetryJitter = 0
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.ConsoleLevel == "" {
		c.Log.ConsoleLevel = "info"
	}
	if c.Log.FileLevel == "" {
		c.Log.FileLevel = "debug"
	}
	if c.Mirror.Region == "" {
		c.Mirror.Region = "us-east-1"
	}
}

// LoadFile reads a YAML file and fills unset fields with defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// Load reads path, or DefaultFile when path is empty and that file exists,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	switch {
	case path != "":
		c, err = LoadFile(path)
	default:
		c, err = LoadFile(DefaultFile)
		if errors.Is(err, os.ErrNotExist) {
			c, err = Default(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotenv loads whichever of the given files exist. Variables already set
// in the environment win.
func LoadDotenv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"SURVEILANS_BASE_URL":     &c.Portal.BaseURL,
		"SURVEILANS_USER_AGENT":   &c.Portal.UserAgent,
		"SURVEILANS_OUTPUT_DIR":   &c.Output.Dir,
		"SURVEILANS_METRICS_FILE": &c.Output.MetricsFile,
		"SURVEILANS_LOG_DIR":      &c.Log.Dir,
		"SURVEILANS_LOG_LEVEL":    &c.Log.ConsoleLevel,
		"SURVEILANS_S3_BUCKET":    &c.Mirror.Bucket,
		"SURVEILANS_S3_PREFIX":    &c.Mirror.Prefix,
		"SURVEILANS_S3_REGION":    &c.Mirror.Region,
		"SURVEILANS_S3_ENDPOINT":  &c.Mirror.Endpoint,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SURVEILANS_QUERY_TIMEOUT":   &c.Portal.QueryTimeout,
		"SURVEILANS_LIST_TIMEOUT":    &c.Portal.ListTimeout,
		"SURVEILANS_PACING_DELAY":    &c.Portal.PacingDelay,
		"SURVEILANS_RETRY_MAX_DELAY": &c.Portal.RetryMaxDelay,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s: invalid duration %q", key, v)
		}
		*dst = d
	}

	if v, ok := lookup("SURVEILANS_RETRY_ATTEMPTS"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil || n == 0 {
			return fmt.Errorf("SURVEILANS_RETRY_ATTEMPTS: invalid value %q", v)
		}
		c.Portal.RetryAttempts = uint8(n)
	}

	if v, ok := lookup("SURVEILANS_RETRY_JITTER"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("SURVEILANS_RETRY_JITTER: invalid value %q", v)
		}
		c.Portal.RetryJitter = f
	}

	if v, ok := lookup("SURVEILANS_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SURVEILANS_S3_PATH_STYLE: invalid value %q", v)
		}
		c.Mirror.PathStyle = b
	}

	return nil
}
