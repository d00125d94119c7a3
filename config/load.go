package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by ApplyEnv.
const EnvPrefix = "ISBNSTATS_"

// LoadFile overlays the YAML document at path onto c. Durations use Go syntax ("2s").
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

// LoadEnvFile loads variables from a dotenv file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from ISBNSTATS_* variables.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString(EnvPrefix + "BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := EnvString(EnvPrefix + "INPUT"); ok {
		c.InputFile = v
	}
	if v, ok := EnvString(EnvPrefix + "OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString(EnvPrefix + "FORMAT"); ok {
		c.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString(EnvPrefix + "USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := EnvString(EnvPrefix + "METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}

	timeout, ok, err := EnvDuration(EnvPrefix + "TIMEOUT")
	if err != nil {
		return err
	} else if ok {
		c.Timeout = timeout
	}
	retries, ok, err := EnvInt(EnvPrefix + "MAX_RETRIES")
	if err != nil {
		return err
	} else if ok {
		c.MaxRetries = retries
	}
	dedupe, ok, err := EnvInt(EnvPrefix + "DEDUPE_MAX_SIZE")
	if err != nil {
		return err
	} else if ok {
		c.DedupeMaxSize = dedupe
	}
	return nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, true, nil
}
