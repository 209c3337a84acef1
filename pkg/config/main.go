package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvVaultAddr       = "VAULT_ADDR"
	EnvVaultToken      = "VAULT_TOKEN"
	EnvVaultNamespace  = "VAULT_NAMESPACE"
	EnvVaultInsecure   = "VAULT_SKIP_VERIFY"
	EnvVaultTimeout    = "VAULT_CLIENT_TIMEOUT"
	EnvVaultMaxRetries = "VAULT_MAX_RETRIES"
	EnvVaultRoleId     = "VAULT_ROLE_ID"
	EnvVaultSecretId   = "VAULT_SECRET_ID"

	DefaultAddress      = "http://127.0.0.1:8200"
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryWait    = 1 * time.Second
	DefaultRetryMaxWait = 30 * time.Second
)

// Config holds everything needed to reach a vault server.
type Config struct {
	Address   string
	Token     string
	Namespace string
	Insecure  bool

	Timeout      time.Duration
	MaxRetries   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Default returns a Config pointing at a local dev server.
func Default() *Config {
	return &Config{
		Address:      DefaultAddress,
		Timeout:      DefaultTimeout,
		MaxRetries:   DefaultMaxRetries,
		RetryWait:    DefaultRetryWait,
		RetryMaxWait: DefaultRetryMaxWait,
	}
}

// Load reads envFile (if it exists) into the process environment and builds a Config from the
// VAULT_* variables. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("could not load env file '%v': %w", envFile, err)
		}
	}

	cfg := Default()
	cfg.Address = GetEnvValue(EnvVaultAddr, cfg.Address)
	cfg.Token = GetEnvValue(EnvVaultToken, "")
	cfg.Namespace = GetEnvValue(EnvVaultNamespace, "")

	var err error
	if cfg.Insecure, err = GetBoolEnvValue(EnvVaultInsecure, false); err != nil {
		return nil, err
	}

	seconds, err := GetIntEnvValue(EnvVaultTimeout, int(DefaultTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(seconds) * time.Second

	if cfg.MaxRetries, err = GetIntEnvValue(EnvVaultMaxRetries, DefaultMaxRetries); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs basic validation of the vault inputs.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("vault address cannot be empty")
	}

	u, err := url.ParseRequestURI(c.Address)
	if err != nil {
		return fmt.Errorf("invalid vault address '%v': %w", c.Address, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid vault address '%v': scheme must be http or https", c.Address)
	}

	if u.Host == "" {
		return fmt.Errorf("invalid vault address '%v': missing host", c.Address)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %v", c.MaxRetries)
	}

	return nil
}

// BaseURL is the address with any trailing slash removed.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Address, "/")
}

// GetEnvValue returns the environment value if set, otherwise defaultValue.
func GetEnvValue(environmentKey, defaultValue string) string {
	value := os.Getenv(environmentKey)
	if value != "" {
		return value
	}

	return defaultValue
}

func GetBoolEnvValue(environmentKey string, defaultValue bool) (bool, error) {
	value := os.Getenv(environmentKey)
	if value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("could not parse env '%v=%v' to boolean value: %w", environmentKey, value, err)
		}

		return parsed, nil
	}

	return defaultValue, nil
}

func GetIntEnvValue(environmentKey string, defaultValue int) (int, error) {
	value := os.Getenv(environmentKey)
	if value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("could not parse env '%v=%v' to integer value: %w", environmentKey, value, err)
		}

		return parsed, nil
	}

	return defaultValue, nil
}
