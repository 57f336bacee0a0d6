package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

/* Process-wide settings, read once at startup and immutable thereafter
 * Passed by reference into the endpoint and worker constructors; nothing
 * mutates it during steady-state operation
 */

const defaultRequestBodySizeLimit = 512 * 1024 // 512 KiB

type Config struct {
	Port                 string `mapstructure:"PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisDB              int    `mapstructure:"REDIS_DB"`
	BindingsFile         string `mapstructure:"BINDINGS_FILE"`
	RequestBodySizeLimit int64  `mapstructure:"REQUEST_BODY_SIZE_LIMIT"`
	ErrorContext         string `mapstructure:"ERROR_CONTEXT"`
	WorkerCount          int    `mapstructure:"WORKER_COUNT"`
	SigningSecret        string `mapstructure:"SIGNING_SECRET"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// GetRequestBodySizeLimit returns the configured limit or the 512 KiB default
func (c *Config) GetRequestBodySizeLimit() int64 {
	if c.RequestBodySizeLimit > 0 {
		return c.RequestBodySizeLimit
	}
	return defaultRequestBodySizeLimit
}

// GetBindingsFile returns the bindings file path or the default
func (c *Config) GetBindingsFile() string {
	if c.BindingsFile != "" {
		return c.BindingsFile
	}
	return "bindings.yaml"
}

// GetWorkerCount returns the worker pool size or the default
func (c *Config) GetWorkerCount() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	return 4
}

// GetErrorContext parses ERROR_CONTEXT ("env=prod,region=eu") into a map
// attached to every reported error
func (c *Config) GetErrorContext() map[string]string {
	errorContext := make(map[string]string)
	for _, pair := range strings.Split(c.ErrorContext, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			continue
		}
		errorContext[key] = value
	}
	return errorContext
}
