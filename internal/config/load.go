package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional pharos.yaml in the working
// directory and from environment variables with the PHAROS_ prefix.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return loadFrom("")
}

// LoadFromFile behaves like Load but reads the given config file instead
// of searching the working directory.
func LoadFromFile(configPath string) (*Config, error) {
	return loadFrom(configPath)
}

func loadFrom(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("audit.concurrency", 4)
	v.SetDefault("audit.device", "desktop")
	v.SetDefault("audit.timeout_seconds", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.html", true)
	v.SetDefault("metrics.enabled", false)

	// Configure to read from a config file
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("pharos")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults and environment
			// variables cover everything.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Configure environment variables
	v.SetEnvPrefix("PHAROS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind critical environment variables
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"audit.concurrency", "PHAROS_AUDIT_CONCURRENCY"},
		{"audit.device", "PHAROS_AUDIT_DEVICE"},
		{"audit.timeout_seconds", "PHAROS_AUDIT_TIMEOUT_SECONDS"},
		{"server.port", "PHAROS_SERVER_PORT"},
		{"server.log_level", "PHAROS_SERVER_LOG_LEVEL"},
		{"report.output_dir", "PHAROS_REPORT_OUTPUT_DIR"},
		{"report.html", "PHAROS_REPORT_HTML"},
		{"database.url", "PHAROS_DATABASE_URL"},
		{"metrics.enabled", "PHAROS_METRICS_ENABLED"},
	}

	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	// Unmarshal and validate
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
