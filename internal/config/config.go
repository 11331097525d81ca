package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Audit    AuditConfig    `mapstructure:"audit" validate:"required"`
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Report   ReportConfig   `mapstructure:"report" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AuditConfig contains all batch execution settings.
type AuditConfig struct {
	Concurrency    int    `mapstructure:"concurrency" validate:"required,gte=1,lte=10"`
	Device         string `mapstructure:"device" validate:"required,oneof=mobile desktop"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0,lte=300"`
}

// Timeout returns the per-attempt timeout as a duration.
func (c AuditConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServerConfig contains the report server and logging settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
}

// ReportConfig contains report output settings.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	HTML      bool   `mapstructure:"html"`
}

// DatabaseConfig contains the optional audit history settings. An empty
// URL disables history persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// MetricsConfig contains the metrics exporter settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
