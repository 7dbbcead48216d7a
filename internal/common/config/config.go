package config

import (
	"strings"
	"time"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Session   SessionConfig   `mapstructure:"session"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PipelineConfig points at the service exposing /fullpipeline/run.
type PipelineConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	EmployeeID int    `mapstructure:"employee_id"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds, 0 = no client-side timeout
}

func (p PipelineConfig) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Millisecond
}

// DashboardConfig points at the sprint/report backend and the web dashboard.
type DashboardConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WebURL  string `mapstructure:"web_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

func (d DashboardConfig) TimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Millisecond
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type SessionConfig struct {
	Backend string      `mapstructure:"backend"`
	Name    string      `mapstructure:"name"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// TracingConfig enables span export. Spans stay in-process when empty.
type TracingConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// RouteURL joins the web dashboard URL with an in-app route such as /standups.
func (d DashboardConfig) RouteURL(route string) string {
	return strings.TrimRight(d.WebURL, "/") + route
}
