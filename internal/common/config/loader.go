package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Options customizes Load. The zero value searches the default locations.
type Options struct {
	// ConfigFile is an explicit config path. It must exist when set.
	ConfigFile string
	// SearchPaths replaces the default config search directories.
	SearchPaths []string
	// SkipDotEnv disables .env discovery.
	SkipDotEnv bool
}

func Load() (*Config, error) {
	return LoadWithOptions(Options{})
}

func LoadWithOptions(opts Options) (*Config, error) {
	if !opts.SkipDotEnv {
		loadEnvFile()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = defaultSearchPaths()
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}

		v.SetConfigName(fmt.Sprintf("config.%s", env))
		_ = v.MergeInConfig() // environment overlay is optional
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func defaultSearchPaths() []string {
	paths := []string{"./configs", "../../configs", "."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".scrumbot"))
	}
	return paths
}

// bindEnvKeys lets AutomaticEnv resolve keys that have no yaml entry.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"pipeline.base_url", "pipeline.employee_id", "pipeline.timeout",
		"dashboard.base_url", "dashboard.web_url", "dashboard.timeout",
		"session.backend", "session.name",
		"session.redis.address", "session.redis.password", "session.redis.db",
		"logging.level", "logging.format", "logging.output",
		"metrics.address", "tracing.jaeger_endpoint",
	} {
		_ = v.BindEnv(key)
	}
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// An unset variable expands to "" so applyDefaults can fill the key.
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Session.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Session.Redis.Password = val
		}
	}
	if cfg.Session.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Session.Redis.Address = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "scrumbot"
	}

	if cfg.Pipeline.BaseURL == "" {
		cfg.Pipeline.BaseURL = "http://127.0.0.1:8000"
	}
	if cfg.Pipeline.EmployeeID == 0 {
		cfg.Pipeline.EmployeeID = 1
	}

	if cfg.Dashboard.BaseURL == "" {
		cfg.Dashboard.BaseURL = "http://localhost:5000"
	}
	if cfg.Dashboard.WebURL == "" {
		cfg.Dashboard.WebURL = "http://localhost:5173"
	}
	if cfg.Dashboard.Timeout == 0 {
		cfg.Dashboard.Timeout = 60000
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = SessionBackendMemory
	}
	if cfg.Session.Name == "" {
		cfg.Session.Name = "default"
	}
	if cfg.Session.Redis.Address == "" {
		cfg.Session.Redis.Address = "localhost:6379"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

func validateConfig(cfg *Config) error {
	for name, raw := range map[string]string{
		"pipeline.base_url":  cfg.Pipeline.BaseURL,
		"dashboard.base_url": cfg.Dashboard.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	cfg.Pipeline.BaseURL = strings.TrimRight(cfg.Pipeline.BaseURL, "/")
	cfg.Dashboard.BaseURL = strings.TrimRight(cfg.Dashboard.BaseURL, "/")
	cfg.Dashboard.WebURL = strings.TrimRight(cfg.Dashboard.WebURL, "/")

	if cfg.Pipeline.EmployeeID < 0 {
		return fmt.Errorf("pipeline.employee_id must be positive")
	}
	if cfg.Pipeline.Timeout < 0 || cfg.Dashboard.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	switch cfg.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.Session.Redis.Address == "" {
			return fmt.Errorf("session.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q",
			SessionBackendMemory, SessionBackendRedis, cfg.Session.Backend)
	}
	return nil
}
