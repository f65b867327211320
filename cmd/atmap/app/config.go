package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/atmap/pkg/constants"
	"github.com/agentstation/atmap/pkg/errors"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "ATMAP"

// Config holds the application configuration loaded from the config file,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Output
	OutputDir   string
	MetricsFile string

	// Fetching
	Concurrency        int
	RequestConcurrency int
	Timeout            time.Duration
	HTTPTimeout        time.Duration
	RequestDelay       time.Duration
	MaxRetries         int
	Deterministic      bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. ATMAP_* environment variables
//  3. .env files
//  4. Config file (path, or .atmap.yaml in the working or home directory)
//  5. Defaults
func LoadConfig(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".atmap")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		OutputDir:   v.GetString("output_dir"),
		MetricsFile: v.GetString("metrics_file"),

		Concurrency:        v.GetInt("concurrency"),
		RequestConcurrency: v.GetInt("request_concurrency"),
		Timeout:            v.GetDuration("timeout"),
		HTTPTimeout:        v.GetDuration("http_timeout"),
		RequestDelay:       v.GetDuration("request_delay"),
		MaxRetries:         v.GetInt("max_retries"),
		Deterministic:      v.GetBool("deterministic"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", constants.DefaultOutputDir)
	v.SetDefault("concurrency", constants.MaxConcurrentSources)
	v.SetDefault("request_concurrency", constants.MaxConcurrentRequests)
	v.SetDefault("timeout", constants.SourceFetchTimeout)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("request_delay", constants.DefaultRequestDelay)
	v.SetDefault("max_retries", constants.MaxRetries)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Validate rejects values no command can run with.
func (c *Config) Validate() error {
	switch {
	case c.Concurrency <= 0:
		return errors.NewValidationError("concurrency", c.Concurrency, "must be positive")
	case c.RequestConcurrency <= 0:
		return errors.NewValidationError("request_concurrency", c.RequestConcurrency, "must be positive")
	case c.MaxRetries < 0:
		return errors.NewValidationError("max_retries", c.MaxRetries, "must not be negative")
	case c.Timeout < 0, c.HTTPTimeout < 0, c.RequestDelay < 0:
		return errors.NewValidationError("timeout", nil, "durations must not be negative")
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// Flag values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is loaded last but never overrides variables already set.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
