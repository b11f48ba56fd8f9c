// Package config loads the restspec TOML configuration file.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/tansive/restspec/internal/echoserver"
	"github.com/tansive/restspec/pkg/rest"
)

// ConfigFormatVersion is the current version of the configuration file format.
const ConfigFormatVersion = "0.1.0"

// DefaultFileName is looked up in the working directory when no file is given.
const DefaultFileName = "restspec.toml"

// formatConstraint accepts files written for any 0.1.x format.
var formatConstraint = mustConstraint("~" + ConfigFormatVersion)

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// LogConfig holds request/response dump and process log settings
type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Detail string `toml:"detail"` // dump detail, see rest.ParseLogDetail
	File   string `toml:"file"`   // dump file; standard output when empty
}

// ServerConfig holds the mock server settings
type ServerConfig struct {
	HostName       string `toml:"hostname"`
	Port           string `toml:"port" validate:"omitempty,numeric"`
	HandleCORS     bool   `toml:"handle_cors"`
	APIKey         string `toml:"api_key"`
	DownloadDir    string `toml:"download_dir"`
	RequestTimeout string `toml:"request_timeout"`
}

// Config holds all configuration parameters.
type Config struct {
	FormatVersion string            `toml:"format_version" validate:"required"`
	BaseURL       string            `toml:"base_url" validate:"omitempty,url"`
	Timeout       string            `toml:"timeout"`
	Log           LogConfig         `toml:"log"`
	Server        ServerConfig      `toml:"server"`
	Headers       map[string]string `toml:"headers"`

	timeout        time.Duration
	requestTimeout time.Duration
	logDetail      rest.LogDetail
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{FormatVersion: ConfigFormatVersion}
	if err := ValidateConfig(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// ParseDuration parses a duration string in the format "<number><unit>" where unit can be:
// - y: years
// - d: days
// - h: hours
// - m: minutes
// - s: seconds
// Anything else is handed to time.ParseDuration, so "1m30s" and "250ms" also work.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	value, err := strconv.Atoi(input[:len(input)-1])
	if err != nil {
		d, perr := time.ParseDuration(input)
		if perr != nil {
			return 0, fmt.Errorf("invalid duration %q", input)
		}
		return d, nil
	}

	switch unit {
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "s":
		return time.Duration(value) * time.Second, nil
	case "y":
		// 1 year = 365 days
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateConfig checks the configuration values and fills in defaults.
func ValidateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	v, err := semver.NewVersion(cfg.FormatVersion)
	if err != nil {
		return fmt.Errorf("invalid format_version %q: %w", cfg.FormatVersion, err)
	}
	if !formatConstraint.Check(v) {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}

	cfg.timeout = rest.DefaultTimeout
	if cfg.Timeout != "" {
		if cfg.timeout, err = ParseDuration(cfg.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}
	if cfg.Server.RequestTimeout != "" {
		if cfg.requestTimeout, err = ParseDuration(cfg.Server.RequestTimeout); err != nil {
			return fmt.Errorf("invalid server.request_timeout: %w", err)
		}
	}
	if cfg.logDetail, err = rest.ParseLogDetail(cfg.Log.Detail); err != nil {
		return fmt.Errorf("invalid log.detail: %w", err)
	}

	if cfg.Server.HostName == "" {
		cfg.Server.HostName = "127.0.0.1"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8680"
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} references with environment values. A reference to an unset
// variable is an error.
func ExpandEnv(input string) (string, error) {
	var missing string
	out := envRef.ReplaceAllStringFunc(input, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("missing environment variable: %s (set it in your shell or .env file)", missing)
	}
	return out, nil
}

// LoadConfig loads configuration from a file. A .env file next to it is loaded first,
// without overriding variables already set.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("config filename is required")
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(filename), ".env")) // no error if .env doesn't exist

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	expanded, err := ExpandEnv(string(content))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads filename, or DefaultFileName when it exists in the working directory, or
// returns DefaultConfig.
func Load(filename string) (*Config, error) {
	if filename != "" {
		return LoadConfig(filename)
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return LoadConfig(DefaultFileName)
	}
	return DefaultConfig(), nil
}

func (c *Config) GetTimeout() time.Duration {
	return c.timeout
}

func (c *Config) GetLogDetail() rest.LogDetail {
	return c.logDetail
}

// ServerAddr returns the mock server listen address.
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.HostName, c.Server.Port)
}

// ServerOptions converts the [server] table into mock server options.
func (c *Config) ServerOptions() echoserver.Options {
	return echoserver.Options{
		HandleCORS:     c.Server.HandleCORS,
		APIKey:         c.Server.APIKey,
		DownloadDir:    c.Server.DownloadDir,
		RequestTimeout: c.requestTimeout,
	}
}

// LogSink opens the configured dump file, or returns the console sink.
func (c *Config) LogSink() (*rest.Sink, error) {
	if c.Log.File == "" {
		return rest.ConsoleSink(), nil
	}
	return rest.NewFileSink(c.Log.File)
}

// BaseSpecification returns a specification carrying the configured base URL, default
// headers, timeout and log detail. A nil sink keeps the console default.
func (c *Config) BaseSpecification(sink *rest.Sink) rest.Specification {
	spec := rest.New().
		WithTimeout(c.timeout).
		WithLogDetail(c.logDetail)
	if c.BaseURL != "" {
		spec = spec.WithBaseURL(c.BaseURL)
	}
	spec = spec.WithHeaders(c.Headers)
	if sink != nil {
		spec = spec.WithLogSink(sink)
	}
	return spec
}
