// Package config provides functionality for managing configuration options
// for the client and the stub endpoint using command-line flags, an optional
// JSON config file, a .env file and environment variables.
//
// Later sources win: flags, then the config file, then the environment.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads "10s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// ClientOptions holds the configuration values for the form client.
type ClientOptions struct {
	// Endpoint is the URL of the form-processing service.
	Endpoint string `json:"endpoint"`
	// Origin is the origin the forms are served from; empty disables the readability check.
	Origin string `json:"origin"`
	// Fallback enables the opaque POST + GET delivery tier.
	Fallback bool `json:"fallback"`
	// Timeout bounds each request.
	Timeout Duration `json:"timeout"`
	// CAFile, CertFile and KeyFile configure TLS for private endpoints.
	CAFile   string `json:"ca_file"`
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`
	// Color enables ANSI colors for status messages.
	Color bool `json:"color"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`
	// EnvFile is the path to the .env file.
	EnvFile string `json:"-"`
	// ShowVersion prints build information and exits.
	ShowVersion bool `json:"-"`
}

// ServerOptions holds the configuration values for the stub endpoint.
type ServerOptions struct {
	// Addr is the listening address (ip:port).
	Addr string `json:"addr"`
	// DatabaseDSN enables the Postgres delivery log; empty keeps it in memory.
	DatabaseDSN string `json:"database_dsn"`
	// AllowedOrigins may read POST replies.
	AllowedOrigins []string `json:"allowed_origins"`
	// FailPost makes every POST reply 503.
	FailPost bool `json:"fail_post"`
	// Retention is how long deliveries are kept.
	Retention Duration `json:"retention"`
	// CleanInterval is how often expired deliveries are purged.
	CleanInterval Duration `json:"clean_interval"`
	// TLSCert and TLSKey switch the endpoint to HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`
	// ClientCA, when set, requires clients to present a certificate signed by it.
	ClientCA string `json:"client_ca"`
	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`
	// EnvFile is the path to the .env file.
	EnvFile string `json:"-"`
}

// ParseClient parses args (without the program name) into ClientOptions.
func ParseClient(args []string) (*ClientOptions, error) {
	options := &ClientOptions{}
	var timeout time.Duration

	flags := flag.NewFlagSet("client", flag.ContinueOnError)
	flags.StringVar(&options.Endpoint, "url", "http://localhost:8080/exec", "form endpoint URL")
	flags.StringVar(&options.Origin, "origin", "", "origin the forms are served from")
	flags.BoolVar(&options.Fallback, "fallback", true, "retry unreadable deliveries as opaque POST + GET")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.StringVar(&options.CAFile, "ca", "", "path to CA cert")
	flags.StringVar(&options.CertFile, "cert", "", "path to client cert")
	flags.StringVar(&options.KeyFile, "key", "", "path to client key")
	flags.StringVar(&options.LogLevel, "log-level", "warn", "log level")
	flags.BoolVar(&options.Color, "color", true, "colorize status messages")
	flags.StringVar(&options.Config, "config", "", "path to config file")
	flags.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
	flags.StringVar(&options.EnvFile, "env", ".env", "path to .env file")
	flags.BoolVar(&options.ShowVersion, "version", false, "show build version and date")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	options.Timeout = Duration(timeout)

	if err := loadEnvFile(options.EnvFile); err != nil {
		return nil, err
	}
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadConfigFile(options.Config, options); err != nil {
		return nil, err
	}

	if v := os.Getenv("FORM_ENDPOINT"); v != "" {
		options.Endpoint = v
	}
	if v := os.Getenv("FORM_ORIGIN"); v != "" {
		options.Origin = v
	}
	if err := envBool("FORM_FALLBACK", &options.Fallback); err != nil {
		return nil, err
	}
	if err := envDuration("FORM_TIMEOUT", &options.Timeout); err != nil {
		return nil, err
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}

	return options, nil
}

// ParseServer parses args (without the program name) into ServerOptions.
func ParseServer(args []string) (*ServerOptions, error) {
	options := &ServerOptions{}
	var (
		origins             string
		retention, interval time.Duration
	)

	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	flags.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flags.StringVar(&origins, "origins", "", "comma separated origins allowed to read POST replies")
	flags.BoolVar(&options.FailPost, "fail-post", false, "reply 503 to every POST")
	flags.DurationVar(&retention, "retention", 24*time.Hour, "how long deliveries are kept")
	flags.DurationVar(&interval, "clean-interval", time.Hour, "how often expired deliveries are purged")
	flags.StringVar(&options.TLSCert, "tls-cert", "", "path to server cert")
	flags.StringVar(&options.TLSKey, "tls-key", "", "path to server key")
	flags.StringVar(&options.ClientCA, "client-ca", "", "path to CA that must sign client certs")
	flags.StringVar(&options.LogLevel, "log-level", "info", "log level")
	flags.StringVar(&options.Config, "config", "", "path to config file")
	flags.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
	flags.StringVar(&options.EnvFile, "env", ".env", "path to .env file")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	options.AllowedOrigins = splitList(origins)
	options.Retention = Duration(retention)
	options.CleanInterval = Duration(interval)

	if err := loadEnvFile(options.EnvFile); err != nil {
		return nil, err
	}
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadConfigFile(options.Config, options); err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		options.Addr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		options.AllowedOrigins = splitList(v)
	}
	if err := envBool("FAIL_POST", &options.FailPost); err != nil {
		return nil, err
	}
	if err := envDuration("DELIVERY_RETENTION", &options.Retention); err != nil {
		return nil, err
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		options.TLSCert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		options.TLSKey = v
	}
	if v := os.Getenv("CLIENT_CA"); v != "" {
		options.ClientCA = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}

	if options.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", time.Duration(options.Retention))
	}
	if options.CleanInterval <= 0 {
		return nil, fmt.Errorf("clean interval must be positive, got %s", time.Duration(options.CleanInterval))
	}

	return options, nil
}

// loadEnvFile exports variables from path without overriding the real environment.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error while loading env file: %w", err)
	}
	return nil
}

func loadConfigFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
