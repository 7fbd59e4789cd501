package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	defaultAppName          = "BankCore"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultTokenTTL         = 60 * time.Minute
	defaultLoginMinDuration = time.Second
	defaultStatementTimeout = 5 * time.Second
)

// envKeys lists the environment variables read by Load. Anything else in the
// process environment is ignored.
var envKeys = []string{
	"APP_NAME",
	"APP_ENV",
	"PORT",
	"LOG_LEVEL",
	"DATABASE_URL",
	"REDIS_URL",
	"SECRET",
	"TOKEN_TTL",
	"LOGIN_MIN_DURATION",
	"SHUTDOWN_TIMEOUT",
	"SHUTDOWN_TIMEOUT_SECONDS",
	"IDEMPOTENCY_TTL",
	"IDEMPOTENCY_TTL_SECONDS",
	"DB_STATEMENT_TIMEOUT",
}

// Config captures application runtime configuration.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	Secret           []byte
	TokenTTL         time.Duration
	LoginMinDuration time.Duration
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	StatementTimeout time.Duration
}

// Option customises the sources consulted by Load.
type Option func(*loader)

type loader struct {
	file  string
	flags *pflag.FlagSet
}

// WithFile layers a YAML file underneath the environment.
func WithFile(path string) Option {
	return func(l *loader) { l.file = path }
}

// WithFlags layers explicitly set command-line flags over the environment.
// Flag names use dashes; they map onto the lower-cased environment keys.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(l *loader) { l.flags = fs }
}

// Load reads configuration from file, environment and flags (in increasing
// precedence) and populates a Config instance. A missing SECRET is an error:
// the service must never run with an empty signing key.
func Load(opts ...Option) (Config, error) {
	var l loader
	for _, opt := range opts {
		opt(&l)
	}

	k := koanf.New(".")
	if l.file != "" {
		if err := k.Load(file.Provider(l.file), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", l.file, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	if l.flags != nil {
		provider := posflag.ProviderWithFlag(l.flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(l.flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Config{
		AppName:     getString(k, "app_name", defaultAppName),
		AppEnv:      getString(k, "app_env", defaultAppEnv),
		Port:        getString(k, "port", defaultPort),
		LogLevel:    strings.ToLower(getString(k, "log_level", defaultLogLevel)),
		DatabaseURL: k.String("database_url"),
		RedisURL:    k.String("redis_url"),
		Secret:      []byte(k.String("secret")),
	}

	var err error
	if cfg.TokenTTL, err = getDuration(k, "token_ttl", defaultTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginMinDuration, err = getDuration(k, "login_min_duration", defaultLoginMinDuration); err != nil {
		return Config{}, err
	}
	if cfg.StatementTimeout, err = getDuration(k, "db_statement_timeout", defaultStatementTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = getSecondsOrDuration(k, "shutdown_timeout", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getSecondsOrDuration(k, "idempotency_ttl", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}

	if len(cfg.Secret) == 0 {
		return Config{}, fmt.Errorf("SECRET must be set")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether in-memory backends are acceptable.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// envKey maps a known, non-empty environment variable onto its koanf key.
// Empty values are skipped so they never mask a value from the file.
func envKey(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	for _, known := range envKeys {
		if key == known {
			return strings.ToLower(key), value
		}
	}
	return "", nil
}

func getString(k *koanf.Koanf, key, fallback string) string {
	if v := k.String(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(k *koanf.Koanf, key string, fallback time.Duration) (time.Duration, error) {
	v := k.String(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return d, nil
}

// getSecondsOrDuration prefers KEY_SECONDS (integer) over KEY (Go duration).
func getSecondsOrDuration(k *koanf.Koanf, key string, fallback time.Duration) (time.Duration, error) {
	if v := k.String(key + "_seconds"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", strings.ToUpper(key), err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return getDuration(k, key, fallback)
}
