// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload" // .env in the working directory feeds the environment
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Threads  ThreadsConfig  `mapstructure:"threads"`
	Headless HeadlessConfig `mapstructure:"headless"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                     int `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds" validate:"gt=0"`
	ShutdownTimeoutSeconds   int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"startswith=/"`
}

// ThreadsConfig describes how the upstream Threads web API is reached.
type ThreadsConfig struct {
	BaseURL        string          `mapstructure:"base_url" validate:"required,url"`
	GraphQLPath    string          `mapstructure:"graphql_path" validate:"required,startswith=/"`
	AppID          string          `mapstructure:"app_id" validate:"required"`
	UserAgent      string          `mapstructure:"user_agent" validate:"required"`
	LSDToken       string          `mapstructure:"lsd_token"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds" validate:"gt=0"`
	DocIDs         DocIDsConfig    `mapstructure:"doc_ids"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig paces outbound requests per host. RPS 0 means unlimited.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=0"`
}

// DocIDsConfig holds the persisted GraphQL query identifiers.
type DocIDsConfig struct {
	UserProfile   string `mapstructure:"user_profile" validate:"required,numeric"`
	UserThreads   string `mapstructure:"user_threads" validate:"required,numeric"`
	ThreadReplies string `mapstructure:"thread_replies" validate:"required,numeric"`
}

// HeadlessConfig configures the optional chromedp renderer.
type HeadlessConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	MaxParallel        int  `mapstructure:"max_parallel" validate:"gte=0,required_if=Enabled true"`
	NavTimeoutSec      int  `mapstructure:"nav_timeout_seconds" validate:"gte=0"`
	PromotionThreshold int  `mapstructure:"promotion_threshold" validate:"gte=0"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("THREADSAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is the conventional override on container platforms.
	if err := v.BindEnv("server.port", "THREADSAPI_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_header_timeout_seconds", 5)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("threads.base_url", "https://www.threads.net")
	v.SetDefault("threads.graphql_path", "/api/graphql")
	v.SetDefault("threads.app_id", "238260118697367")
	v.SetDefault("threads.user_agent", "threadsapi/0.1")
	v.SetDefault("threads.lsd_token", "")
	v.SetDefault("threads.timeout_seconds", 15)
	v.SetDefault("threads.doc_ids.user_profile", "23996318473300828")
	v.SetDefault("threads.doc_ids.user_threads", "6232751443445612")
	v.SetDefault("threads.doc_ids.thread_replies", "6307072669391286")
	v.SetDefault("threads.rate_limit.rps", 0)
	v.SetDefault("threads.rate_limit.burst", 1)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return val
}

// Validate enforces required values and reasonable limits.
// Errors name the offending key in its dotted config form, e.g. "server.port".
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s failed %q check (value %v)", configKey(fe.Namespace()), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}

// configKey drops the root struct name from a validator namespace.
func configKey(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return key
}

// ReadHeaderTimeout returns the server header read deadline.
func (c Config) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.Server.ReadHeaderTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful drain on exit.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// UpstreamTimeout is the per-request HTTP client timeout toward Threads.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Threads.TimeoutSeconds) * time.Second
}

// NavTimeout is the headless navigation budget; zero lets the renderer pick its default.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
