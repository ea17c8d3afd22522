// Package config loads the immutable run configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Page sizes are fixed by the VK API maximums and are not derived from
// server hints.
const (
	PostsPageSize    = 100
	CommentsPageSize = 100
)

// Defaults for optional settings.
const (
	DefaultOwnerID        int64 = -218375169
	DefaultTargetWord           = "энвилоуп"
	DefaultAPIBaseURL           = "https://api.vk.com/method/"
	DefaultAPIVersion           = "5.131"
	DefaultMaxAttempts          = 5
	DefaultBaseDelay            = 1 * time.Second
	DefaultRequestTimeout       = 5 * time.Second
	DefaultConcurrency          = 15
)

// ErrMissingAccessToken is reported when ACCESS_TOKEN is not set.
var ErrMissingAccessToken = errors.New("ACCESS_TOKEN is not set")

// Error is a configuration error. It is fatal and occurs before any
// network activity.
type Error struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds everything a run needs. It is built once at startup and
// passed by value into every component.
type Config struct {
	// AccessToken is the VK bearer token (REQUIRED).
	AccessToken string

	// OwnerID is the wall owner; negative for communities.
	OwnerID int64

	// TargetWord is the substring counted in comment texts.
	TargetWord string

	// API endpoint
	APIBaseURL string
	APIVersion string

	// Pagination
	PostsPageSize    int
	CommentsPageSize int

	// Retry
	MaxAttempts    int
	BaseDelay      time.Duration
	RequestTimeout time.Duration

	// Concurrency is the number of posts processed in parallel.
	Concurrency int

	// Logging
	LogLevel  string
	LogPretty bool

	// Optional collaborators; empty disables them.
	RedisURL    string
	MetricsAddr string
}

// Default returns a configuration with every optional field set.
func Default() Config {
	return Config{
		OwnerID:          DefaultOwnerID,
		TargetWord:       DefaultTargetWord,
		APIBaseURL:       DefaultAPIBaseURL,
		APIVersion:       DefaultAPIVersion,
		PostsPageSize:    PostsPageSize,
		CommentsPageSize: CommentsPageSize,
		MaxAttempts:      DefaultMaxAttempts,
		BaseDelay:        DefaultBaseDelay,
		RequestTimeout:   DefaultRequestTimeout,
		Concurrency:      DefaultConcurrency,
		LogLevel:         "info",
	}
}

// Load reads an optional .env file, then the process environment, and
// validates the result.
func Load() (Config, error) {
	// A missing .env file is normal in production.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Unset keys keep their
// defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	cfg.AccessToken = strings.TrimSpace(getenv("ACCESS_TOKEN"))

	if v := getenv("VK_OWNER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, &Error{Key: "VK_OWNER_ID", Err: err}
		}
		cfg.OwnerID = id
	}
	if v := getenv("TARGET_WORD"); v != "" {
		cfg.TargetWord = v
	}
	if v := getenv("VK_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := getenv("VK_API_VERSION"); v != "" {
		cfg.APIVersion = v
	}

	var err error
	if cfg.MaxAttempts, err = intEnv(getenv, "MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.Concurrency, err = intEnv(getenv, "CONCURRENCY", cfg.Concurrency); err != nil {
		return Config{}, err
	}
	if cfg.BaseDelay, err = durationEnv(getenv, "RETRY_BASE_DELAY", cfg.BaseDelay); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationEnv(getenv, "REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return Config{}, err
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, &Error{Key: "LOG_PRETTY", Err: err}
		}
		cfg.LogPretty = pretty
	}
	cfg.RedisURL = getenv("REDIS_URL")
	cfg.MetricsAddr = getenv("METRICS_ADDR")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields and numeric bounds.
func (c Config) Validate() error {
	if c.AccessToken == "" {
		return &Error{Key: "ACCESS_TOKEN", Err: ErrMissingAccessToken}
	}
	if c.TargetWord == "" {
		return &Error{Key: "TARGET_WORD", Err: errors.New("must not be empty")}
	}
	if c.PostsPageSize < 1 || c.CommentsPageSize < 1 {
		return &Error{Key: "page size", Err: errors.New("must be >= 1")}
	}
	if c.MaxAttempts < 1 {
		return &Error{Key: "MAX_ATTEMPTS", Err: fmt.Errorf("must be >= 1 (got %d)", c.MaxAttempts)}
	}
	if c.Concurrency < 1 {
		return &Error{Key: "CONCURRENCY", Err: fmt.Errorf("must be >= 1 (got %d)", c.Concurrency)}
	}
	if c.BaseDelay < 0 {
		return &Error{Key: "RETRY_BASE_DELAY", Err: errors.New("must not be negative")}
	}
	if c.RequestTimeout <= 0 {
		return &Error{Key: "REQUEST_TIMEOUT", Err: errors.New("must be positive")}
	}
	return nil
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &Error{Key: key, Err: err}
	}
	return n, nil
}

func durationEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &Error{Key: key, Err: err}
	}
	return d, nil
}
