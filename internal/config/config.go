// Package config provides configuration for the credits end-to-end suite.
// Configuration is read once from environment variables into an explicit
// Config value that is passed to the browser harness; nothing reads the
// environment after startup.
//
// When E2E_BASE_URL is empty the suite targets the in-process chat stub.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/credits-e2e/internal/logutil"
	"github.com/kuitang/credits-e2e/internal/poll"
)

const (
	defaultPassword    = "e2e-Passw0rd!"
	defaultTimeout     = 60 * time.Second
	defaultActionMS    = 15000
	defaultRetries     = 3
	defaultPollDelay   = time.Second
	defaultChangeLimit = 5 * time.Second
	defaultRegion      = "auto"
)

// Account is one login in the test account pool.
type Account struct {
	Email    string
	Password string
}

// Config holds all suite configuration.
type Config struct {
	// Target
	BaseURL  string // Empty means "start the chat stub"
	Headless bool

	// Timeouts and retry policy
	Timeout       time.Duration // Whole-test budget
	ActionTimeout time.Duration // Per Playwright action
	Retries       int           // Attempts for credits reads
	PollDelay     time.Duration // Delay between attempts
	ChangeTimeout time.Duration // Budget for waiting on a credits change

	// Account pool
	User     Account // Account with spendable credits
	NewUser  Account // Freshly provisioned account
	ZeroUser Account // Account with an exhausted balance

	// Artifacts
	ArtifactsDir       string
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	ArtifactsBucket    string // ARTIFACTS_BUCKET
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("E2E_BASE_URL")), "/")
	cfg.Headless = parseBoolOrDefault("E2E_HEADLESS", true)

	cfg.Timeout = parseDurationOrDefault("E2E_TIMEOUT", defaultTimeout)
	cfg.ActionTimeout = time.Duration(parseIntOrDefault("E2E_ACTION_TIMEOUT_MS", defaultActionMS)) * time.Millisecond
	cfg.Retries = parseIntOrDefault("E2E_RETRIES", defaultRetries)
	cfg.PollDelay = parseDurationOrDefault("E2E_POLL_DELAY", defaultPollDelay)
	cfg.ChangeTimeout = parseDurationOrDefault("E2E_CHANGE_TIMEOUT", defaultChangeLimit)

	password := getEnvOrDefault("E2E_PASSWORD", defaultPassword)
	cfg.User = Account{Email: getEnvOrDefault("E2E_USER_EMAIL", "credits-user@example.test"), Password: password}
	cfg.NewUser = Account{Email: getEnvOrDefault("E2E_NEW_USER_EMAIL", "credits-new@example.test"), Password: password}
	cfg.ZeroUser = Account{Email: getEnvOrDefault("E2E_ZERO_USER_EMAIL", "credits-zero@example.test"), Password: password}

	cfg.ArtifactsDir = getEnvOrDefault("E2E_ARTIFACTS_DIR", "test-results")
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.ArtifactsBucket = strings.TrimSpace(os.Getenv("ARTIFACTS_BUCKET"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, "E2E_BASE_URL must start with http:// or https://")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "E2E_TIMEOUT must be positive")
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, "E2E_ACTION_TIMEOUT_MS must be positive")
	}
	if c.Retries <= 0 {
		errs = append(errs, "E2E_RETRIES must be positive")
	}
	if c.PollDelay < 0 {
		errs = append(errs, "E2E_POLL_DELAY must not be negative")
	}
	if c.ChangeTimeout <= 0 {
		errs = append(errs, "E2E_CHANGE_TIMEOUT must be positive")
	}

	// A real target needs a real account pool.
	if c.BaseURL != "" {
		for _, pool := range []struct {
			name string
			acct Account
		}{
			{"E2E_USER_EMAIL", c.User},
			{"E2E_NEW_USER_EMAIL", c.NewUser},
			{"E2E_ZERO_USER_EMAIL", c.ZeroUser},
		} {
			if !strings.Contains(pool.acct.Email, "@") {
				errs = append(errs, pool.name+" must be an email address")
			}
		}
		if c.User.Password == "" {
			errs = append(errs, "E2E_PASSWORD is required when E2E_BASE_URL is set")
		}
	}

	// S3 upload is optional, but half-configured S3 is a mistake.
	if c.ArtifactsBucket != "" {
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when ARTIFACTS_BUCKET is set")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when ARTIFACTS_BUCKET is set")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UsesStub reports whether the suite should start the in-process chat stub.
func (c *Config) UsesStub() bool {
	return c.BaseURL == ""
}

// UploadsArtifacts reports whether failure artifacts go to S3.
func (c *Config) UploadsArtifacts() bool {
	return c.ArtifactsBucket != ""
}

// ActionTimeoutMS returns the Playwright action timeout in milliseconds.
func (c *Config) ActionTimeoutMS() float64 {
	return float64(c.ActionTimeout.Milliseconds())
}

// ReadBound is the retry bound for a single credits read.
func (c *Config) ReadBound() poll.Bound {
	return poll.MaxAttempts(c.Retries)
}

// ChangeBound is the retry bound for waiting on a credits change.
func (c *Config) ChangeBound() poll.Bound {
	return poll.MaxElapsed(c.ChangeTimeout)
}

// LogAttrs returns the configuration as slog key/value pairs with
// passwords and keys redacted and emails masked.
func (c *Config) LogAttrs() []any {
	fields := []struct{ key, value string }{
		{"base_url", c.BaseURL},
		{"user_email", logutil.MaskEmail(c.User.Email)},
		{"user_password", c.User.Password},
		{"artifacts_dir", c.ArtifactsDir},
		{"artifacts_bucket", c.ArtifactsBucket},
		{"aws_endpoint_s3", c.AWSEndpointS3},
		{"aws_access_key_id", c.AWSAccessKeyID},
		{"aws_secret_access_key", c.AWSSecretAccessKey},
	}
	attrs := make([]any, 0, 2*len(fields)+8)
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		attrs = append(attrs, f.key, logutil.RedactValue(f.key, f.value))
	}
	return append(attrs,
		"uses_stub", c.UsesStub(),
		"action_timeout", c.ActionTimeout,
		"retries", c.Retries,
		"change_timeout", c.ChangeTimeout,
	)
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}
