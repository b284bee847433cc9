package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// DefaultAuthBaseURL is the ICANN account API
	DefaultAuthBaseURL = "https://account-api.icann.org"

	// DefaultDataBaseURL is the CZDS download API
	DefaultDataBaseURL = "https://czds-api.icann.org"

	authenticatePath = "api/authenticate/"
)

// ClientConfig is the immutable configuration of a single CZDS client.
type ClientConfig struct {
	AuthBaseURL string `mapstructure:"auth-url"`
	DataBaseURL string `mapstructure:"data-url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

// AuthenticationURL returns the credential-exchange endpoint.
// Exactly one "/" separates the base URL from the path.
func (c ClientConfig) AuthenticationURL() string {
	return appendIfMissing(c.AuthBaseURL, "/") + authenticatePath
}

// DataURL joins a path onto the data endpoint base URL.
func (c ClientConfig) DataURL(path string) string {
	return appendIfMissing(c.DataBaseURL, "/") + strings.TrimPrefix(path, "/")
}

// Validate only checks that both endpoints are set.
func (c ClientConfig) Validate() error {
	if c.AuthBaseURL == "" {
		return fmt.Errorf("auth-url is required")
	}
	if c.DataBaseURL == "" {
		return fmt.Errorf("data-url is required")
	}
	return nil
}

func appendIfMissing(s, suffix string) string {
	if strings.HasSuffix(s, suffix) {
		return s
	}
	return s + suffix
}

// Config holds all configuration for the command line tool
type Config struct {
	ClientConfig `mapstructure:",squash"`

	// HTTP engine
	HTTPTimeout  time.Duration `mapstructure:"http-timeout"`
	RetryMax     int           `mapstructure:"retry-max"`
	RetryWaitMin time.Duration `mapstructure:"retry-wait-min"`
	RetryWaitMax time.Duration `mapstructure:"retry-wait-max"`

	// Download workflow
	OutputDir      string        `mapstructure:"output"`
	MaxAttempts    int           `mapstructure:"max-attempts"`
	BackoffInitial time.Duration `mapstructure:"backoff-initial"`
	BackoffMax     time.Duration `mapstructure:"backoff-max"`

	// Logging
	Verbose bool   `mapstructure:"verbose"`
	LogFile string `mapstructure:"log-file"`
}

// BackoffConfig holds exponential backoff settings
type BackoffConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultBackoffConfig returns sensible default backoff settings
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval:     2 * time.Second,
		MaxInterval:         60 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// SetupFlags configures persistent CLI flags for the root command
func SetupFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.String("config", "", "Config file (yaml, json or toml)")

	// Endpoints and credentials
	flags.String("auth-url", DefaultAuthBaseURL, "Authentication endpoint base URL")
	flags.String("data-url", DefaultDataBaseURL, "Zone data endpoint base URL")
	flags.StringP("username", "u", "", "CZDS username (or set CZDS_USERNAME env var)")
	flags.StringP("password", "p", "", "CZDS password (or set CZDS_PASSWORD env var)")

	// HTTP engine
	flags.Duration("http-timeout", 60*time.Second, "Timeout for a single HTTP request (0 disables)")
	flags.Int("retry-max", 0, "Retry 429/5xx responses in the HTTP engine up to N times (0 disables)")
	flags.Duration("retry-wait-min", time.Second, "Minimum wait between HTTP engine retries")
	flags.Duration("retry-wait-max", 30*time.Second, "Maximum wait between HTTP engine retries")

	// Download workflow
	flags.StringP("output", "o", "./zones", "Output directory for zone files")
	flags.Int("max-attempts", 3, "Attempts per zone file for transient failures")
	flags.Duration("backoff-initial", 2*time.Second, "Initial backoff interval between attempts")
	flags.Duration("backoff-max", 60*time.Second, "Maximum backoff interval between attempts")

	// Other flags
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	flags.String("log-file", "", "Write debug log to this file")

	// Bind flags to viper
	viper.BindPFlags(flags)

	// Bind environment variables
	viper.SetEnvPrefix("CZDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Load loads configuration from flags, environment and the optional config file, and validates it
func Load() (*Config, error) {
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Load credentials from env if not set via flag
	if cfg.Username == "" {
		cfg.Username = os.Getenv("CZDS_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("CZDS_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NormalizeZones lower-cases, trims and deduplicates TLD names
func NormalizeZones(zones []string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, z := range zones {
		z = strings.ToLower(strings.Trim(strings.TrimSpace(z), "."))
		if z != "" && !seen[z] {
			seen[z] = true
			unique = append(unique, z)
		}
	}
	return unique
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.ClientConfig.Validate(); err != nil {
		return err
	}
	if c.Username == "" {
		return fmt.Errorf("username is required: set --username or CZDS_USERNAME")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required: set --password or CZDS_PASSWORD")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http-timeout must be >= 0")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry-max must be >= 0 (0 disables engine retries)")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be at least 1")
	}
	if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("backoff-initial must be > 0 and <= backoff-max")
	}
	return nil
}

// GetBackoffConfig returns backoff configuration from the config
func (c *Config) GetBackoffConfig() BackoffConfig {
	cfg := DefaultBackoffConfig()
	cfg.InitialInterval = c.BackoffInitial
	cfg.MaxInterval = c.BackoffMax
	return cfg
}
