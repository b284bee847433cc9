package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticationURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"no trailing slash", "https://account-api.icann.org", "https://account-api.icann.org/api/authenticate/"},
		{"trailing slash", "https://account-api.icann.org/", "https://account-api.icann.org/api/authenticate/"},
		{"with path", "http://127.0.0.1:8080/auth", "http://127.0.0.1:8080/auth/api/authenticate/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ClientConfig{AuthBaseURL: tt.baseURL}
			assert.Equal(t, tt.want, cfg.AuthenticationURL())
		})
	}
}

func TestDataURL(t *testing.T) {
	for _, base := range []string{"https://czds-api.icann.org", "https://czds-api.icann.org/"} {
		cfg := ClientConfig{DataBaseURL: base}
		assert.Equal(t, "https://czds-api.icann.org/czds/downloads/links", cfg.DataURL("/czds/downloads/links"))
		assert.Equal(t, "https://czds-api.icann.org/czds/downloads/links", cfg.DataURL("czds/downloads/links"))
	}
}

func TestClientConfigValidate(t *testing.T) {
	assert.NoError(t, ClientConfig{AuthBaseURL: "https://a", DataBaseURL: "https://d"}.Validate())
	assert.Error(t, ClientConfig{DataBaseURL: "https://d"}.Validate())
	assert.Error(t, ClientConfig{AuthBaseURL: "https://a"}.Validate())
}

func validConfig() *Config {
	return &Config{
		ClientConfig: ClientConfig{
			AuthBaseURL: DefaultAuthBaseURL,
			DataBaseURL: DefaultDataBaseURL,
			Username:    "alice",
			Password:    "s3cr3t",
		},
		HTTPTimeout:    time.Minute,
		OutputDir:      "./zones",
		MaxAttempts:    3,
		BackoffInitial: time.Second,
		BackoffMax:     time.Minute,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing username", func(c *Config) { c.Username = "" }},
		{"missing password", func(c *Config) { c.Password = "" }},
		{"missing auth url", func(c *Config) { c.AuthBaseURL = "" }},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }},
		{"negative retry max", func(c *Config) { c.RetryMax = -1 }},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"backoff max below initial", func(c *Config) { c.BackoffMax = time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNormalizeZones(t *testing.T) {
	got := NormalizeZones([]string{" COM ", "net.", "com", "", ".org"})
	assert.Equal(t, []string{"com", "net", "org"}, got)
	assert.Nil(t, NormalizeZones(nil))
}

func TestGetBackoffConfig(t *testing.T) {
	cfg := validConfig()
	bo := cfg.GetBackoffConfig()
	assert.Equal(t, time.Second, bo.InitialInterval)
	assert.Equal(t, time.Minute, bo.MaxInterval)
	assert.Equal(t, 2.0, bo.Multiplier)
}
