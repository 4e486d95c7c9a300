package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("USERS_API_BASE_URL", "https://jsonplaceholder.typicode.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "es", cfg.AppLocale)
	assert.Equal(t, 10*time.Second, cfg.UsersAPITimeout)
	assert.Equal(t, "*/15 * * * *", cfg.UsersSyncCron)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_LOCALE", "en")
	t.Setenv("USERS_API_BASE_URL", "http://users.internal:9000/api")
	t.Setenv("USERS_API_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "en", cfg.AppLocale)
	assert.Equal(t, "http://users.internal:9000/api", cfg.UsersAPIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.UsersAPITimeout)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"relative url":  {"USERS_API_BASE_URL": "users"},
		"ftp url":       {"USERS_API_BASE_URL": "ftp://example.com"},
		"zero timeout":  {"USERS_API_TIMEOUT": "0s"},
		"bad duration":  {"USERS_API_TIMEOUT": "soon"},
		"no rate limit": {"RATE_LIMIT_PER_MINUTE": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNilConfigIsNotProduction(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
}
