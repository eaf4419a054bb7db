package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at a config file that does not exist and clears
// every CHATAI_ variable inherited from the environment.
func isolate(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, envPrefix) {
			t.Setenv(key, "")
		}
	}
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIKey, "12345678")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "12345678", cfg.APIKey)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "chat_data.csv", cfg.DataSource)
	assert.Equal(t, "utf-8", cfg.DataEncoding)
	assert.Equal(t, DataLoad, cfg.DataLoadTimeout)
	assert.Equal(t, GracefulShutdown, cfg.ShutdownTimeout)
	assert.Equal(t, int64(64<<10), cfg.MaxBodyBytes)
	assert.Equal(t, 2000, cfg.MaxMessageRunes)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.MatchStripPunctuation)
	assert.False(t, cfg.RateLimitEnabled())
	assert.Equal(t, "auto", cfg.S3Region)
	assert.Equal(t, "prometheus", cfg.MetricsUsername)
}

func TestLoadForMode(t *testing.T) {
	tests := []struct {
		name        string
		mode        ValidationMode
		env         map[string]string
		wantErr     bool
		errContains string
	}{
		{
			name: "server mode - valid config",
			mode: ServerMode,
			env:  map[string]string{EnvAPIKey: "secret"},
		},
		{
			name:        "server mode - missing api key",
			mode:        ServerMode,
			wantErr:     true,
			errContains: EnvAPIKey,
		},
		{
			name: "tool mode - no api key required",
			mode: ToolMode,
		},
		{
			name:        "server mode - invalid port",
			mode:        ServerMode,
			env:         map[string]string{EnvAPIKey: "secret", EnvPort: "http"},
			wantErr:     true,
			errContains: EnvPort,
		},
		{
			name:        "metrics auth without password",
			mode:        ServerMode,
			env:         map[string]string{EnvAPIKey: "secret", EnvMetricsAuthEnabled: "true"},
			wantErr:     true,
			errContains: EnvMetricsPassword,
		},
		{
			name:        "sentry token without host",
			mode:        ServerMode,
			env:         map[string]string{EnvAPIKey: "secret", EnvSentryToken: "tok"},
			wantErr:     true,
			errContains: EnvSentryHost,
		},
		{
			name:        "s3 source without credentials",
			mode:        ToolMode,
			env:         map[string]string{EnvDataSource: "s3://bucket/chat_data.csv"},
			wantErr:     true,
			errContains: "S3 credentials",
		},
		{
			name: "s3 source with credentials",
			mode: ToolMode,
			env: map[string]string{
				EnvDataSource:        "s3://bucket/chat_data.csv",
				EnvS3AccessKeyID:     "id",
				EnvS3SecretAccessKey: "key",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadForMode(tt.mode)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Port:            "",
		DataSource:      "",
		DataLoadTimeout: 0,
		ShutdownTimeout: time.Second,
		MaxBodyBytes:    1,
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{EnvAPIKey, EnvPort, EnvDataSource, EnvDataLoadTimeout, EnvMaxMessageRunes} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIKey, "k")
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvShutdownTimeout, "5s")
	t.Setenv(EnvRateBurst, "10")
	t.Setenv(EnvMaxMessageRunes, "500")
	t.Setenv(EnvMatchStripPunctuation, "true")
	t.Setenv(EnvCORSAllowedOrigins, "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.RateLimitEnabled())
	assert.Equal(t, 10.0, cfg.RateBurst)
	assert.Equal(t, 500, cfg.MaxMessageRunes)
	assert.True(t, cfg.MatchStripPunctuation)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIKey, "k")
	t.Setenv(EnvShutdownTimeout, "soon")
	t.Setenv(EnvRateRefill, "fast")
	t.Setenv(EnvMetricsAuthEnabled, "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, GracefulShutdown, cfg.ShutdownTimeout)
	assert.InDelta(t, 1.0, cfg.RateRefill, 1e-9)
	assert.False(t, cfg.MetricsAuthEnabled)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := writeConfigFile(t, `
api_key: from-file
port: 9000
data_source: data/responses.csv.zst
rate_refill: 2.5
match_strip_punctuation: true
cors_allowed_origins:
  - https://chat.example
  - https://admin.example
`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "data/responses.csv.zst", cfg.DataSource)
	assert.InDelta(t, 2.5, cfg.RateRefill, 1e-9)
	assert.True(t, cfg.MatchStripPunctuation)
	assert.Equal(t, []string{"https://chat.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_EnvBeatsConfigFile(t *testing.T) {
	isolate(t)
	t.Setenv(EnvConfigFile, writeConfigFile(t, "api_key: from-file\nport: 9000\n"))
	t.Setenv(EnvPort, "7000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "7000", cfg.Port)
}

func TestLoad_BadConfigFile(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "api_key: [unterminated"},
		{"nested mapping", "s3:\n  endpoint: https://r2.example\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(EnvConfigFile, writeConfigFile(t, tt.body))
			t.Setenv(EnvAPIKey, "k")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
