package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)

	assert.Equal(t, int64(1), cfg.Analysis.WindowBefore)
	assert.Equal(t, int64(2), cfg.Analysis.WindowAfter)
	assert.False(t, cfg.Analysis.HideSensitive)
	assert.True(t, cfg.Analysis.SplitIncomeExpense)

	assert.False(t, cfg.Whois.Enabled)
	assert.Equal(t, "http://ip-api.com/json", cfg.Whois.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Whois.Timeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BANKFLOW_SERVER_PORT", "9090")
	t.Setenv("BANKFLOW_ANALYSIS_WINDOW_AFTER", "5")
	t.Setenv("BANKFLOW_ANALYSIS_HIDE_SENSITIVE", "true")
	t.Setenv("BANKFLOW_WHOIS_ENABLED", "true")
	t.Setenv("BANKFLOW_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(5), cfg.Analysis.WindowAfter)
	assert.True(t, cfg.Analysis.HideSensitive)
	assert.True(t, cfg.Whois.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched fields keep their defaults.
	assert.Equal(t, int64(1), cfg.Analysis.WindowBefore)
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 3000
analysis:
  window_before: 3
  window_after: 10
  sensitive_columns: [2, 5]
whois:
  enabled: true
  rate_per_second: 1
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := loadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, int64(3), cfg.Analysis.WindowBefore)
	assert.Equal(t, int64(10), cfg.Analysis.WindowAfter)
	assert.Equal(t, []int{2, 5}, cfg.Analysis.SensitiveColumns)
	assert.True(t, cfg.Whois.Enabled)
	assert.Equal(t, float64(1), cfg.Whois.RatePerSecond)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := loadFromFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "negative window",
			mutate:  func(c *Config) { c.Analysis.WindowBefore = -1 },
			wantErr: "match window bounds",
		},
		{
			name:    "negative sensitive column",
			mutate:  func(c *Config) { c.Analysis.SensitiveColumns = []int{2, -5} },
			wantErr: "invalid sensitive column",
		},
		{
			name:    "zero whois rate",
			mutate:  func(c *Config) { c.Whois.RatePerSecond = 0 },
			wantErr: "whois rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}
