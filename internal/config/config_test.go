package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, tnsAPIKeyEnv, tnsBotIDEnv, tnsBotNameEnv, databaseDSNEnv,
		s3BucketEnv, telegramTokenEnv, telegramChatIDEnv, logLevelEnv,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.NED.RadiusArcmin)
	assert.Equal(t, 70.0, cfg.Cosmology.H0)
	assert.Equal(t, 0.3, cfg.Cosmology.Om0)
	assert.Equal(t, FormatVOTable, cfg.NED.Format)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
	assert.Empty(t, cfg.TNS.APIKey)

	assert.Error(t, cfg.Validate(), "missing api key must be rejected")
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "digest.yaml")
	raw := `
tns:
  apiKey: from-file
  timeout: 15s
ned:
  format: html
  radiusArcmin: 2.5
cosmology:
  h0: 67.7
pipeline:
  workers: 4
publish:
  s3:
    bucket: reports
scheduler:
  interval: 12h
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	t.Setenv(tnsAPIKeyEnv, "from-env")
	t.Setenv(telegramChatIDEnv, "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TNS.APIKey)
	assert.Equal(t, 15*time.Second, cfg.TNS.Timeout)
	assert.Equal(t, FormatHTML, cfg.NED.Format)
	assert.Equal(t, 2.5, cfg.NED.RadiusArcmin)
	assert.Equal(t, 67.7, cfg.Cosmology.H0)
	assert.Equal(t, 0.3, cfg.Cosmology.Om0)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "reports", cfg.Publish.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Publish.S3.Region)
	assert.Equal(t, "42", cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, 12*time.Hour, cfg.Scheduler.Interval)

	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsExplicitZeroValues(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "digest.yaml")
	raw := `
tns:
  apiKey: key
  requestsPerMinute: 0
cosmology:
  om0: 0
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.TNS.RequestsPerMinute)
	assert.Equal(t, 0.0, cfg.Cosmology.Om0)
	assert.Equal(t, 70.0, cfg.Cosmology.H0)
	assert.Equal(t, 60*time.Second, cfg.TNS.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)

	base, err := Load("")
	require.NoError(t, err)
	base.TNS.APIKey = "key"
	base.TNS.BotID = "1234"
	require.NoError(t, base.Validate())

	mutations := map[string]func(c *Config){
		"format":  func(c *Config) { c.NED.Format = "csv" },
		"radius":  func(c *Config) { c.NED.RadiusArcmin = 0 },
		"h0":      func(c *Config) { c.Cosmology.H0 = -1 },
		"om0":     func(c *Config) { c.Cosmology.Om0 = 1.5 },
		"workers": func(c *Config) { c.Pipeline.Workers = 0 },
		"bot id":  func(c *Config) { c.TNS.BotID = "digest-bot" },
	}
	for name, mutate := range mutations {
		cfg := base
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv(tnsBotNameEnv))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TNS_BOT_NAME=digest_bot\n"), 0o600))

	LoadEnvFiles(path, filepath.Join(t.TempDir(), "missing.env"))
	t.Cleanup(func() { _ = os.Unsetenv(tnsBotNameEnv) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "digest_bot", cfg.TNS.BotName)
}
