package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  port: 38472
  dedup_backend: file
polling:
  interval_seconds: 90
board:
  enabled: true
  base_url: https://board.example.net
  url: https://board.example.net/listing.asp
extraction:
  layout:
    - column: 0
      role: company_terms
    - column: 1
      role: vehicle_load_id
    - column: 6
      role: vehicle_miles
    - column: 7
      role: pieces_weight
  limits:
    miles_min: 1
    miles_max: 9999
notify:
  telegram:
    enabled: true
    chat_id: "12345"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, 38472, cfg.App.Port)
	require.Equal(t, "file", cfg.App.DedupBackend)
	require.Equal(t, 90, cfg.Polling.IntervalSeconds)
	require.Equal(t, 60, cfg.Polling.BackoffSeconds)
	require.Equal(t, 993, cfg.Email.IMAPPort)
	require.Equal(t, "INBOX", cfg.Email.Mailbox)
	require.Equal(t, 5, cfg.Notify.BatchSummaryAt)
	require.Equal(t, 0.75, cfg.Notify.EstimateRatePerMile)
	require.Equal(t, 4096, cfg.Notify.MaxMessageLen)
	require.Len(t, cfg.Extraction.Layout, 4)
	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadRole(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg.Extraction.Layout[0].Role = "not_a_role"
	err = Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a known role")
}

func TestValidateRejectsDuplicateColumn(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg.Extraction.Layout[1].Column = 0
	require.Error(t, Validate(cfg))
}

func TestValidateRequiresBoardURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg.Board.URL = ""
	require.Error(t, Validate(cfg))
}

func TestValidateRequiresChatID(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg.Notify.Telegram.ChatID = ""
	require.Error(t, Validate(cfg))
}

func TestSaveAtomicKeepsBackup(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.Polling.IntervalSeconds = 120
	require.NoError(t, SaveAtomic(path, cfg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 120, reloaded.Polling.IntervalSeconds)

	_, err = os.Stat(path + ".bak")
	require.NoError(t, err)
}

func TestEnsureUserConfigCopiesDefault(t *testing.T) {
	dataDir := t.TempDir()
	defaultPath := writeConfig(t, sampleYAML)

	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dataDir, "config.yml"), userPath)

	cfg, err := Load(userPath)
	require.NoError(t, err)
	require.True(t, cfg.Board.Enabled)

	// A second call leaves the existing user copy untouched.
	again, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	require.Equal(t, userPath, again)
}
