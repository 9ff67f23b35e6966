package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "http://localhost:11434", cfg.Model.Endpoint)
	assert.Equal(t, "llama3:latest", cfg.Model.Name)
	assert.True(t, cfg.Agent.AdaptiveSteps)
	assert.Equal(t, 50, cfg.Agent.MaxSteps)
	assert.Equal(t, 1000, cfg.Safety.AuditLogCap)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "llama3:latest", cfg.Model.Name)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
model:
  name: "mistral:7b"
  request_timeout: 45s
agent:
  max_steps: 75
  adaptive_steps: false
memory:
  path: "custom.db"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mistral:7b", cfg.Model.Name)
	assert.Equal(t, 45*time.Second, cfg.Model.RequestTimeout)
	assert.Equal(t, 75, cfg.Agent.MaxSteps)
	assert.False(t, cfg.Agent.AdaptiveSteps)
	assert.Equal(t, "custom.db", cfg.Memory.Path)
	// Untouched sections keep their defaults.
	assert.Equal(t, "http://localhost:11434", cfg.Model.Endpoint)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Model.Endpoint = ""
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Agent.MaxSteps = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRepairsZeroWindows(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Agent.HistoryWindow = 0
	cfg.Agent.SelfTestEvery = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Agent.HistoryWindow)
	assert.Equal(t, 10, cfg.Agent.SelfTestEvery)
}
