package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/drover/internal/config"
	"github.com/xkilldash9x/drover/internal/memory"
	"github.com/xkilldash9x/drover/internal/safety"
	"github.com/xkilldash9x/drover/internal/tools"
)

func TestRunDiagnosticsAllPass(t *testing.T) {
	dir := t.TempDir()
	store, err := memory.New(config.MemoryConfig{
		Path:            filepath.Join(dir, "mem.db"),
		EvictionAge:     30 * 24 * time.Hour,
		ImportanceFloor: 0.3,
		ContextItems:    10,
	}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	registry := tools.NewRegistry(tools.Deps{
		Memory: store,
		Safety: safety.New(config.SafetyConfig{AuditLogPath: filepath.Join(dir, "audit.json")}, zap.NewNop()),
		Logger: zap.NewNop(),
	})

	report := RunDiagnostics(context.Background(), registry, store)

	require.NotEmpty(t, report.Checks)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, "%s: %s", c.Name, c.Detail)
	}
	assert.Equal(t, 1.0, report.PassRate())
}

func TestPassRateEmptyReport(t *testing.T) {
	assert.Equal(t, 0.0, DiagnosticsReport{}.PassRate())
}
