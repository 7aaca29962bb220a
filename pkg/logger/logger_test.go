package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(
		WithLevel("debug"),
		WithEncoding("json"),
		WithLogDir(dir, "server"),
	)
	require.NoError(t, err)

	log.Named("jobs").Info("job accepted", JobID("abc"))
	log.Error("job failed", Error(errors.New("boom")))
	_ = log.Sync()

	app, err := os.ReadFile(filepath.Join(dir, "server.log"))
	require.NoError(t, err)
	assert.Contains(t, string(app), `"job_id":"abc"`)
	assert.Contains(t, string(app), `"logger":"jobs"`)

	errLog, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errLog), "job failed")
	assert.False(t, strings.Contains(string(errLog), "job accepted"))
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(WithLevel("loud"), WithLogDir("", "x"))
	require.Error(t, err)
}

func TestTestLoggerSharesEntries(t *testing.T) {
	tl := NewTestLogger()
	child := tl.Named("orchestrator").With(String("k", "v"))
	child.Warn("slow page")
	tl.Info("root")

	entries := tl.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "orchestrator", entries[0].Logger)
	assert.Len(t, entries[0].Fields, 1)
	assert.True(t, tl.HasMessage("WARN", "slow page"))

	tl.Clear()
	assert.Empty(t, tl.GetEntries())
}

func TestContextLogger(t *testing.T) {
	fallback := NewNop()
	tl := NewTestLogger()
	ctx := NewContext(context.Background(), tl)
	assert.Equal(t, Logger(tl), FromContext(ctx, fallback))
	assert.Equal(t, fallback, FromContext(context.Background(), fallback))
}
