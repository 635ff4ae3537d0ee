package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweepRemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "stale.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "fresh.pdf")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o600))

	j := New(dir, time.Hour, zap.NewNop())
	j.Sweep()

	_, err := os.Stat(stale)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	require.NoError(t, err)
}

func TestSweepIgnoresSubdirs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "keep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	j := New(dir, time.Nanosecond, zap.NewNop())
	j.Sweep()

	_, err := os.Stat(sub)
	require.NoError(t, err)
}

func TestSweepMissingDirIsNoop(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "absent"), time.Hour, zap.NewNop())
	j.Sweep() // must not panic or create the dir
}
