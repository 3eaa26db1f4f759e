package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMonitorReportsTargetWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "appointments.csv")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(target, []byte(header+"\n"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(target, past, past))

	monitor, err := NewFileMonitor(target)
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, func(path string) { changes <- path })
	}()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(target, []byte(sampleCSV), 0644))

	select {
	case path := <-changes:
		assert.Equal(t, filepath.Base(target), filepath.Base(path))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the data file")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestNewFileMonitorMissingDir(t *testing.T) {
	_, err := NewFileMonitor(filepath.Join(t.TempDir(), "missing", "appointments.csv"))
	assert.Error(t, err)
}
