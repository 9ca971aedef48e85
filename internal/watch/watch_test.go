package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_CallsOnChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "plate.csv")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(target, []byte("step\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Files(ctx, []string{target}, 20*time.Millisecond, nil, func(path string) {
			changed <- path
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("ignored\n"), 0644))
	require.NoError(t, os.WriteFile(target, []byte("step\nstage\n"), 0644))

	want, err := filepath.Abs(target)
	require.NoError(t, err)
	select {
	case got := <-changed:
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestFiles_NoCallbackAfterReturn(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "durations.yaml")
	require.NoError(t, os.WriteFile(target, []byte("[]\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	var returned, late atomic.Bool
	done := make(chan error, 1)
	go func() {
		err := Files(ctx, []string{target}, 50*time.Millisecond, nil, func(string) {
			if returned.Load() {
				late.Store(true)
			}
		})
		returned.Store(true)
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("- step: wash\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}
	// cancel while the debounce timer is still pending
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	time.Sleep(150 * time.Millisecond)
	assert.False(t, late.Load(), "onChange ran after Files returned")
}

func TestFiles_MissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "plate.csv")
	err := Files(context.Background(), []string{missing}, 0, nil, func(string) {})
	assert.Error(t, err)
}
