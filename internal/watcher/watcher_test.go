package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	seeds := filepath.Join(dir, "seeds.txt")
	other := filepath.Join(dir, "decomp.c")
	require.NoError(t, os.WriteFile(seeds, []byte("main\n"), 0644))

	runs := make(chan []string, 10)
	w, err := New([]string{seeds}, func(changed []string) error {
		runs <- changed
		return nil
	}, WithDebounceDelay(100*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	// unwatched files in the same directory are ignored
	require.NoError(t, os.WriteFile(other, []byte("int x;\n"), 0644))

	require.NoError(t, os.WriteFile(seeds, []byte("main\nhelper\n"), 0644))
	require.NoError(t, os.WriteFile(seeds, []byte("main\nhelper\nrun\n"), 0644))

	abs, err := filepath.Abs(seeds)
	require.NoError(t, err)

	select {
	case changed := <-runs:
		assert.Equal(t, []string{abs}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not re-run")
	}

	select {
	case changed := <-runs:
		t.Fatalf("unexpected second run for %v", changed)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherSerializesRuns(t *testing.T) {
	dir := t.TempDir()
	seeds := filepath.Join(dir, "seeds.txt")
	require.NoError(t, os.WriteFile(seeds, []byte("main\n"), 0644))

	var mu sync.Mutex
	active, maxActive, total := 0, 0, 0
	w, err := New([]string{seeds}, func(changed []string) error {
		mu.Lock()
		active++
		total++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}, WithDebounceDelay(time.Millisecond))
	require.NoError(t, err)
	w.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(seeds, []byte("main\n"), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return total > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive)
	assert.Equal(t, 0, active)
}

func TestNewRequiresFiles(t *testing.T) {
	_, err := New(nil, func([]string) error { return nil })
	assert.Error(t, err)
}
