package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/extsql/internal/cli/testutil"
	intutil "github.com/leapstack-labs/extsql/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchManifest(t *testing.T) {
	tests := []struct {
		name  string
		watch func(dir, manifest string) string
		touch func(t *testing.T, dir, manifest string)
	}{
		{
			name:  "file",
			watch: func(_, manifest string) string { return manifest },
			touch: func(t *testing.T, _, manifest string) {
				require.NoError(t, os.WriteFile(manifest, []byte(testutil.PetsManifest+"\n"), 0600))
			},
		},
		{
			name:  "directory",
			watch: func(dir, _ string) string { return dir },
			touch: func(t *testing.T, dir, _ string) {
				testutil.WriteManifest(t, dir, "more.yaml", "entities: []\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			manifest := testutil.WriteManifest(t, dir, "extension.yaml", testutil.PetsManifest)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var calls atomic.Int32
			done := make(chan error, 1)
			go func() {
				done <- watchManifest(ctx, tt.watch(dir, manifest), 10*time.Millisecond, intutil.NewTestLogger(t), func() {
					calls.Add(1)
				})
			}()

			// Give the watcher time to register before touching files.
			time.Sleep(100 * time.Millisecond)
			tt.touch(t, dir, manifest)

			assert.Eventually(t, func() bool { return calls.Load() > 0 }, 5*time.Second, 20*time.Millisecond)

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("watcher did not stop")
			}
		})
	}
}

func TestWatchManifest_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteManifest(t, dir, "extension.yaml", testutil.PetsManifest)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchManifest(ctx, dir, 10*time.Millisecond, intutil.NewTestLogger(t), func() {
			calls.Add(1)
		})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0600))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestWatchManifest_MissingPath(t *testing.T) {
	err := watchManifest(context.Background(), filepath.Join(t.TempDir(), "nope"), time.Millisecond, intutil.NewTestLogger(t), func() {})
	assert.Error(t, err)
}
