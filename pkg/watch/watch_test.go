package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileCallsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.kerf")
	if err := os.WriteFile(path, []byte("(box \"a\")"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "other.kerf")

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- File(ctx, path, 50*time.Millisecond, func() {
			calls.Add(1)
			changed <- struct{}{}
		})
	}()

	// Give the watcher time to register before touching files.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("(box \"b\")"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	// Let any stray debounce expire; the burst must have coalesced.
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange called %d times, want 1", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("File returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("File did not return after cancel")
	}
}

func TestFileMissingDirectory(t *testing.T) {
	err := File(context.Background(), filepath.Join(t.TempDir(), "nope", "x.kerf"), 0, func() {})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
