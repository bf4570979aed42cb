package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

func startWatcher(t *testing.T, cfg Config) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := New(cfg)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)

	// Give fsnotify time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return cancel, done
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_RunsAfterChange(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan struct{}, 10)

	startWatcher(t, Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Run: func(ctx context.Context) error {
			calls <- struct{}{}
			return nil
		},
		Logger: zerolog.Nop(),
	})

	writeFile(t, dir, "A.json")

	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("run not invoked after change")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	startWatcher(t, Config{
		Dir:      dir,
		Debounce: 200 * time.Millisecond,
		Run: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
		Logger: zerolog.Nop(),
	})

	for _, name := range []string{"A.json", "B.json", "C.json", "D.json"} {
		writeFile(t, dir, name)
	}

	time.Sleep(800 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	startWatcher(t, Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Run: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
		Logger: zerolog.Nop(),
	})

	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, ".A.json.swp")

	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestWatcher_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan struct{}, 10)

	startWatcher(t, Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Run: func(ctx context.Context) error {
			calls <- struct{}{}
			return errors.New("compile failed")
		},
		Logger: zerolog.Nop(),
	})

	for _, name := range []string{"A.json", "B.json"} {
		writeFile(t, dir, name)
		select {
		case <-calls:
		case <-time.After(3 * time.Second):
			t.Fatalf("run not invoked after writing %s", name)
		}
	}
}

func TestWatcher_InitialRunAndCancel(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	cancel, done := startWatcher(t, Config{
		Dir: dir,
		Run: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
		Initial: true,
		Logger:  zerolog.Nop(),
	})

	if got := calls.Load(); got != 1 {
		t.Errorf("initial calls = %d, want 1", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(Config{
		Dir:    filepath.Join(t.TempDir(), "missing"),
		Run:    func(ctx context.Context) error { return nil },
		Logger: zerolog.Nop(),
	})
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/s/A.json", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/s/A.json", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/s/A.json", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/s/A.json", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/s/A.json", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/s/A.yaml", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/s/.json", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/s/.A.json", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		if got := relevant(tt.event); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}
