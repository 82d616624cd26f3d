package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/mrcov/internal/domain"
)

func include(t *testing.T, patterns ...string) domain.IncludeFilter {
	t.Helper()
	f, err := domain.NewIncludeFilter(patterns...)
	if err != nil {
		t.Fatalf("include filter: %v", err)
	}
	return f
}

func newWatched(t *testing.T, dir string, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(append([]Option{WithDebounce(50 * time.Millisecond)}, opts...)...)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	if err := w.WatchDir(dir); err != nil {
		t.Fatalf("watch dir: %v", err)
	}
	return w
}

func expectEvent(t *testing.T, events <-chan struct{}, ctx context.Context) {
	t.Helper()
	select {
	case <-events:
	case <-ctx.Done():
		t.Fatal("timeout waiting for file change event")
	}
}

func expectNoEvent(t *testing.T, events <-chan struct{}, ctx context.Context) {
	t.Helper()
	select {
	case <-events:
		t.Fatal("unexpected file change event")
	case <-ctx.Done():
	}
}

func TestWatcherDetectsSourceChanges(t *testing.T) {
	dir := t.TempDir()
	w := newWatched(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	if err := os.WriteFile(filepath.Join(dir, "A.java"), []byte("class A {}"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectEvent(t, events, ctx)
}

func TestWatcherDetectsRemovedClasses(t *testing.T) {
	dir := t.TempDir()
	class := filepath.Join(dir, "A.class")
	if err := os.WriteFile(class, []byte{0xca, 0xfe}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	w := newWatched(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	if err := os.Remove(class); err != nil {
		t.Fatalf("remove: %v", err)
	}
	expectEvent(t, events, ctx)
}

func TestWatcherDetectsAnyFileWithoutInclude(t *testing.T) {
	dir := t.TempDir()
	w := newWatched(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	if err := os.WriteFile(filepath.Join(dir, "messages.properties"), []byte("k=v"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectEvent(t, events, ctx)
}

func TestWatcherIgnoresExcludedFiles(t *testing.T) {
	dir := t.TempDir()
	w := newWatched(t, dir, WithInclude(include(t, "*.java", "*.class")))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	events := w.Events(ctx)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectNoEvent(t, events, ctx)
}

func TestWatcherWithCustomInclude(t *testing.T) {
	dir := t.TempDir()
	w := newWatched(t, dir, WithInclude(include(t, "*.kt")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	if err := os.WriteFile(filepath.Join(dir, "A.kt"), []byte("class A"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectEvent(t, events, ctx)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w := newWatched(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	pkg := filepath.Join(dir, "org", "x")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher time to add the new directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(pkg, "B.java"), []byte("class B {}"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectEvent(t, events, ctx)
}

func TestWatcherPicksUpMissingRoot(t *testing.T) {
	dir := t.TempDir()
	parent := filepath.Join(dir, "src", "main")
	if err := os.MkdirAll(parent, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	root := filepath.Join(parent, "java21")
	w := newWatched(t, root)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)

	if err := os.MkdirAll(filepath.Join(root, "p"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "p", "A.java"), []byte("class A {}"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectEvent(t, events, ctx)
}

func TestWatchDirRejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "A.java")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	w, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()
	if err := w.WatchDir(file); err == nil {
		t.Fatal("expected an error for a file root")
	}
}

func TestWatcherSkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".gradle")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	w := newWatched(t, dir)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	events := w.Events(ctx)

	if err := os.WriteFile(filepath.Join(hidden, "A.class"), []byte{0xca}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	expectNoEvent(t, events, ctx)
}

func TestWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	w, err := New(WithDebounce(100 * time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()
	if err := w.WatchDir(dir); err != nil {
		t.Fatalf("watch dir: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events := w.Events(ctx)
	file := filepath.Join(dir, "A.java")

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(file, []byte("class A { // "+string(rune('a'+i))+"\n}"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	eventCount := 0
	timeout := time.After(300 * time.Millisecond)
loop:
	for {
		select {
		case <-events:
			eventCount++
		case <-timeout:
			break loop
		}
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 debounced event, got %d", eventCount)
	}
}

func TestRelevant(t *testing.T) {
	w := &Watcher{include: include(t, "*.java", "*.class")}
	tests := map[string]bool{
		"A.java":           true,
		"p/A$Inner.class":  true,
		"README.md":        false,
		"p/A.java.swp":     false,
		"java.class/A.txt": false,
	}
	for path, want := range tests {
		if got := w.relevant(filepath.FromSlash(path)); got != want {
			t.Errorf("relevant(%q) = %v, want %v", path, got, want)
		}
	}

	w.SetInclude(domain.IncludeFilter{})
	if !w.relevant("anything") {
		t.Error("an empty include filter means every file")
	}
}
