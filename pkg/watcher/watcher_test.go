package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			calls.Add(1)
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 callback invocation, got %d", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() {
		called.Store(true)
	})
	d.Cancel()

	time.Sleep(120 * time.Millisecond)

	if called.Load() {
		t.Error("callback ran after Cancel")
	}
}

func TestDebouncerDefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("duration = %v, want %v", d.Duration(), DefaultDebounceDuration)
	}
}

func writeLibrary(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "library.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWatcherDetectsLibraryChange(t *testing.T) {
	path := writeLibrary(t, t.TempDir(), `{"kind":"node","id":"n1"}`)

	var changed atomic.Bool
	w, err := New(path,
		WithDebounce(50*time.Millisecond),
		WithOnChange(func() { changed.Store(true) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"kind":"node","id":"n2"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !changed.Load() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if !changed.Load() {
		t.Error("library change not detected")
	}
}

func TestWatcherChangeChannel(t *testing.T) {
	path := writeLibrary(t, t.TempDir(), "a")

	w, err := New(path, WithDebounce(30*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("bb"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changed():
	case <-time.After(2 * time.Second):
		t.Error("no change signal received")
	}
}

func TestWatcherPollingFallback(t *testing.T) {
	path := writeLibrary(t, t.TempDir(), "initial")

	var changed atomic.Bool
	w, err := New(path,
		WithForcePoll(true),
		WithPollInterval(30*time.Millisecond),
		WithDebounce(30*time.Millisecond),
		WithOnChange(func() { changed.Store(true) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected polling mode when forced")
	}

	// Size change guarantees detection even with coarse mtime resolution.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("modified content"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !changed.Load() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if !changed.Load() {
		t.Error("polling did not detect change")
	}
}

func TestWatcherReportsRemoval(t *testing.T) {
	path := writeLibrary(t, t.TempDir(), "data")

	errCh := make(chan error, 4)
	w, err := New(path,
		WithForcePoll(true),
		WithPollInterval(30*time.Millisecond),
		WithOnError(func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-errCh:
		if !errors.Is(got, ErrLibraryRemoved) {
			t.Errorf("error = %v, want ErrLibraryRemoved", got)
		}
	case <-time.After(2 * time.Second):
		t.Error("removal not reported")
	}
}

func TestWatcherStartTwice(t *testing.T) {
	path := writeLibrary(t, t.TempDir(), "x")

	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	path := writeLibrary(t, t.TempDir(), "x")

	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()

	if w.IsStarted() {
		t.Error("watcher still started after Stop")
	}
}

func TestWatcherMissingFileStarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not_yet.jsonl")

	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start with missing file = %v", err)
	}
	w.Stop()
}

func TestWatcherEnvForcePoll(t *testing.T) {
	t.Setenv("TM_FORCE_POLL", "true")

	path := writeLibrary(t, t.TempDir(), "x")
	w, err := New(path, WithPollInterval(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Error("TM_FORCE_POLL not honored")
	}
}

func TestWatcherPollIntervalAccessor(t *testing.T) {
	path := writeLibrary(t, t.TempDir(), "x")

	custom := 750 * time.Millisecond
	w, err := New(path, WithPollInterval(custom))
	if err != nil {
		t.Fatal(err)
	}
	if got := w.PollInterval(); got != custom {
		t.Errorf("poll interval = %v, want %v", got, custom)
	}
}

func TestFilesystemTypeString(t *testing.T) {
	tests := []struct {
		fsType FilesystemType
		want   string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.fsType.String(); got != tc.want {
			t.Errorf("FilesystemType(%d).String() = %q, want %q", tc.fsType, got, tc.want)
		}
	}
}

func TestFilesystemTypeRemote(t *testing.T) {
	for _, remote := range []FilesystemType{FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE} {
		if !remote.Remote() {
			t.Errorf("%v should be remote", remote)
		}
	}
	for _, local := range []FilesystemType{FSTypeUnknown, FSTypeLocal} {
		if local.Remote() {
			t.Errorf("%v should not be remote", local)
		}
	}
}

func TestDetectFilesystemTypeEmptyPath(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("DetectFilesystemType(\"\") = %v, want FSTypeUnknown", got)
	}
}

func TestClassifyFilesystem(t *testing.T) {
	tests := []struct {
		name string
		want FilesystemType
	}{
		{"ext4", FSTypeLocal},
		{"btrfs", FSTypeLocal},
		{"nfs4", FSTypeNFS},
		{"cifs", FSTypeSMB},
		{"fuse.sshfs", FSTypeSSHFS},
		{"fuse.gvfsd-fuse", FSTypeFUSE},
	}
	for _, tc := range tests {
		if got := classifyFilesystem(tc.name); got != tc.want {
			t.Errorf("classifyFilesystem(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}
	for _, tc := range tests {
		t.Setenv("TM_TEST_BOOL", tc.value)
		if got := envBool("TM_TEST_BOOL"); got != tc.want {
			t.Errorf("envBool(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
