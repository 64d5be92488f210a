package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf syncBuffer
	l, closeLog, err := newLogger(&buf, false, "")
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()
	l.Debug("hidden")
	l.Warn("shown")
	if got := buf.String(); !contains(got, "shown") || contains(got, "hidden") {
		t.Errorf("default logger output = %q", got)
	}

	buf.Reset()
	l, closeVerbose, err := newLogger(&buf, true, "")
	if err != nil {
		t.Fatal(err)
	}
	defer closeVerbose()
	l.Debug("visible")
	if !contains(buf.String(), "visible") {
		t.Errorf("verbose logger output = %q", buf.String())
	}

	if _, _, err := newLogger(&buf, false, t.TempDir()); err == nil {
		t.Error("newLogger() with a directory as log file should fail")
	}
}

// overlapWriter records whether two writes were ever in flight at once.
type overlapWriter struct {
	inflight atomic.Int32
	overlap  atomic.Bool
	lines    atomic.Int32
}

func (w *overlapWriter) Write(p []byte) (int, error) {
	if w.inflight.Add(1) > 1 {
		w.overlap.Store(true)
	}
	time.Sleep(100 * time.Microsecond)
	w.lines.Add(1)
	w.inflight.Add(-1)
	return len(p), nil
}

func TestNewLoggerSerializesWrites(t *testing.T) {
	w := &overlapWriter{}
	l, closeLog, err := newLogger(w, false, "")
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				l.Error("listing failed")
			}
		}()
	}
	wg.Wait()

	if w.overlap.Load() {
		t.Error("console writes overlapped")
	}
	if got := w.lines.Load(); got != 80 {
		t.Errorf("wrote %d entries, want 80", got)
	}
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kenv.log")
	var buf syncBuffer
	l, closeLog, err := newLogger(&buf, false, path)
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("execute request sent")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"execute request sent"`) {
		t.Errorf("log file = %q", data)
	}
	if contains(buf.String(), "execute request sent") {
		t.Errorf("debug entry reached the console: %q", buf.String())
	}
}
