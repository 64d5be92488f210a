package kernel_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/barysiuk/kenv/internal/kernel"
	"github.com/barysiuk/kenv/internal/kernel/kerneltest"
)

func TestWatcherPoll(t *testing.T) {
	loc := kerneltest.NewLocator()
	w := kernel.NewWatcher(loc, time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	if got := w.Poll(ctx); len(got) != 0 {
		t.Fatalf("Poll() on empty locator = %v", got)
	}

	loc.Attach("a.ipynb", kerneltest.NewKernel("k1", nil))
	loc.Attach("b.ipynb", kerneltest.NewKernel("k2", nil))
	r := kerneltest.NewKernel("k3", nil)
	r.Lang = "R"
	loc.Attach("c.ipynb", r)

	want := []kernel.Event{
		{Kind: kernel.KernelStarted, Document: "a.ipynb", KernelID: "k1"},
		{Kind: kernel.KernelStarted, Document: "b.ipynb", KernelID: "k2"},
	}
	if diff := cmp.Diff(want, w.Poll(ctx)); diff != "" {
		t.Errorf("Poll() mismatch (-want +got):\n%s", diff)
	}

	if got := w.Poll(ctx); len(got) != 0 {
		t.Errorf("Poll() without changes = %v", got)
	}

	loc.Attach("a.ipynb", kerneltest.NewKernel("k1-restarted", nil))
	loc.Attach("b.ipynb", nil)
	want = []kernel.Event{
		{Kind: kernel.KernelStarted, Document: "a.ipynb", KernelID: "k1-restarted"},
		{Kind: kernel.DocumentClosed, Document: "b.ipynb", KernelID: "k2"},
	}
	if diff := cmp.Diff(want, w.Poll(ctx)); diff != "" {
		t.Errorf("Poll() after changes mismatch (-want +got):\n%s", diff)
	}
}

func TestWatcherWatch(t *testing.T) {
	loc := kerneltest.NewLocator()
	loc.Attach("a.ipynb", kerneltest.NewKernel("k1", nil))
	w := kernel.NewWatcher(loc, 10*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	events := w.Watch(ctx)

	select {
	case ev := <-events:
		if ev.Kind != kernel.KernelStarted || ev.KernelID != "k1" {
			t.Errorf("first event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	loc.Attach("a.ipynb", nil)
	select {
	case ev := <-events:
		if ev.Kind != kernel.DocumentClosed || ev.Document != "a.ipynb" {
			t.Errorf("second event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no close event received")
	}

	cancel()
	for range events {
	}
}

func TestEventKindString(t *testing.T) {
	if got := kernel.KernelStarted.String(); got != "kernel-started" {
		t.Errorf("KernelStarted.String() = %q", got)
	}
	if got := kernel.EventKind(0).String(); got != "unknown" {
		t.Errorf("EventKind(0).String() = %q", got)
	}
}
