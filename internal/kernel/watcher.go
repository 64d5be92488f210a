package kernel

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// EventKind classifies watcher events.
type EventKind int

const (
	KernelStarted EventKind = iota + 1 // a document got a kernel not seen before
	DocumentClosed                     // a document known to have a kernel went away
)

func (k EventKind) String() string {
	switch k {
	case KernelStarted:
		return "kernel-started"
	case DocumentClosed:
		return "document-closed"
	default:
		return "unknown"
	}
}

// Event is emitted by a Watcher when the set of live kernels changes.
type Event struct {
	Kind     EventKind
	Document string
	KernelID string
}

// Watcher polls a Locator for kernels. The server offers no notification
// when kernels start, so the only way to notice them is to look again.
type Watcher struct {
	locator  Locator
	interval time.Duration
	logger   *zap.Logger

	known map[string]string // document -> kernel id
}

// NewWatcher creates a Watcher polling every interval.
func NewWatcher(loc Locator, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		locator:  loc,
		interval: interval,
		logger:   logger,
		known:    make(map[string]string),
	}
}

// Watch polls until ctx is cancelled. The returned channel is closed when
// the watcher stops.
func (w *Watcher) Watch(ctx context.Context) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			for _, ev := range w.Poll(ctx) {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return events
}

// Poll checks the locator once and returns the changes since the last poll.
// Watch calls it on every tick; it is not safe for concurrent use.
func (w *Watcher) Poll(ctx context.Context) []Event {
	docs, err := w.locator.Documents(ctx)
	if err != nil {
		w.logger.Warn("failed to list documents with kernels", zap.Error(err))
		return nil
	}

	var events []Event
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc] = true
		k, err := w.locator.KernelFor(ctx, doc)
		if err != nil {
			w.logger.Warn("failed to get kernel for document", zap.String("document", doc), zap.Error(err))
			continue
		}
		if k == nil {
			continue
		}
		if w.known[doc] == k.ID() {
			continue
		}
		w.known[doc] = k.ID()
		events = append(events, Event{Kind: KernelStarted, Document: doc, KernelID: k.ID()})
	}
	var closed []string
	for doc := range w.known {
		if !seen[doc] {
			closed = append(closed, doc)
		}
	}
	sort.Strings(closed)
	for _, doc := range closed {
		events = append(events, Event{Kind: DocumentClosed, Document: doc, KernelID: w.known[doc]})
		delete(w.known, doc)
	}
	return events
}
