// Package pipeline wires the poll loop: reader -> debounce -> presence state
// machine -> broadcaster/notifier fan-out.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Debouncer suppresses reprocessing of the same tag+antenna pair inside the
// debounce window.
type Debouncer interface {
	// Accept reports whether the reading should be processed and, when true,
	// records now as the pair's last processed time.
	Accept(ctx context.Context, epc string, antenna int, now time.Time) (bool, error)
	// Reset clears all debounce state (admin clear).
	Reset(ctx context.Context) error
}

func debounceKey(epc string, antenna int) string {
	return fmt.Sprintf("%s_%d", epc, antenna)
}

// MemoryDebouncer is the default in-process implementation. The single lock
// also covers Reset, which may be called from the HTTP admin endpoint while
// the poll loop is accepting.
type MemoryDebouncer struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func NewMemoryDebouncer(window time.Duration) *MemoryDebouncer {
	return &MemoryDebouncer{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

func (d *MemoryDebouncer) Accept(_ context.Context, epc string, antenna int, now time.Time) (bool, error) {
	key := debounceKey(epc, antenna)

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false, nil
	}
	d.seen[key] = now
	return true, nil
}

func (d *MemoryDebouncer) Reset(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]time.Time)
	return nil
}

// Sweep evicts entries whose window has long expired so the map does not
// grow without bound over weeks of uptime. Entries are kept for a full extra
// window beyond expiry; sweeping is about memory, not correctness.
func (d *MemoryDebouncer) Sweep(now time.Time) int {
	cutoff := now.Add(-2 * d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, last := range d.seen {
		if last.Before(cutoff) {
			delete(d.seen, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked pairs.
func (d *MemoryDebouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
