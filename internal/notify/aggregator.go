package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"timeroom/internal/platform/metrics"
)

const (
	maxDigestGroups       = 5
	maxTagsPerGroup       = 3
	digestTimestampLayout = "2006-01-02 15:04:05"
)

// Exit describes one OUT event queued for digest notification.
type Exit struct {
	EPC   string
	TID   string
	Asset string
}

// Aggregator collects exits across an aggregation window and emits at most
// one digest per tick. The queue lock is the only synchronization between
// the poll loop (enqueue) and the timer (drain).
type Aggregator struct {
	mu    sync.Mutex
	queue []Exit

	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
}

func NewAggregator(notifier Notifier, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *Aggregator {
	return &Aggregator{
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		interval: interval,
	}
}

// Enqueue appends an exit for the next digest. Never blocks beyond the lock.
func (a *Aggregator) Enqueue(exit Exit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, exit)
}

// Run drains the queue on a fixed tick until ctx is cancelled. An empty
// queue sends nothing; there are no heartbeat messages.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush atomically drains pending exits and sends one digest if any were
// queued. A failed send drops the batch: duplicating alerts during a retry
// storm is worse than losing one.
func (a *Aggregator) Flush(ctx context.Context) {
	a.mu.Lock()
	pending := a.queue
	a.queue = nil
	a.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	message := buildDigest(pending, time.Now())
	if err := a.notifier.Send(ctx, message); err != nil {
		a.metrics.NotificationsDropped.Inc()
		a.logger.Warn("exit notification dropped", "exits", len(pending), "error", err)
		return
	}
	a.metrics.NotificationsSent.Inc()
	a.logger.Info("exit notification sent", "exits", len(pending))
}

type assetGroup struct {
	asset string
	tags  []Exit
}

// buildDigest groups exits by asset signature and renders the alert text.
func buildDigest(exits []Exit, now time.Time) string {
	var order []string
	groups := make(map[string]*assetGroup)
	for _, exit := range exits {
		group, ok := groups[exit.Asset]
		if !ok {
			group = &assetGroup{asset: exit.Asset}
			groups[exit.Asset] = group
			order = append(order, exit.Asset)
		}
		group.tags = append(group.tags, exit)
	}

	timestamp := now.Format(digestTimestampLayout)

	if len(order) == 1 {
		group := groups[order[0]]
		var b strings.Builder
		b.WriteString("[ASSET EXIT ALERT]\n\n")
		fmt.Fprintf(&b, "Time: %s\n", timestamp)
		fmt.Fprintf(&b, "Asset: %s\n", group.asset)
		fmt.Fprintf(&b, "Qty: %d\n\n", len(group.tags))
		b.WriteString("TID(s):\n")
		for i, tag := range group.tags {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, shortTag(tag, 12))
		}
		b.WriteString("\nAsset detected leaving the monitored area")
		return b.String()
	}

	var b strings.Builder
	b.WriteString("[MULTIPLE ASSETS EXIT ALERT]\n\n")
	fmt.Fprintf(&b, "Time: %s\n", timestamp)
	fmt.Fprintf(&b, "Total Tags OUT: %d\n", len(exits))
	fmt.Fprintf(&b, "Unique Assets: %d\n\n", len(order))

	listed := order
	if len(listed) > maxDigestGroups {
		listed = listed[:maxDigestGroups]
	}
	for _, asset := range listed {
		group := groups[asset]
		fmt.Fprintf(&b, "- %s (Qty: %d)\n", group.asset, len(group.tags))
		tags := group.tags
		if len(tags) > maxTagsPerGroup {
			tags = tags[:maxTagsPerGroup]
		}
		for _, tag := range tags {
			fmt.Fprintf(&b, "    TID: ...%s\n", shortTag(tag, 8))
		}
	}
	if len(order) > maxDigestGroups {
		fmt.Fprintf(&b, "... and %d more asset types\n", len(order)-maxDigestGroups)
	}
	b.WriteString("\nAssets detected leaving the monitored area")
	return b.String()
}

// shortTag returns the trailing n characters of the exit's TID, falling back
// to the EPC for tags whose reader omitted the TID.
func shortTag(exit Exit, n int) string {
	id := exit.TID
	if id == "" {
		id = exit.EPC
	}
	if len(id) > n {
		return id[len(id)-n:]
	}
	return id
}
