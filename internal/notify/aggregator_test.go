package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeroom/internal/platform/metrics"
)

type captureNotifier struct {
	messages []string
	err      error
}

func (n *captureNotifier) Send(_ context.Context, message string) error {
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, message)
	return nil
}

func newTestAggregator(notifier Notifier) (*Aggregator, *metrics.Metrics) {
	m := metrics.NewWith(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(notifier, m, logger, 2*time.Second), m
}

func TestAggregator_FlushEmptyQueueSendsNothing(t *testing.T) {
	notifier := &captureNotifier{}
	agg, m := newTestAggregator(notifier)

	agg.Flush(context.Background())

	assert.Empty(t, notifier.messages)
	assert.Equal(t, 0.0, promtest.ToFloat64(m.NotificationsSent))
}

func TestAggregator_SingleAssetDigest(t *testing.T) {
	notifier := &captureNotifier{}
	agg, m := newTestAggregator(notifier)

	agg.Enqueue(Exit{EPC: "5352562D3031AAAA", TID: "E280110520007122AAAA1111", Asset: "SRV-01"})
	agg.Enqueue(Exit{EPC: "5352562D3031BBBB", TID: "E280110520007122BBBB2222", Asset: "SRV-01"})
	agg.Enqueue(Exit{EPC: "5352562D3031CCCC", TID: "E280110520007122CCCC3333", Asset: "SRV-01"})

	agg.Flush(context.Background())

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Contains(t, msg, "[ASSET EXIT ALERT]")
	assert.Contains(t, msg, "Asset: SRV-01")
	assert.Contains(t, msg, "Qty: 3")
	assert.Contains(t, msg, "1. 7122AAAA1111")
	assert.Contains(t, msg, "3. 7122CCCC3333")
	assert.Equal(t, 1.0, promtest.ToFloat64(m.NotificationsSent))
}

func TestAggregator_MultiAssetDigest(t *testing.T) {
	notifier := &captureNotifier{}
	agg, _ := newTestAggregator(notifier)

	agg.Enqueue(Exit{EPC: "AAAA000000000001", TID: "E2801105AAAA0001", Asset: "SRV-01"})
	agg.Enqueue(Exit{EPC: "AAAA000000000002", TID: "E2801105AAAA0002", Asset: "SRV-01"})
	agg.Enqueue(Exit{EPC: "BBBB000000000001", TID: "E2801105BBBB0001", Asset: "SW-CORE"})

	agg.Flush(context.Background())

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Contains(t, msg, "[MULTIPLE ASSETS EXIT ALERT]")
	assert.Contains(t, msg, "Total Tags OUT: 3")
	assert.Contains(t, msg, "Unique Assets: 2")
	assert.Contains(t, msg, "- SRV-01 (Qty: 2)")
	assert.Contains(t, msg, "- SW-CORE (Qty: 1)")
	assert.Contains(t, msg, "TID: ...AAAA0001")
	assert.NotContains(t, msg, "more asset types")
}

func TestAggregator_MultiAssetDigestCapsGroups(t *testing.T) {
	notifier := &captureNotifier{}
	agg, _ := newTestAggregator(notifier)

	assets := []string{"A", "B", "C", "D", "E", "F", "G"}
	for _, asset := range assets {
		agg.Enqueue(Exit{EPC: "EPC-" + asset, Asset: asset})
	}

	agg.Flush(context.Background())

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Contains(t, msg, "Unique Assets: 7")
	assert.Contains(t, msg, "... and 2 more asset types")
	assert.NotContains(t, msg, "- F (Qty:")
}

func TestAggregator_FailedSendDropsBatch(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("gateway down")}
	agg, m := newTestAggregator(notifier)

	agg.Enqueue(Exit{EPC: "AAAA000000000001", Asset: "SRV-01"})
	agg.Flush(context.Background())

	assert.Equal(t, 1.0, promtest.ToFloat64(m.NotificationsDropped))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.NotificationsSent))

	// The batch is gone: recovery does not resend it.
	notifier.err = nil
	agg.Flush(context.Background())
	assert.Empty(t, notifier.messages)
}

func TestBuildDigest_TIDFallsBackToEPC(t *testing.T) {
	msg := buildDigest([]Exit{
		{EPC: "5352562D30310042", Asset: "SRV-01"},
	}, time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC))

	assert.Contains(t, msg, "Time: 2026-03-14 09:26:53")
	assert.Contains(t, msg, "1. 562D30310042")
}

func TestBuildDigest_GroupOrderIsFirstSeen(t *testing.T) {
	msg := buildDigest([]Exit{
		{EPC: "1", Asset: "ZULU"},
		{EPC: "2", Asset: "ALPHA"},
	}, time.Now())

	zulu := strings.Index(msg, "- ZULU")
	alpha := strings.Index(msg, "- ALPHA")
	require.Positive(t, zulu)
	require.Positive(t, alpha)
	assert.Less(t, zulu, alpha)
}
