// Package broadcast fans scan events out to WebSocket subscribers. The hub
// never blocks the pipeline: a subscriber whose send fails is dropped on the
// spot.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"timeroom/internal/attendance"
	"timeroom/internal/platform/metrics"
)

const recentEventsCap = 50

// SnapshotSource provides the projection data sent to a subscriber on
// connect and in reply to pull commands.
type SnapshotSource interface {
	ListActive(ctx context.Context, locationID *int) ([]attendance.LogEntry, error)
	ListLogs(ctx context.Context, limit int, employeeID string) ([]attendance.LogEntry, error)
	TodayStats(ctx context.Context) (attendance.Stats, error)
	ListEmployees(ctx context.Context) ([]attendance.Employee, error)
	ListLocations(ctx context.Context) ([]attendance.Location, error)
}

// envelope is the wire frame for every message the hub sends.
type envelope struct {
	Type string `json:"type"`
	// Event is set for scan_event frames, Data for everything else.
	Event *attendance.ScanEvent `json:"event,omitempty"`
	Data  json.RawMessage       `json:"data,omitempty"`
}

type subscriber struct {
	conn *websocket.Conn
	// mu serializes writes; the hub and the per-connection command loop both
	// send on the same socket.
	mu sync.Mutex
}

func (s *subscriber) send(msg envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return websocket.JSON.Send(s.conn, msg)
}

// Hub tracks connected subscribers and the recent-event ring used to seed
// new connections.
type Hub struct {
	source  SnapshotSource
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	recent      []*attendance.ScanEvent
}

func NewHub(source SnapshotSource, m *metrics.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		source:      source,
		metrics:     m,
		logger:      logger,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Publish records the event and sends it to every subscriber. Subscribers
// whose send fails are removed.
func (h *Hub) Publish(event *attendance.ScanEvent) {
	h.mu.Lock()
	h.recent = append(h.recent, event)
	if len(h.recent) > recentEventsCap {
		h.recent = h.recent[len(h.recent)-recentEventsCap:]
	}
	targets := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	msg := envelope{Type: "scan_event", Event: event}
	for _, sub := range targets {
		if err := sub.send(msg); err != nil {
			h.logger.Debug("dropping subscriber", "error", err)
			h.unregister(sub)
		}
	}
}

// initSnapshot is the first frame a subscriber receives.
type initSnapshot struct {
	Connected       bool                    `json:"connected"`
	RecentEvents    []*attendance.ScanEvent `json:"recent_events"`
	ActiveEmployees []attendance.LogEntry   `json:"active_employees"`
	Locations       []attendance.Location   `json:"locations"`
	Stats           attendance.Stats        `json:"stats"`
}

// register adds the connection and sends it the init snapshot. Snapshot
// queries that fail degrade to empty sections rather than rejecting the
// connection.
func (h *Hub) register(ctx context.Context, conn *websocket.Conn) (*subscriber, error) {
	snapshot := initSnapshot{Connected: true}

	if active, err := h.source.ListActive(ctx, nil); err == nil {
		snapshot.ActiveEmployees = active
	} else {
		h.logger.Warn("init snapshot active query failed", "error", err)
	}
	if locations, err := h.source.ListLocations(ctx); err == nil {
		snapshot.Locations = locations
	} else {
		h.logger.Warn("init snapshot locations query failed", "error", err)
	}
	if stats, err := h.source.TodayStats(ctx); err == nil {
		snapshot.Stats = stats
	} else {
		h.logger.Warn("init snapshot stats query failed", "error", err)
	}

	h.mu.Lock()
	snapshot.RecentEvents = append([]*attendance.ScanEvent(nil), h.recent...)
	h.mu.Unlock()

	sub := &subscriber{conn: conn}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	if err := sub.send(envelope{Type: "init", Data: data}); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.metrics.Subscribers.Set(float64(count))
	h.logger.Info("subscriber connected", "subscribers", count)
	return sub, nil
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[sub]
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()

	if present {
		h.metrics.Subscribers.Set(float64(count))
		h.logger.Info("subscriber disconnected", "subscribers", count)
	}
}

// SubscriberCount reports the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
