package pipeline

import (
	"context"
	"log/slog"
	"time"

	"timeroom/internal/attendance"
	"timeroom/internal/attendance/service"
	"timeroom/internal/notify"
	"timeroom/internal/platform/metrics"
	"timeroom/internal/reader"
)

// Reader is the poll transport to the physical reader.
type Reader interface {
	Poll(ctx context.Context) ([]reader.TagReading, error)
}

// Processor is the presence state machine.
type Processor interface {
	ProcessScan(ctx context.Context, scan service.Scan, now time.Time) (*attendance.ScanEvent, error)
}

// Publisher receives every externally visible event, in emission order.
type Publisher interface {
	Publish(event *attendance.ScanEvent)
}

// ExitSink collects OUT events for digest notification.
type ExitSink interface {
	Enqueue(exit notify.Exit)
}

// Config tunes the poll loop.
type Config struct {
	PollInterval time.Duration
	// PollBackoff replaces PollInterval for one cycle after a transport error.
	PollBackoff   time.Duration
	SweepInterval time.Duration
	// BroadcastUnknownTags makes UNKNOWN events visible to subscribers
	// instead of suppressing them.
	BroadcastUnknownTags bool
}

// Monitor is the single producer of the pipeline: it polls the reader and
// drives each accepted reading through the state machine, fanning results
// out to the broadcaster and the exit aggregator. Nothing downstream may
// block it.
type Monitor struct {
	reader    Reader
	debouncer Debouncer
	processor Processor
	publisher Publisher
	exits     ExitSink
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       Config
}

func NewMonitor(
	rdr Reader,
	debouncer Debouncer,
	processor Processor,
	publisher Publisher,
	exits ExitSink,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Monitor {
	return &Monitor{
		reader:    rdr,
		debouncer: debouncer,
		processor: processor,
		publisher: publisher,
		exits:     exits,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run polls until ctx is cancelled. A transport error yields an empty tick
// and one backoff delay; it never terminates the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		"poll_interval", m.cfg.PollInterval,
		"poll_backoff", m.cfg.PollBackoff,
	)

	for {
		delay := m.cfg.PollInterval

		readings, err := m.reader.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.metrics.PollErrors.Inc()
			m.logger.Debug("reader poll failed", "error", err)
			delay = m.cfg.PollBackoff
		} else {
			m.handleBatch(ctx, readings)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (m *Monitor) handleBatch(ctx context.Context, readings []reader.TagReading) {
	for _, r := range readings {
		// One failing tag never blocks the rest of the batch.
		m.handleReading(ctx, r)
	}
}

func (m *Monitor) handleReading(ctx context.Context, r reader.TagReading) {
	m.metrics.ReadingsTotal.Inc()
	now := time.Now()

	ok, err := m.debouncer.Accept(ctx, r.EPC, r.Antenna, now)
	if err != nil {
		m.logger.Warn("debounce check failed, skipping reading", "epc", r.EPC, "error", err)
		return
	}
	if !ok {
		m.metrics.ReadingsDebounced.Inc()
		return
	}

	event, err := m.processor.ProcessScan(ctx, service.Scan{EPC: r.EPC, TID: r.TID, Antenna: r.Antenna}, now)
	if err != nil {
		m.logger.Warn("scan processing failed", "epc", r.EPC, "antenna", r.Antenna, "error", err)
		return
	}
	if event == nil {
		// Dwell guard: bounce inside the minimum dwell window.
		return
	}

	m.metrics.ScanEvents.WithLabelValues(string(event.Action)).Inc()

	switch event.Action {
	case attendance.ActionUnknown:
		m.logger.Debug("unregistered scan", "epc", r.EPC, "antenna", r.Antenna)
		if m.cfg.BroadcastUnknownTags {
			m.publisher.Publish(event)
		}
	case attendance.ActionOut:
		m.logger.Info("scan event", "action", event.Action, "employee", event.Employee.FullName, "area", event.Location.AreaName)
		m.publisher.Publish(event)
		m.exits.Enqueue(notify.Exit{
			EPC:   event.EPC,
			TID:   event.TID,
			Asset: reader.AssetName(event.EPC),
		})
	default:
		m.logger.Info("scan event", "action", event.Action, "employee", event.Employee.FullName, "area", event.Location.AreaName)
		m.publisher.Publish(event)
	}
}

// RunSweeper periodically evicts stale debounce entries when the configured
// debouncer holds them in process memory.
func (m *Monitor) RunSweeper(ctx context.Context) error {
	sweeper, ok := m.debouncer.(*MemoryDebouncer)
	if !ok || m.cfg.SweepInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := sweeper.Sweep(time.Now()); removed > 0 {
				m.logger.Debug("debounce sweep", "removed", removed)
			}
		}
	}
}
