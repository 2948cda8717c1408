// Package worker turns published telemetry events into recorded rows.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gw2overlay/linkbridge/internal/dispatcher"
	"github.com/gw2overlay/linkbridge/internal/storage"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

// ErrUnexpectedPayload is returned when an event carries the wrong type.
var ErrUnexpectedPayload = errors.New("worker: unexpected payload")

// SampleSink receives every recorded sample besides the storage backend.
// *influx.Manager satisfies it.
type SampleSink interface {
	WriteSample(s *core.Sample) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Backend        storage.Backend
	Sinks          []SampleSink
	Logger         *slog.Logger
	SampleInterval time.Duration
	BufferSize     int
}

// Manager records samples at most once per SampleInterval, plus the first
// sample after every map change.
type Manager struct {
	deps Dependencies

	mu         sync.Mutex
	lastTime   time.Time
	lastMapID  uint32
	hasLast    bool
	recorded   atomic.Uint64
	throttled  atomic.Uint64
	sinkErrors atomic.Uint64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.BufferSize <= 0 {
		deps.BufferSize = 1000
	}
	return &Manager{deps: deps}
}

// RegisterHandlers subscribes the manager to the telemetry topics.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// samples arrive every frame; keep the frame loop off the backend
	d.Subscribe(dispatcher.TopicSample, m.handleSample, dispatcher.Buffered(m.deps.BufferSize), dispatcher.Logged())
	// map changes are rare and must not be dropped
	d.Subscribe(dispatcher.TopicMapChange, m.handleMapChange, dispatcher.Buffered(64), dispatcher.Blocking(), dispatcher.Logged())
}

func (m *Manager) handleSample(e dispatcher.Event) error {
	s, ok := e.Payload.(core.Sample)
	if !ok {
		return fmt.Errorf("%w: %T on %s", ErrUnexpectedPayload, e.Payload, e.Topic)
	}
	if !m.due(s) {
		m.throttled.Add(1)
		return nil
	}

	if err := m.deps.Backend.RecordSample(&s); err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}
	m.recorded.Add(1)

	for _, sink := range m.deps.Sinks {
		if err := sink.WriteSample(&s); err != nil {
			m.sinkErrors.Add(1)
			m.deps.Logger.Warn("Sample sink failed", "error", err)
		}
	}
	return nil
}

func (m *Manager) handleMapChange(e dispatcher.Event) error {
	c, ok := e.Payload.(core.MapChange)
	if !ok {
		return fmt.Errorf("%w: %T on %s", ErrUnexpectedPayload, e.Payload, e.Topic)
	}
	if err := m.deps.Backend.RecordMapChange(&c); err != nil {
		return fmt.Errorf("failed to record map change: %w", err)
	}
	return nil
}

// due reports whether s should be recorded and, if so, marks it as the last.
func (m *Manager) due(s core.Sample) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasLast && s.MapID == m.lastMapID && s.Time.Sub(m.lastTime) < m.deps.SampleInterval {
		return false
	}
	m.lastTime = s.Time
	m.lastMapID = s.MapID
	m.hasLast = true
	return true
}

// Recorded returns how many samples reached the backend.
func (m *Manager) Recorded() uint64 { return m.recorded.Load() }

// Throttled returns how many samples were skipped by the sample interval.
func (m *Manager) Throttled() uint64 { return m.throttled.Load() }

// GetLastWriteDuration returns the duration of the backend's last write
// cycle, or 0 if the backend doesn't report one.
func (m *Manager) GetLastWriteDuration() time.Duration {
	if p, ok := m.deps.Backend.(storage.WriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}
