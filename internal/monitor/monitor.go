// Package monitor periodically reports link and writer health.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/gw2overlay/linkbridge/internal/influx"
	"github.com/gw2overlay/linkbridge/internal/link"
	"github.com/gw2overlay/linkbridge/internal/model"
)

// StatsSource reports receive counters. *link.Link satisfies it.
type StatsSource interface {
	Stats() link.Stats
}

// QueueReporter is implemented by backends with a write queue.
type QueueReporter interface {
	QueueLen() int
	QueueDropped() uint64
}

// PerformanceRecorder persists status rows.
type PerformanceRecorder interface {
	RecordPerformance(p *model.BridgePerformance) error
}

// RecorderStats reports the worker's counters. *worker.Manager satisfies it.
type RecorderStats interface {
	Recorded() uint64
	GetLastWriteDuration() time.Duration
}

// PointWriter is the influx sink. *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(p *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Link       StatsSource
	Recorder   RecorderStats
	Backend    any // checked for QueueReporter and PerformanceRecorder
	Influx     PointWriter
	SessionID  func() string
	Logger     *slog.Logger
	Interval   time.Duration
	StatusFile string
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot collects the current counters.
func (s *Service) Snapshot() model.BridgePerformance {
	perf := model.BridgePerformance{Time: time.Now()}
	if s.deps.SessionID != nil {
		perf.SessionID = s.deps.SessionID()
	}
	if s.deps.Link != nil {
		st := s.deps.Link.Stats()
		perf.Received = st.Accepted
		perf.DroppedSize = st.Mismatch
		perf.DroppedError = st.Errors
		perf.Timeouts = st.Timeouts
		perf.LastTick = st.LastTick
	}
	if s.deps.Recorder != nil {
		perf.Recorded = s.deps.Recorder.Recorded()
		perf.LastWriteDurationMs = float32(s.deps.Recorder.GetLastWriteDuration().Microseconds()) / 1000
	}
	if q, ok := s.deps.Backend.(QueueReporter); ok {
		perf.QueueLength = q.QueueLen()
		perf.QueueDropped = q.QueueDropped()
	}
	return perf
}

// Report takes a snapshot and sends it to every configured output.
func (s *Service) Report() model.BridgePerformance {
	perf := s.Snapshot()
	logger := s.deps.Logger

	logger.Info("Bridge status",
		"received", perf.Received,
		"droppedSize", perf.DroppedSize,
		"droppedError", perf.DroppedError,
		"timeouts", perf.Timeouts,
		"lastTick", perf.LastTick,
		"recorded", perf.Recorded,
		"queueLength", perf.QueueLength,
	)

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, perf); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	if r, ok := s.deps.Backend.(PerformanceRecorder); ok {
		row := perf
		if err := r.RecordPerformance(&row); err != nil {
			logger.Error("Error writing performance row", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.BridgePoint(perf.SessionID, perf.Time, map[string]any{
			"received":      int64(perf.Received),
			"dropped_size":  int64(perf.DroppedSize),
			"dropped_error": int64(perf.DroppedError),
			"timeouts":      int64(perf.Timeouts),
			"recorded":      int64(perf.Recorded),
			"queue_length":  perf.QueueLength,
			"write_ms":      perf.LastWriteDurationMs,
		})); err != nil {
			logger.Error("Error writing bridge point", "error", err)
		}
	}
	return perf
}

func writeStatusFile(path string, perf model.BridgePerformance) error {
	b, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine. It fails without starting when
// the status file directory cannot be created.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.deps.StatusFile != "" {
		if err := os.MkdirAll(filepath.Dir(s.deps.StatusFile), 0755); err != nil {
			return fmt.Errorf("failed to create status file directory: %w", err)
		}
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Report()
			}
		}
	}()
	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
