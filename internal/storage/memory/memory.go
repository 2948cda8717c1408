// Package memory keeps a session's telemetry in memory and exports it as JSON
// when the session ends.
package memory

import (
	"errors"
	"sync"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

// ErrNoSession is returned when recording before StartSession.
var ErrNoSession = errors.New("memory: no session started")

// MapRecord groups the samples taken on one map visit.
type MapRecord struct {
	MapID   uint32
	Samples []core.Sample
}

// Backend stores session data in memory and exports to JSON.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	visits     []*MapRecord
	mapChanges []core.MapChange

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// StartSession begins a new recording and clears the previous one.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.visits = nil
	b.mapChanges = nil
	b.idCounter = 0
	return nil
}

// EndSession exports the session. Ending without a session is a no-op.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

// RecordSample appends s to the current map visit, opening a new visit when
// the map id differs from the last sample's.
func (b *Backend) RecordSample(s *core.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.idCounter++
	s.ID = b.idCounter
	if s.SessionID == "" {
		s.SessionID = b.session.ID
	}

	n := len(b.visits)
	if n == 0 || b.visits[n-1].MapID != s.MapID {
		b.visits = append(b.visits, &MapRecord{MapID: s.MapID})
		n++
	}
	b.visits[n-1].Samples = append(b.visits[n-1].Samples, *s)
	return nil
}

// RecordMapChange stores a map change.
func (b *Backend) RecordMapChange(m *core.MapChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.idCounter++
	m.ID = b.idCounter
	if m.SessionID == "" {
		m.SessionID = b.session.ID
	}
	b.mapChanges = append(b.mapChanges, *m)
	return nil
}

// Visits returns a copy of the recorded map visits.
func (b *Backend) Visits() []MapRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]MapRecord, len(b.visits))
	for i, v := range b.visits {
		out[i] = MapRecord{MapID: v.MapID, Samples: append([]core.Sample(nil), v.Samples...)}
	}
	return out
}

// MapChanges returns a copy of the recorded map changes.
func (b *Backend) MapChanges() []core.MapChange {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.MapChange(nil), b.mapChanges...)
}

// ExportedFilePath returns the path written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
