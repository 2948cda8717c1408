// Package storage defines the recording backend contract.
package storage

import (
	"time"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	Init() error
	Close() error

	// StartSession begins a recording; EndSession finalizes it.
	StartSession(s *core.Session) error
	EndSession() error

	RecordSample(s *core.Sample) error
	RecordMapChange(m *core.MapChange) error
}

// WriteDurationProvider is implemented by backends that write in batches and
// can report how long the last batch took.
type WriteDurationProvider interface {
	LastWriteDuration() time.Duration
}

// Exporter is implemented by backends that produce a file per session.
type Exporter interface {
	ExportedFilePath() string
}
