package monitor

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2overlay/linkbridge/internal/link"
	"github.com/gw2overlay/linkbridge/internal/model"
)

type fakeLink struct{ stats link.Stats }

func (f fakeLink) Stats() link.Stats { return f.stats }

type fakeRecorder struct{}

func (fakeRecorder) Recorded() uint64                    { return 7 }
func (fakeRecorder) GetLastWriteDuration() time.Duration { return 1500 * time.Microsecond }

type fakeBackend struct {
	mu   sync.Mutex
	rows []model.BridgePerformance
	err  error
}

func (b *fakeBackend) QueueLen() int        { return 3 }
func (b *fakeBackend) QueueDropped() uint64 { return 1 }
func (b *fakeBackend) RecordPerformance(p *model.BridgePerformance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = append(b.rows, *p)
	return b.err
}

type fakeInflux struct{ points []*influxdb2_write.Point }

func (f *fakeInflux) WritePoint(p *influxdb2_write.Point) error {
	f.points = append(f.points, p)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshot(t *testing.T) {
	s := NewService(Dependencies{
		Link:      fakeLink{link.Stats{Accepted: 100, Mismatch: 2, Errors: 1, Timeouts: 5, LastTick: 99}},
		Recorder:  fakeRecorder{},
		Backend:   &fakeBackend{},
		SessionID: func() string { return "sess" },
	})

	perf := s.Snapshot()
	assert.Equal(t, "sess", perf.SessionID)
	assert.Equal(t, uint64(100), perf.Received)
	assert.Equal(t, uint64(2), perf.DroppedSize)
	assert.Equal(t, uint64(1), perf.DroppedError)
	assert.Equal(t, uint64(5), perf.Timeouts)
	assert.Equal(t, uint32(99), perf.LastTick)
	assert.Equal(t, uint64(7), perf.Recorded)
	assert.Equal(t, 3, perf.QueueLength)
	assert.Equal(t, uint64(1), perf.QueueDropped)
	assert.InDelta(t, 1.5, perf.LastWriteDurationMs, 1e-6)
}

func TestSnapshot_NoDependencies(t *testing.T) {
	perf := NewService(Dependencies{}).Snapshot()
	assert.Zero(t, perf.Received)
	assert.False(t, perf.Time.IsZero())
}

func TestReport_Outputs(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "status.json")
	backend := &fakeBackend{err: errors.New("ignored")}
	fi := &fakeInflux{}

	s := NewService(Dependencies{
		Link:       fakeLink{link.Stats{Accepted: 4}},
		Backend:    backend,
		Influx:     fi,
		Logger:     quietLogger(),
		StatusFile: statusFile,
	})
	s.Report()

	raw, err := os.ReadFile(statusFile)
	require.NoError(t, err)
	var got model.BridgePerformance
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, uint64(4), got.Received)

	require.Len(t, backend.rows, 1)
	require.Len(t, fi.points, 1)
	assert.Contains(t, influxdb2_write.PointToLineProtocol(fi.points[0], time.Nanosecond), "received=4i")
}

func TestStartStop(t *testing.T) {
	backend := &fakeBackend{}
	s := NewService(Dependencies{Backend: backend, Logger: quietLogger(), Interval: 5 * time.Millisecond})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.rows) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestStart_StatusDirError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	s := NewService(Dependencies{Logger: quietLogger(), StatusFile: filepath.Join(blocker, "status.json")})
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
	s.Stop()
}
