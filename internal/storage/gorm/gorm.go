// Package gormstorage implements storage.Backend on any gorm database with
// in-memory queues drained by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/gw2overlay/linkbridge/internal/database"
	"github.com/gw2overlay/linkbridge/internal/model"
	"github.com/gw2overlay/linkbridge/internal/model/convert"
	"github.com/gw2overlay/linkbridge/internal/queue"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the gorm storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	QueueLimit    int
}

type queues struct {
	Samples    *queue.Queue[model.Sample]
	MapChanges *queue.Queue[model.MapChange]
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Value // string

	writeMu       sync.Mutex
	lastWriteNano atomic.Int64

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a gorm storage backend. DB may be nil until Init for wrappers
// that open their own connection and inject it with SetDB.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	b := &Backend{
		deps: deps,
		queues: &queues{
			Samples:    queue.New[model.Sample](deps.QueueLimit),
			MapChanges: queue.New[model.MapChange](deps.QueueLimit),
		},
	}
	b.sessionID.Store("")
	return b
}

// SetDB injects the connection before Init.
func (b *Backend) SetDB(db *gorm.DB) { b.deps.DB = db }

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartSession inserts the session row synchronously so queued rows can
// reference it.
func (b *Backend) StartSession(s *core.Session) error {
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	b.sessionID.Store(s.ID)
	return nil
}

// EndSession flushes the queues and stamps the session end time.
func (b *Backend) EndSession() error {
	id := b.currentSession()
	if id == "" {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("end_time", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}
	return nil
}

// RecordSample converts and queues a sample.
func (b *Backend) RecordSample(s *core.Sample) error {
	b.queues.Samples.Push(convert.CoreToSample(*s))
	return nil
}

// RecordMapChange converts and queues a map change.
func (b *Backend) RecordMapChange(m *core.MapChange) error {
	b.queues.MapChanges.Push(convert.CoreToMapChange(*m))
	return nil
}

// RecordPerformance inserts a status row directly; it is low volume.
func (b *Backend) RecordPerformance(p *model.BridgePerformance) error {
	if p.SessionID == "" {
		p.SessionID = b.currentSession()
	}
	return b.deps.DB.Create(p).Error
}

// QueueLen returns the number of rows waiting to be written.
func (b *Backend) QueueLen() int {
	return b.queues.Samples.Len() + b.queues.MapChanges.Len()
}

// QueueDropped returns how many rows were evicted by the queue limit.
func (b *Backend) QueueDropped() uint64 {
	return b.queues.Samples.Dropped() + b.queues.MapChanges.Dropped()
}

// LastWriteDuration returns the duration of the last write cycle.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNano.Load())
}

// Flush writes every queued row now. Rows without a session id get the
// current one.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	id := b.currentSession()
	err := errors.Join(
		writeQueue(b.deps.DB, b.queues.Samples, "samples", func(items []model.Sample) {
			for i := range items {
				if items[i].SessionID == "" {
					items[i].SessionID = id
				}
			}
		}),
		writeQueue(b.deps.DB, b.queues.MapChanges, "map changes", func(items []model.MapChange) {
			for i := range items {
				if items[i].SessionID == "" {
					items[i].SessionID = id
				}
			}
		}),
	)
	b.lastWriteNano.Store(int64(time.Since(start)))
	return err
}

func (b *Backend) currentSession() string {
	return b.sessionID.Load().(string)
}

func (b *Backend) writer() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("DB write failed", "error", err)
			}
		}
	}
}

// writeQueue writes all items from q in one transaction. On failure the items
// go back to the front of the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, prepare func([]T)) error {
	items := q.Drain()
	if len(items) == 0 {
		return nil
	}
	if prepare != nil {
		prepare(items)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		q.Requeue(items)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return nil
}
