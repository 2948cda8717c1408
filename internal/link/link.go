// Package link moves telemetry records across the process boundary: Link
// receives wire records over UDP and writes them into the shared region, Relay
// reads a region and sends them.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gw2overlay/linkbridge/internal/telemetry"
)

// maxDatagram is large enough that an oversized datagram is seen at its real
// length instead of being truncated to a valid-looking record.
const maxDatagram = 64 * 1024

// readErrorBackoff is how long Run waits after a receive error that is not a
// timeout, such as a closed socket.
const readErrorBackoff = 100 * time.Millisecond

// Sink receives accepted records. *shm.Region satisfies it.
type Sink interface {
	Write(rec telemetry.Record) error
}

// Config controls the receive socket.
type Config struct {
	Address      string
	BlockTimeout time.Duration
	DrainTimeout time.Duration
	ReadBuffer   int
}

// DefaultConfig matches the endpoint the relay sends to.
func DefaultConfig() Config {
	return Config{
		Address:      "127.0.0.1:7070",
		BlockTimeout: 200 * time.Millisecond,
		DrainTimeout: time.Millisecond,
		ReadBuffer:   64 * 1024,
	}
}

// Stats counts poll outcomes since Bind.
type Stats struct {
	Accepted  uint64
	Mismatch  uint64
	Errors    uint64
	Timeouts  uint64
	LastTick  uint32
	LastWrite time.Time
}

// Link owns the receive socket and copies valid records into its sink. Poll
// is meant to be driven by one goroutine; Stats may be read from any.
type Link struct {
	cfg    Config
	sock   UDPSocket
	sink   Sink
	logger *slog.Logger
	buf    []byte

	accepted  atomic.Uint64
	mismatch  atomic.Uint64
	errs      atomic.Uint64
	timeouts  atomic.Uint64
	lastTick  atomic.Uint32
	lastWrite atomic.Int64
	zeroTick  bool
	readErr   bool

	received metric.Int64Counter
	dropped  metric.Int64Counter
}

// Bind opens the receive socket on cfg.Address.
func Bind(factory SocketFactory, cfg Config, sink Sink, logger *slog.Logger) (*Link, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr, err := net.ResolveUDPAddr("udp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("resolving link address %q: %w", cfg.Address, err)
	}
	sock, err := factory.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding link socket %s: %w", cfg.Address, err)
	}
	if cfg.ReadBuffer > 0 {
		if err := sock.SetReadBuffer(cfg.ReadBuffer); err != nil {
			logger.Warn("Failed to set receive buffer", "bytes", cfg.ReadBuffer, "error", err)
		}
	}

	l := &Link{
		cfg:    cfg,
		sock:   sock,
		sink:   sink,
		logger: logger,
		buf:    make([]byte, maxDatagram),
	}

	m := meter()
	l.received, err = m.Int64Counter("link.records.received",
		metric.WithDescription("Wire records written to the shared region"))
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("create received counter: %w", err)
	}
	l.dropped, err = m.Int64Counter("link.datagrams.dropped",
		metric.WithDescription("Datagrams discarded by reason"))
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("create dropped counter: %w", err)
	}

	logger.Info("Link bound", "address", sock.LocalAddr().String())
	return l, nil
}

// LocalAddr is the bound address, useful when binding to port 0.
func (l *Link) LocalAddr() net.Addr { return l.sock.LocalAddr() }

// Close releases the socket.
func (l *Link) Close() error { return l.sock.Close() }

// Poll performs one receive. With block set it waits up to BlockTimeout,
// otherwise up to DrainTimeout. It reports whether a record was written.
// Wrong-sized datagrams are logged and discarded; timeouts and read errors
// return false.
func (l *Link) Poll(block bool) bool {
	timeout := l.cfg.DrainTimeout
	if block {
		timeout = l.cfg.BlockTimeout
	}
	if err := l.sock.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		l.logger.Debug("Failed to set read deadline", "error", err)
	}

	n, from, err := l.sock.ReadFromUDP(l.buf)
	l.readErr = false
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			l.timeouts.Add(1)
			return false
		}
		l.errs.Add(1)
		l.readErr = true
		l.drop("error")
		l.logger.Debug("Link receive failed", "error", err)
		return false
	}

	if n != telemetry.WireRecordSize {
		l.mismatch.Add(1)
		l.drop("size")
		l.logger.Warn("Discarding datagram of wrong size", "got", n, "want", telemetry.WireRecordSize, "from", from)
		return false
	}

	wire, err := telemetry.DecodeWire(l.buf[:n])
	if err != nil {
		l.errs.Add(1)
		l.drop("decode")
		l.logger.Warn("Discarding undecodable datagram", "error", err)
		return false
	}
	if err := l.sink.Write(wire.Record()); err != nil {
		l.errs.Add(1)
		l.drop("write")
		l.logger.Error("Failed to write record to region", "error", err)
		return false
	}

	l.checkTick(wire.Tick)
	l.accepted.Add(1)
	l.lastTick.Store(wire.Tick)
	l.lastWrite.Store(time.Now().UnixNano())
	l.received.Add(context.Background(), 1)
	return true
}

// Drain polls without blocking until no datagram is pending and returns how
// many records were written.
func (l *Link) Drain() int {
	n := 0
	for l.Poll(false) {
		n++
	}
	return n
}

// Run waits for a record, drains the backlog, and calls onFrame after each
// round, whether or not anything arrived. A failed receive is followed by a
// short pause. It returns when ctx is cancelled.
func (l *Link) Run(ctx context.Context, onFrame func(received int)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := 0
		if l.Poll(true) {
			n = 1 + l.Drain()
		}
		if onFrame != nil {
			onFrame(n)
		}
		if n == 0 && l.readErr {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(readErrorBackoff):
			}
		}
	}
}

// Stats returns the current counters.
func (l *Link) Stats() Stats {
	s := Stats{
		Accepted: l.accepted.Load(),
		Mismatch: l.mismatch.Load(),
		Errors:   l.errs.Load(),
		Timeouts: l.timeouts.Load(),
		LastTick: l.lastTick.Load(),
	}
	if ns := l.lastWrite.Load(); ns != 0 {
		s.LastWrite = time.Unix(0, ns)
	}
	return s
}

func (l *Link) drop(reason string) {
	l.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// checkTick warns once per run of zero ticks; the producer writes tick 0
// until the game has populated the record.
func (l *Link) checkTick(tick uint32) {
	if tick != 0 {
		l.zeroTick = false
		return
	}
	if !l.zeroTick {
		l.logger.Warn("Received tick 0; check that the relay is running next to the game")
		l.zeroTick = true
	}
}
