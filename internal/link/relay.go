package link

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/gw2overlay/linkbridge/internal/telemetry"
)

// Source yields the current record. *shm.Region satisfies it.
type Source interface {
	ReadCopy() (telemetry.Record, error)
}

// Relay sends the wire prefix of a source record whenever its tick changes.
type Relay struct {
	src      Source
	conn     net.Conn
	logger   *slog.Logger
	lastTick uint32
	sent     uint64
}

// DialRelay connects a datagram socket to addr.
func DialRelay(src Source, addr string, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing relay target %s: %w", addr, err)
	}
	return &Relay{src: src, conn: conn, logger: logger}, nil
}

// Step reads the source once and sends it if the tick moved. Tick 0 is never
// sent. A tick lower than the last one sent is treated as a game restart.
func (r *Relay) Step() (bool, error) {
	rec, err := r.src.ReadCopy()
	if err != nil {
		return false, fmt.Errorf("reading relay source: %w", err)
	}
	if rec.Tick == 0 || rec.Tick == r.lastTick {
		return false, nil
	}
	if rec.Tick < r.lastTick {
		r.logger.Info("Tick went backwards, resetting", "last", r.lastTick, "tick", rec.Tick)
	}

	b, err := rec.Wire().MarshalBinary()
	if err != nil {
		return false, err
	}
	if _, err := r.conn.Write(b); err != nil {
		return false, fmt.Errorf("sending wire record: %w", err)
	}
	r.lastTick = rec.Tick
	r.sent++
	return true, nil
}

// Run calls Step every interval until ctx is cancelled. Step errors are logged
// and the loop continues.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Relay stopping", "sent", r.sent)
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Step(); err != nil {
				r.logger.Warn("Relay step failed", "error", err)
			}
		}
	}
}

// Sent is the number of records sent so far.
func (r *Relay) Sent() uint64 { return r.sent }

func (r *Relay) Close() error { return r.conn.Close() }
