// Package shm maps the named shared segment that holds the live telemetry record.
package shm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gw2overlay/linkbridge/internal/telemetry"
)

var (
	// ErrUnsupported is returned on platforms without POSIX shared memory.
	ErrUnsupported = errors.New("shm: shared memory not supported on this platform")
	// ErrClosed is returned by operations on a closed region.
	ErrClosed = errors.New("shm: region closed")
)

// SegmentName returns the per-user segment name, "<base>.<uid>".
func SegmentName(base string) string {
	return fmt.Sprintf("%s.%d", strings.TrimPrefix(base, "/"), os.Getuid())
}

// Write overwrites the whole record in the mapping. Writers must be serialized
// by the caller; readers are never blocked.
func (r *Region) Write(rec telemetry.Record) error {
	if r.mem == nil {
		return ErrClosed
	}
	return rec.EncodeInto(r.mem)
}

// ReadCopy copies the mapping out and decodes it. A concurrent write may be
// observed half applied.
func (r *Region) ReadCopy() (telemetry.Record, error) {
	if r.mem == nil {
		return telemetry.Record{}, ErrClosed
	}
	buf := make([]byte, telemetry.RecordSize)
	copy(buf, r.mem)
	return telemetry.DecodeRecord(buf)
}

// Snapshot is ReadCopy wrapped with the copy time.
func (r *Region) Snapshot() (telemetry.Snapshot, error) {
	rec, err := r.ReadCopy()
	if err != nil {
		return telemetry.Snapshot{}, err
	}
	return telemetry.NewSnapshot(rec, time.Now()), nil
}

// Name is the segment name the region was opened with.
func (r *Region) Name() string { return r.name }

// Created reports whether this process created the segment rather than opening
// an existing one.
func (r *Region) Created() bool { return r.created }
