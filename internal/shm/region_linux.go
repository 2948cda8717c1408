//go:build linux

package shm

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/gw2overlay/linkbridge/internal/telemetry"
)

const shmDir = "/dev/shm"

// Region is a read/write MAP_SHARED mapping of exactly one telemetry.Record.
type Region struct {
	name    string
	path    string
	mem     []byte
	created bool
}

// OpenOrCreate maps the segment called name. An existing segment is opened
// read/write; if that fails for any reason the segment is created with mode
// 0600, sized to telemetry.RecordSize and zero filled. Sizing and mapping
// failures are returned and are not retried.
func OpenOrCreate(name string) (*Region, error) {
	path := filepath.Join(shmDir, filepath.Base(name))

	created := false
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		fd, err = unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0o600)
		if err != nil {
			return nil, fmt.Errorf("creating shared segment %s: %w", path, err)
		}
		created = true
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("stat shared segment %s: %w", path, err)
	}
	if created || st.Size != telemetry.RecordSize {
		if err := unix.Ftruncate(fd, telemetry.RecordSize); err != nil {
			return nil, fmt.Errorf("sizing shared segment %s: %w", path, err)
		}
	}

	mem, err := unix.Mmap(fd, 0, telemetry.RecordSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mapping shared segment %s: %w", path, err)
	}
	if created {
		clear(mem)
	}

	return &Region{name: name, path: path, mem: mem, created: created}, nil
}

// Close unmaps the region. The segment itself survives for other mappers.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	if err != nil {
		return fmt.Errorf("unmapping shared segment %s: %w", r.path, err)
	}
	return nil
}

// Remove unlinks the segment name. Existing mappings stay valid.
func (r *Region) Remove() error {
	if err := unix.Unlink(r.path); err != nil && err != unix.ENOENT {
		return fmt.Errorf("removing shared segment %s: %w", r.path, err)
	}
	return nil
}
