//go:build !linux

package shm

// Region is unavailable on this platform.
type Region struct {
	name    string
	mem     []byte
	created bool
}

func OpenOrCreate(name string) (*Region, error) {
	return nil, ErrUnsupported
}

func (r *Region) Close() error  { return nil }
func (r *Region) Remove() error { return ErrUnsupported }
