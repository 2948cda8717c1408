// Package trail reads binary track files and turns their point runs into
// ribbon meshes and centerlines.
package trail

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

const (
	headerSize = 8
	pointSize  = 12
)

// ErrShortTrack is returned for track data shorter than the 8-byte header.
var ErrShortTrack = errors.New("trail: track shorter than header")

// Track is a decoded track file.
type Track struct {
	MapID  uint32
	Points []core.Vec3
}

// Decode parses track bytes: a 4-byte ignored header word, the map id as a
// little-endian u32, then packed little-endian f32 x,y,z triples. A trailing
// partial triple is dropped.
func Decode(b []byte) (Track, error) {
	if len(b) < headerSize {
		return Track{}, fmt.Errorf("%w: %d bytes", ErrShortTrack, len(b))
	}
	tr := Track{MapID: binary.LittleEndian.Uint32(b[4:8])}

	body := b[headerSize:]
	tr.Points = make([]core.Vec3, len(body)/pointSize)
	for i := range tr.Points {
		p := body[i*pointSize:]
		tr.Points[i] = core.Vec3{
			X: math.Float32frombits(binary.LittleEndian.Uint32(p[0:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(p[4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(p[8:])),
		}
	}
	return tr, nil
}

// Encode writes tr in the track file layout with a zero header word.
func Encode(tr Track) []byte {
	b := make([]byte, headerSize+len(tr.Points)*pointSize)
	binary.LittleEndian.PutUint32(b[4:8], tr.MapID)
	for i, pt := range tr.Points {
		p := b[headerSize+i*pointSize:]
		binary.LittleEndian.PutUint32(p[0:], math.Float32bits(pt.X))
		binary.LittleEndian.PutUint32(p[4:], math.Float32bits(pt.Y))
		binary.LittleEndian.PutUint32(p[8:], math.Float32bits(pt.Z))
	}
	return b
}

// ReadFile reads and decodes the track file at path.
func ReadFile(path string) (Track, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Track{}, fmt.Errorf("reading track %s: %w", path, err)
	}
	tr, err := Decode(b)
	if err != nil {
		return Track{}, fmt.Errorf("decoding track %s: %w", path, err)
	}
	return tr, nil
}

// WriteFile encodes tr to path.
func WriteFile(path string, tr Track) error {
	if err := os.WriteFile(path, Encode(tr), 0o644); err != nil {
		return fmt.Errorf("writing track %s: %w", path, err)
	}
	return nil
}

// Segments splits points at pen-up markers, dropping the markers themselves,
// non-finite points and any empty runs.
func Segments(points []core.Vec3) [][]core.Vec3 {
	var (
		out [][]core.Vec3
		run []core.Vec3
	)
	for _, p := range points {
		switch {
		case p.IsPenUp():
			if len(run) > 0 {
				out = append(out, run)
			}
			run = nil
		case p.IsFinite():
			run = append(run, p)
		}
	}
	if len(run) > 0 {
		out = append(out, run)
	}
	return out
}
