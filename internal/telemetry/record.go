// Package telemetry describes the fixed binary record the game publishes through
// the MumbleLink shared segment, the reduced wire form the relay sends over UDP,
// and read-only snapshots of both.
package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed sizes of the packed little-endian layouts. Producer and consumer must
// agree on these byte for byte.
const (
	ContextBlockSize = 85
	WireRecordSize   = 1364
	RecordSize       = 5460

	nameUnits        = 256
	identityUnits    = 256
	contextBytes     = 256
	descriptionUnits = 2048
)

var (
	// ErrLayout is returned when a record type no longer packs to its agreed size.
	ErrLayout = errors.New("telemetry: record layout mismatch")
	// ErrSize is returned when a buffer does not have the exact size of the record it should hold.
	ErrSize = errors.New("telemetry: buffer size mismatch")
)

// WireRecord is the datagram payload. It is the Record without the trailing
// description field.
type WireRecord struct {
	SchemaVersion  uint32
	Tick           uint32
	AvatarPosition [3]float32
	AvatarFront    [3]float32
	AvatarTop      [3]float32
	Name           [nameUnits]uint16
	CameraPosition [3]float32
	CameraFront    [3]float32
	CameraTop      [3]float32
	Identity       [identityUnits]uint16
	ContextLen     uint32
	Context        [contextBytes]byte
}

// Record is the full layout mapped into shared memory.
type Record struct {
	WireRecord
	Description [descriptionUnits]uint16
}

// ValidateLayout checks the encoded size of every fixed layout.
func ValidateLayout() error {
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"ContextBlock", binary.Size(ContextBlock{}), ContextBlockSize},
		{"WireRecord", binary.Size(WireRecord{}), WireRecordSize},
		{"Record", binary.Size(Record{}), RecordSize},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%w: %s packs to %d bytes, want %d", ErrLayout, c.name, c.got, c.want)
		}
	}
	return nil
}

func init() {
	if err := ValidateLayout(); err != nil {
		panic(err)
	}
}

// DecodeWire decodes a datagram payload. b must be exactly WireRecordSize bytes.
func DecodeWire(b []byte) (WireRecord, error) {
	var w WireRecord
	if len(b) != WireRecordSize {
		return w, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(b), WireRecordSize)
	}
	if _, err := binary.Decode(b, binary.LittleEndian, &w); err != nil {
		return w, fmt.Errorf("decoding wire record: %w", err)
	}
	return w, nil
}

// MarshalBinary encodes w in the wire layout.
func (w WireRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, WireRecordSize)
	if _, err := binary.Encode(buf, binary.LittleEndian, &w); err != nil {
		return nil, fmt.Errorf("encoding wire record: %w", err)
	}
	return buf, nil
}

// Record widens w to the mapped layout with a zeroed description.
func (w WireRecord) Record() Record {
	return Record{WireRecord: w}
}

// ContextBlock reinterprets the first ContextBlockSize bytes of the opaque context buffer.
func (w WireRecord) ContextBlock() ContextBlock {
	var c ContextBlock
	// cannot fail: the source is a fixed array longer than the block
	_, _ = binary.Decode(w.Context[:ContextBlockSize], binary.LittleEndian, &c)
	return c
}

// SetContextBlock writes c into the context buffer and sets ContextLen to its size.
func (w *WireRecord) SetContextBlock(c ContextBlock) {
	_, _ = binary.Encode(w.Context[:ContextBlockSize], binary.LittleEndian, &c)
	w.ContextLen = ContextBlockSize
}

// DecodeRecord decodes the full mapped layout. b must be exactly RecordSize bytes.
func DecodeRecord(b []byte) (Record, error) {
	var r Record
	if len(b) != RecordSize {
		return r, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(b), RecordSize)
	}
	if _, err := binary.Decode(b, binary.LittleEndian, &r); err != nil {
		return r, fmt.Errorf("decoding record: %w", err)
	}
	return r, nil
}

// EncodeInto writes r into dst, which must hold at least RecordSize bytes.
func (r *Record) EncodeInto(dst []byte) error {
	if len(dst) < RecordSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(dst), RecordSize)
	}
	if _, err := binary.Encode(dst[:RecordSize], binary.LittleEndian, r); err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return nil
}

// MarshalBinary encodes r in the mapped layout.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	if err := r.EncodeInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Wire returns the wire prefix of r.
func (r Record) Wire() WireRecord {
	return r.WireRecord
}
