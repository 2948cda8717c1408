package telemetry

import (
	"encoding/binary"
	"slices"
	"time"

	"github.com/gw2overlay/linkbridge/pkg/core"
	"golang.org/x/text/encoding/unicode"
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Snapshot is an immutable copy of the record taken at a point in time.
type Snapshot struct {
	rec   Record
	taken time.Time
}

// NewSnapshot wraps a copied record.
func NewSnapshot(rec Record, taken time.Time) Snapshot {
	return Snapshot{rec: rec, taken: taken}
}

func (s Snapshot) Taken() time.Time { return s.taken }
func (s Snapshot) Record() Record   { return s.rec }
func (s Snapshot) Version() uint32  { return s.rec.SchemaVersion }
func (s Snapshot) Tick() uint32     { return s.rec.Tick }

// Ready reports whether the producer has written at least one frame.
func (s Snapshot) Ready() bool { return s.rec.Tick != 0 }

func (s Snapshot) AvatarPosition() core.Vec3 { return core.Vec3FromArray(s.rec.AvatarPosition) }
func (s Snapshot) AvatarFront() core.Vec3    { return core.Vec3FromArray(s.rec.AvatarFront) }
func (s Snapshot) AvatarTop() core.Vec3      { return core.Vec3FromArray(s.rec.AvatarTop) }
func (s Snapshot) CameraPosition() core.Vec3 { return core.Vec3FromArray(s.rec.CameraPosition) }
func (s Snapshot) CameraFront() core.Vec3    { return core.Vec3FromArray(s.rec.CameraFront) }
func (s Snapshot) CameraTop() core.Vec3      { return core.Vec3FromArray(s.rec.CameraTop) }

// Name is the application name, usually "Guild Wars 2".
func (s Snapshot) Name() string { return DecodeUTF16(s.rec.Name[:]) }

// RawIdentity is the identity JSON text as published.
func (s Snapshot) RawIdentity() string { return DecodeUTF16(s.rec.Identity[:]) }

// Identity parses the identity JSON. A malformed document yields an error.
func (s Snapshot) Identity() (Identity, error) { return ParseIdentity(s.RawIdentity()) }

func (s Snapshot) Description() string { return DecodeUTF16(s.rec.Description[:]) }

func (s Snapshot) Context() ContextBlock { return s.rec.ContextBlock() }

// Sample flattens s into the recorded form.
func (s Snapshot) Sample(sessionID string) core.Sample {
	ctx := s.Context()
	smp := core.Sample{
		SessionID:      sessionID,
		Time:           s.taken,
		Tick:           s.rec.Tick,
		MapID:          ctx.MapID,
		MapType:        ctx.MapType,
		ShardID:        ctx.ShardID,
		AvatarPosition: s.AvatarPosition(),
		AvatarFront:    s.AvatarFront(),
		CameraPosition: s.CameraPosition(),
		CameraFront:    s.CameraFront(),
		UIState:        ctx.UIState,
		MountIndex:     ctx.MountIndex,
		InCombat:       ctx.HasUIState(UIInCombat),
	}
	if id, err := s.Identity(); err == nil {
		smp.CharacterName = id.Name
	}
	return smp
}

// DecodeUTF16 decodes NUL-terminated little-endian UTF-16 code units. Invalid
// sequences become U+FFFD.
func DecodeUTF16(units []uint16) string {
	if n := slices.Index(units, 0); n >= 0 {
		units = units[:n]
	}
	if len(units) == 0 {
		return ""
	}
	raw := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(raw[2*i:], u)
	}
	out, err := utf16LE.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}

// EncodeUTF16 writes s into dst as little-endian UTF-16, truncating so that a
// terminating NUL always fits. The remainder of dst is zeroed.
func EncodeUTF16(s string, dst []uint16) {
	clear(dst)
	if len(dst) == 0 {
		return
	}
	raw, err := utf16LE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return
	}
	n := min(len(raw)/2, len(dst)-1)
	for i := 0; i < n; i++ {
		dst[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
}
