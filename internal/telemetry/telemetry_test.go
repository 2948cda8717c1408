package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

func TestValidateLayout(t *testing.T) {
	require.NoError(t, ValidateLayout())
}

func TestWireRecord_RoundTrip(t *testing.T) {
	var w WireRecord
	w.SchemaVersion = 2
	w.Tick = 77
	w.AvatarPosition = [3]float32{1.5, -2, 3}
	w.CameraFront = [3]float32{0, 0, 1}
	EncodeUTF16("Guild Wars 2", w.Name[:])
	w.SetContextBlock(ContextBlock{MapID: 50, UIState: uint32(UIInCombat), MountIndex: 3})

	b, err := w.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, WireRecordSize)

	got, err := DecodeWire(b)
	require.NoError(t, err)
	assert.Equal(t, w, got)
	assert.Equal(t, uint32(ContextBlockSize), got.ContextLen)
	assert.Equal(t, uint32(50), got.ContextBlock().MapID)
	assert.Equal(t, uint8(3), got.ContextBlock().MountIndex)
}

func TestDecodeWire_WrongSize(t *testing.T) {
	for _, n := range []int{0, 100, WireRecordSize - 1, WireRecordSize + 1, RecordSize} {
		_, err := DecodeWire(make([]byte, n))
		assert.ErrorIs(t, err, ErrSize, "size %d", n)
	}
}

func TestWireRecord_RecordZeroesDescription(t *testing.T) {
	var w WireRecord
	w.Tick = 9
	r := w.Record()
	assert.Equal(t, uint32(9), r.Tick)
	assert.Equal(t, [descriptionUnits]uint16{}, r.Description)

	b, err := r.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, RecordSize)
	for _, v := range b[WireRecordSize:] {
		require.Zero(t, v)
	}
}

func TestRecord_EncodeDecode(t *testing.T) {
	var r Record
	r.Tick = 1234
	EncodeUTF16("a description", r.Description[:])

	buf := make([]byte, RecordSize)
	require.NoError(t, r.EncodeInto(buf))

	got, err := DecodeRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, r.WireRecord, got.Wire())

	assert.ErrorIs(t, r.EncodeInto(make([]byte, 10)), ErrSize)
}

func TestContextBlock_UIStateBits(t *testing.T) {
	all := []UIState{UIMapOpen, UICompassTopRight, UICompassRotation, UIGameFocus, UICompetitiveMode, UITextboxFocus, UIInCombat}
	for bit := 0; bit < 7; bit++ {
		c := ContextBlock{UIState: 1 << bit}
		for i, s := range all {
			assert.Equal(t, i == bit, c.HasUIState(s), "mask bit %d, flag %s", bit, s)
		}
		assert.Equal(t, []UIState{all[bit]}, c.ActiveUIStates())
	}

	c := ContextBlock{}
	assert.False(t, c.HasUIState(UIMapOpen))
	assert.Empty(t, c.ActiveUIStates())
}

func TestUTF16(t *testing.T) {
	buf := make([]uint16, 8)
	EncodeUTF16("Tyrian", buf)
	assert.Equal(t, "Tyrian", DecodeUTF16(buf))

	EncodeUTF16("0123456789", buf)
	assert.Equal(t, "0123456", DecodeUTF16(buf), "truncated to leave room for NUL")

	assert.Equal(t, "", DecodeUTF16(make([]uint16, 4)))
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity(`{"name":"Rytlock Brimstone","profession":9,"spec":0,"race":1,"map_id":50,"world_id":268435505,"team_color_id":0,"commander":false,"fov":0.873,"uisz":1}`)
	require.NoError(t, err)
	assert.Equal(t, "Rytlock Brimstone", id.Name)
	assert.Equal(t, uint32(50), id.MapID)
	assert.Equal(t, uint32(1), id.UISize)
	assert.InDelta(t, 0.873, id.FOV, 1e-6)

	id, err = ParseIdentity("")
	require.NoError(t, err)
	assert.Equal(t, Identity{}, id)

	_, err = ParseIdentity("{not json")
	assert.Error(t, err)
}

func TestSnapshot_Accessors(t *testing.T) {
	var r Record
	r.Tick = 5
	r.AvatarPosition = [3]float32{1, 2, 3}
	r.CameraPosition = [3]float32{4, 5, 6}
	EncodeUTF16(`{"name":"Caithe","map_id":15}`, r.Identity[:])
	r.SetContextBlock(ContextBlock{MapID: 15, ShardID: 2, UIState: uint32(UIInCombat | UIGameFocus)})

	now := time.Unix(1700000000, 0)
	s := NewSnapshot(r, now)
	assert.True(t, s.Ready())
	assert.Equal(t, uint32(5), s.Tick())
	assert.Equal(t, core.Vec3{X: 1, Y: 2, Z: 3}, s.AvatarPosition())
	assert.Equal(t, core.Vec3{X: 4, Y: 5, Z: 6}, s.CameraPosition())

	smp := s.Sample("sess")
	assert.Equal(t, "sess", smp.SessionID)
	assert.Equal(t, now, smp.Time)
	assert.Equal(t, "Caithe", smp.CharacterName)
	assert.Equal(t, uint32(15), smp.MapID)
	assert.True(t, smp.InCombat)

	assert.False(t, NewSnapshot(Record{}, now).Ready())
}

func TestMapTracker(t *testing.T) {
	var mt MapTracker
	snap := func(tick, mapID uint32) Snapshot {
		var r Record
		r.Tick = tick
		r.SetContextBlock(ContextBlock{MapID: mapID})
		return NewSnapshot(r, time.Now())
	}

	_, changed := mt.Observe(snap(0, 50))
	assert.False(t, changed, "no frame yet")

	prev, changed := mt.Observe(snap(1, 50))
	assert.True(t, changed)
	assert.Equal(t, uint32(0), prev)

	_, changed = mt.Observe(snap(2, 50))
	assert.False(t, changed)

	prev, changed = mt.Observe(snap(3, 15))
	assert.True(t, changed)
	assert.Equal(t, uint32(50), prev)
	assert.Equal(t, uint32(15), mt.Current())
}
