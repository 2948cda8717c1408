package trail

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecode_Points(t *testing.T) {
	points := []core.Vec3{{X: 1, Y: 2, Z: 3}, {X: -4.5, Y: 5.25, Z: 6}, {X: 7, Y: 8, Z: 9}}
	b := Encode(Track{MapID: 50, Points: points})
	require.Len(t, b, 8+3*12)

	tr, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), tr.MapID)
	assert.Equal(t, points, tr.Points)
}

func TestDecode_DropsPartialTriple(t *testing.T) {
	b := Encode(Track{MapID: 15, Points: []core.Vec3{{X: 1, Y: 1, Z: 1}}})
	b = append(b, 1, 2, 3, 4, 5)

	tr, err := Decode(b)
	require.NoError(t, err)
	assert.Len(t, tr.Points, 1)
}

func TestDecode_HeaderOnly(t *testing.T) {
	tr, err := Decode(Encode(Track{MapID: 15}))
	require.NoError(t, err)
	assert.Equal(t, uint32(15), tr.MapID)
	assert.Empty(t, tr.Points)
}

func TestDecode_Short(t *testing.T) {
	_, err := Decode(make([]byte, 7))
	assert.ErrorIs(t, err, ErrShortTrack)
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Data"), 0o755))
	points := []core.Vec3{{X: 10, Y: 20, Z: 30}, {X: 11, Y: 20, Z: 30}}
	require.NoError(t, WriteFile(filepath.Join(dir, "Data", "Karkatrail2.trl"), Track{MapID: 50, Points: points}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.trl"), []byte{1, 2, 3}, 0o644))

	l := NewLoader(dir, 4, 0, quietLogger())

	tr := l.Load(`Data\Karkatrail2.trl`)
	assert.Equal(t, uint32(50), tr.MapID)
	assert.Equal(t, points, tr.Points)
	assert.Equal(t, 1, l.Cached())

	// served from cache after the file is gone
	require.NoError(t, os.Remove(filepath.Join(dir, "Data", "Karkatrail2.trl")))
	assert.Equal(t, points, l.Load("Data/Karkatrail2.trl").Points)

	assert.Empty(t, l.Load("short.trl").Points, "short file yields no points")
	assert.Empty(t, l.Load("missing.trl").Points, "missing file yields no points")
	assert.Empty(t, l.Load("../outside.trl").Points)
	assert.Equal(t, 1, l.Cached(), "failures are not cached")

	l.Purge()
	assert.Equal(t, 0, l.Cached())
}

func TestSegments(t *testing.T) {
	pen := core.Vec3{}
	a, b, c := core.Vec3{X: 1}, core.Vec3{X: 2}, core.Vec3{X: 3}

	assert.Equal(t, [][]core.Vec3{{a, b}, {c}}, Segments([]core.Vec3{pen, a, b, pen, pen, c, pen}))
	assert.Nil(t, Segments([]core.Vec3{pen, {X: 0.5, Y: -0.9}}))
}

func TestGenerateRibbon_SentinelSplits(t *testing.T) {
	points := []core.Vec3{
		{X: 10, Y: 0, Z: 10}, {X: 20, Y: 0, Z: 10}, {X: 30, Y: 0, Z: 10},
		{X: 0.4, Y: 0.2, Z: -0.7},
		{X: 10, Y: 5, Z: 40}, {X: 10, Y: 5, Z: 50},
	}

	strips := GenerateRibbon(points, DefaultHalfWidth)
	require.Len(t, strips, 2)
	assert.Equal(t, 2, strips[0].Segments())
	assert.Equal(t, 1, strips[1].Segments())
	for _, s := range strips {
		assert.Len(t, s.Positions, 4*s.Segments())
		assert.Len(t, s.UVs, len(s.Positions))
	}
}

func TestGenerateRibbon_SinglePoint(t *testing.T) {
	assert.Empty(t, GenerateRibbon([]core.Vec3{{X: 5, Y: 5, Z: 5}}, DefaultHalfWidth))
	assert.Empty(t, GenerateRibbon([]core.Vec3{{X: 5, Y: 5, Z: 5}, {}, {X: 9, Y: 9, Z: 9}}, DefaultHalfWidth))
	assert.Empty(t, GenerateRibbon(nil, DefaultHalfWidth))
}

func TestGenerateRibbon_Geometry(t *testing.T) {
	// one segment along +X
	strips := GenerateRibbon([]core.Vec3{{X: 10, Y: 1, Z: 10}, {X: 12, Y: 1, Z: 10}}, 0.5)
	require.Len(t, strips, 1)
	s := strips[0]

	want := Strip{
		Positions: []core.Vec3{
			{X: 9.5, Y: 1, Z: 10},  // first rail, left
			{X: 10.5, Y: 1, Z: 10}, // first rail, right
			{X: 12, Y: 1, Z: 10.5},
			{X: 12, Y: 1, Z: 9.5},
		},
		UVs:     [][2]float32{{0, 0}, {1, 0}, {1, 4}, {0, 4}},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
	if diff := cmp.Diff(want, s, cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("ribbon mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateRibbon_ShortSegmentRepeatsOnce(t *testing.T) {
	strips := GenerateRibbon([]core.Vec3{{X: 10, Z: 10}, {X: 10.1, Z: 10}, {X: 10.1, Z: 10}}, 0.5)
	require.Len(t, strips, 1)
	s := strips[0]
	assert.Equal(t, 1, s.Segments(), "repeated point adds no segment")
	assert.Equal(t, float32(1), s.UVs[2][1])
	for _, p := range s.Positions {
		assert.False(t, math.IsNaN(float64(p.X)) || math.IsNaN(float64(p.Z)))
	}
}

func TestGenerateRibbon_SkipsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	points := []core.Vec3{{X: 10, Z: 10}, {X: nan, Y: 1, Z: 12}, {X: 12, Z: 10}, {X: 14, Y: inf, Z: 10}}

	strips := GenerateRibbon(points, 0.5)
	require.Len(t, strips, 1)
	assert.Equal(t, 1, strips[0].Segments())
	for _, p := range strips[0].Positions {
		assert.True(t, p.IsFinite())
	}
	for _, uv := range strips[0].UVs {
		assert.False(t, math.IsNaN(float64(uv[1])))
	}

	assert.Equal(t, [][]core.Vec3{{{X: 10, Z: 10}, {X: 12, Z: 10}}}, Segments(points))
	assert.InDelta(t, 2.0, Length(points), 1e-6)
}

func TestGenerateRibbon_IndicesPerStrip(t *testing.T) {
	strips := GenerateRibbon([]core.Vec3{{X: 1, Z: 1}, {X: 2, Z: 1}, {X: 3, Z: 2}, {X: 4, Z: 2}}, 0.5)
	require.Len(t, strips, 1)
	assert.Equal(t, []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4, 8, 9, 10, 10, 11, 8}, strips[0].Indices)
	// each quad starts from the previous quad's far rail
	assert.Equal(t, strips[0].Positions[3], strips[0].Positions[4])
	assert.Equal(t, strips[0].Positions[2], strips[0].Positions[5])
}

func TestCenterlines(t *testing.T) {
	points := []core.Vec3{{X: 1, Y: 1, Z: 1}, {X: 4, Y: 5, Z: 1}, {}, {X: 9, Y: 9, Z: 9}, {}, {X: 2, Y: 2, Z: 2}, {X: 2, Y: 2, Z: 3}}

	lines := Centerlines(points)
	require.Len(t, lines, 2, "single point run is skipped")
	assert.InDelta(t, 6.0, Length(points), 1e-6)
}
