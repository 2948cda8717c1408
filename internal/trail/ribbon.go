package trail

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

// DefaultHalfWidth is the ribbon half width in game units.
const DefaultHalfWidth = 0.5

// Strip is one disjoint ribbon mesh: a triangle list of quads, four vertices
// per track segment.
type Strip struct {
	Positions []core.Vec3
	UVs       [][2]float32
	Indices   []uint32
}

// Segments returns the number of track segments in s.
func (s Strip) Segments() int { return len(s.Indices) / 6 }

// GenerateRibbon builds ribbon strips along points. A pen-up point ends the
// current strip and is itself dropped; runs with a single point produce no
// geometry. Across each segment U runs 0 to 1 and V runs from 0 to
// max(1, length/halfWidth). Repeated and non-finite points add no segment.
func GenerateRibbon(points []core.Vec3, halfWidth float32) []Strip {
	w := float64(halfWidth)
	var (
		out      []Strip
		cur      Strip
		prev     r3.Vec
		havePrev bool
		rail1    r3.Vec
		rail2    r3.Vec
	)
	flush := func() {
		if len(cur.Indices) > 0 {
			out = append(out, cur)
		}
		cur = Strip{}
		havePrev = false
	}

	for _, p := range points {
		if p.IsPenUp() {
			flush()
			continue
		}
		if !p.IsFinite() {
			continue
		}
		pt := toR3(p)
		if !havePrev {
			rail1 = r3.Vec{X: pt.X - w, Y: pt.Y, Z: pt.Z}
			rail2 = r3.Vec{X: pt.X + w, Y: pt.Y, Z: pt.Z}
			prev, havePrev = pt, true
			continue
		}
		if pt.X == prev.X && pt.Z == prev.Z {
			// no horizontal direction to take a perpendicular from
			continue
		}

		next1, next2 := perpendicular(prev, pt, w)
		v := float32(max(1, r3.Norm(r3.Sub(pt, prev))/w))

		base := uint32(len(cur.Positions))
		cur.Positions = append(cur.Positions, toVec3(rail1), toVec3(rail2), toVec3(next2), toVec3(next1))
		cur.UVs = append(cur.UVs, [2]float32{0, 0}, [2]float32{1, 0}, [2]float32{1, v}, [2]float32{0, v})
		cur.Indices = append(cur.Indices, base, base+1, base+2, base+2, base+3, base)

		rail1, rail2 = next1, next2
		prev = pt
	}
	flush()
	return out
}

// perpendicular offsets cur by ±w across the horizontal direction from prev.
func perpendicular(prev, cur r3.Vec, w float64) (r3.Vec, r3.Vec) {
	off := r3.Scale(w, r3.Unit(r3.Vec{X: cur.Z - prev.Z, Z: prev.X - cur.X}))
	return r3.Add(cur, off), r3.Sub(cur, off)
}

func toR3(v core.Vec3) r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func toVec3(v r3.Vec) core.Vec3 {
	return core.Vec3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
