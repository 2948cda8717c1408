// pkg/core/types.go
package core

import "math"

// Vec3 is a position or direction in game space, in the same float32 units the
// game writes into the shared record.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Vec3FromArray converts the [3]float32 layout used by the binary record.
func Vec3FromArray(a [3]float32) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Array returns v in the binary record layout.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// Distance returns the euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float32 {
	dx := float64(v.X - o.X)
	dy := float64(v.Y - o.Y)
	dz := float64(v.Z - o.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// IsPenUp reports whether v is the (0,0,0) track break marker. Components are
// truncated toward zero first, so anything inside the open unit cube counts.
// Non-finite points are never markers.
func (v Vec3) IsPenUp() bool {
	return v.IsFinite() && int32(v.X) == 0 && int32(v.Y) == 0 && int32(v.Z) == 0
}

// IsFinite reports whether no component of v is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range v.Array() {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
