package trail

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/gw2overlay/linkbridge/internal/geo"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

// Centerlines returns one line string per pen-up separated run with at least
// two points.
func Centerlines(points []core.Vec3) []geom.LineString {
	var out []geom.LineString
	for _, seg := range Segments(points) {
		ls, err := geo.LineStringXYZ(seg)
		if err != nil {
			continue
		}
		out = append(out, ls)
	}
	return out
}

// Length is the total 3D length of all runs.
func Length(points []core.Vec3) float64 {
	var total float64
	for _, ls := range Centerlines(points) {
		total += geo.Length3D(ls)
	}
	return total
}
