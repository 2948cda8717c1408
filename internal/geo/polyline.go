package geo

import (
	"encoding/json"
	"fmt"

	"github.com/gw2overlay/linkbridge/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// LineStringXYZ builds a 3D line string from an ordered point run.
func LineStringXYZ(points []core.Vec3) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("line string must have at least 2 points, got %d", len(points))
	}

	flatCoords := make([]float64, 0, len(points)*3)
	for _, p := range points {
		flatCoords = append(flatCoords, float64(p.X), float64(p.Y), float64(p.Z))
	}

	// Game space is Y up, so a run along Z alone has a single distinct XY
	// value; geom would reject it as degenerate.
	seq := geom.NewSequence(flatCoords, geom.DimXYZ)
	return geom.NewLineString(seq, geom.DisableAllValidations)
}

// PointsFromLineString returns the vertices of ls in order.
func PointsFromLineString(ls geom.LineString) []core.Vec3 {
	seq := ls.Coordinates()
	out := make([]core.Vec3, seq.Length())
	for i := range out {
		c := seq.Get(i)
		out[i] = core.Vec3{X: float32(c.X), Y: float32(c.Y), Z: float32(c.Z)}
	}
	return out
}

// Length3D is the summed 3D length of ls. geom's own Length only measures XY.
func Length3D(ls geom.LineString) float64 {
	pts := PointsFromLineString(ls)
	var total float64
	for i := 1; i < len(pts); i++ {
		total += float64(pts[i-1].Distance(pts[i]))
	}
	return total
}

// ParsePath parses a JSON array of coordinates into track points.
// Input format: "[[x1,y1,z1],[x2,y2,z2],...]"
func ParsePath(input string) ([]core.Vec3, error) {
	var coords [][]float32
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse path JSON: %w", err)
	}

	points := make([]core.Vec3, len(coords))
	for i, coord := range coords {
		if len(coord) < 3 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		points[i] = core.Vec3{X: coord[0], Y: coord[1], Z: coord[2]}
	}

	return points, nil
}
