// Package geo converts track points to simplefeatures geometries. Game space
// is planar with Y up, so points are stored as XYZ without an SRID.
package geo

import (
	"errors"

	"github.com/gw2overlay/linkbridge/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointXYZ creates a 3D point from a game position
func PointXYZ(v core.Vec3) geom.Point {
	// validations are off, so NewPoint cannot fail
	p, _ := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: float64(v.X), Y: float64(v.Y)},
			Z:    float64(v.Z),
			Type: geom.DimXYZ,
		},
		geom.DisableAllValidations,
	)
	return p
}

// Vec3FromPoint is the inverse of PointXYZ. Empty points yield ErrInvalidCoordinates.
func Vec3FromPoint(p geom.Point) (core.Vec3, error) {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	return core.Vec3{X: float32(c.X), Y: float32(c.Y), Z: float32(c.Z)}, nil
}
