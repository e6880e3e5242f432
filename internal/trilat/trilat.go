// Package trilat estimates a planar position from three range measurements.
package trilat

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrGeometricDegeneracy is returned when the sources are collinear or
	// coincident and the linear system has no unique solution.
	ErrGeometricDegeneracy = errors.New("trilat: geometric degeneracy")
	// ErrNonFinite is returned when the solution is NaN or infinite.
	ErrNonFinite = errors.New("trilat: non-finite solution")
)

// DegeneracyTolerance is the relative tolerance under which the two
// determinant terms are treated as equal.
const DegeneracyTolerance = 1e-12

// Source is a reference point with a measured distance to the target, both in km.
type Source struct {
	Position r2.Vec
	Range    float64
}

// TravelRange converts a signal's send and receive timestamps, expressed in
// ticks of unit, to a distance at the given propagation speed (per second).
func TravelRange(sentAt, receivedAt float64, unit time.Duration, speed float64) float64 {
	return (receivedAt - sentAt) * unit.Seconds() * speed
}

// Solve returns the position consistent with the three sources by subtracting
// circle 2 from circle 1 and circle 3 from circle 2, which leaves two linear
// equations in x and y.
func Solve(s1, s2, s3 Source) (r2.Vec, error) {
	x1, y1, r1sq := s1.Position.X, s1.Position.Y, s1.Range*s1.Range
	x2, y2, r2sq := s2.Position.X, s2.Position.Y, s2.Range*s2.Range
	x3, y3, r3sq := s3.Position.X, s3.Position.Y, s3.Range*s3.Range

	a := 2 * (x2 - x1)
	b := 2 * (y2 - y1)
	c := r1sq - r2sq - x1*x1 + x2*x2 - y1*y1 + y2*y2

	d := 2 * (x3 - x2)
	e := 2 * (y3 - y2)
	f := r2sq - r3sq - x2*x2 + x3*x3 - y2*y2 + y3*y3

	ea, bd := e*a, b*d
	if scalar.EqualWithinAbsOrRel(ea, bd, 0, DegeneracyTolerance) {
		return r2.Vec{}, ErrGeometricDegeneracy
	}

	p := r2.Vec{
		X: (c*e - f*b) / (ea - bd),
		Y: (c*d - a*f) / (bd - ea),
	}
	if !finite(p.X) || !finite(p.Y) {
		return r2.Vec{}, ErrNonFinite
	}
	return p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
