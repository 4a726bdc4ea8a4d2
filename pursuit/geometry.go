package pursuit

import (
	"math"

	"github.com/golang/geo/r2"

	"pursuit-sim/utils"
)

func distanceBetween(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

func arePointsEqual(a, b r2.Point) bool {
	return utils.IsFloatEqual(a.X, b.X) && utils.IsFloatEqual(a.Y, b.Y)
}

// lineSegmentAngle returns the heading of the segment a -> b.
func lineSegmentAngle(a, b r2.Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// normalizeAngle maps an angle into (-pi, pi].
func normalizeAngle(angle float64) float64 {
	result := angle
	if result > math.Pi {
		result -= 2.0 * math.Pi
	} else if result <= -math.Pi {
		result += 2.0 * math.Pi
	}
	return result
}

// angleBetweenSegments returns the normalized turning angle at b between the
// incoming segment a -> b and the outgoing segment b -> c.
func angleBetweenSegments(a, b, c r2.Point) float64 {
	return normalizeAngle(lineSegmentAngle(b, c) - lineSegmentAngle(a, b))
}

// lateralOffset returns the robot-frame lateral coordinate of p relative to a
// pose at origin with the given heading. Positive means p is left of the
// heading line, zero means collinear.
func lateralOffset(p, origin r2.Point, heading float64) float64 {
	dx := p.X - origin.X
	dy := p.Y - origin.Y
	return -math.Sin(heading)*dx + math.Cos(heading)*dy
}

// segmentOrientation returns +1 when p is left of (or on) the line a -> b,
// -1 when right of it.
func segmentOrientation(p, a, b r2.Point) float64 {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	return utils.Sgn(cross)
}

// orthogonalPointOnSegment projects p onto the segment a -> b. The second
// return value is false when the foot of the perpendicular falls outside the
// segment.
func orthogonalPointOnSegment(p, a, b r2.Point) (r2.Point, bool) {
	d := b.Sub(a)
	lengthSquared := d.X*d.X + d.Y*d.Y
	proportion := ((p.X-a.X)*d.X + (p.Y-a.Y)*d.Y) / lengthSquared

	if !utils.IsFloatWithin(proportion, 0.0, 1.0) {
		return r2.Point{}, false
	}
	return a.Add(d.Mul(proportion)), true
}

// segmentCircleIntersections returns the intersections of the segment a -> b
// with the circle at center with the given radius. Zero, one, or two points.
func segmentCircleIntersections(center r2.Point, radius float64, a, b r2.Point) []r2.Point {
	// Translate so the circle center sits at the origin.
	x1 := a.X - center.X
	y1 := a.Y - center.Y
	x2 := b.X - center.X
	y2 := b.Y - center.Y

	dx := x2 - x1
	dy := y2 - y1
	drSquared := dx*dx + dy*dy
	det := x1*y2 - x2*y1

	discriminant := radius*radius*drSquared - det*det
	if discriminant < 0.0 {
		return nil
	}

	sqrtDiscriminant := math.Sqrt(discriminant)
	candidates := []r2.Point{
		{
			X: (det*dy + utils.Sgn(dy)*dx*sqrtDiscriminant) / drSquared,
			Y: (-det*dx + math.Abs(dy)*sqrtDiscriminant) / drSquared,
		},
		{
			X: (det*dy - utils.Sgn(dy)*dx*sqrtDiscriminant) / drSquared,
			Y: (-det*dx - math.Abs(dy)*sqrtDiscriminant) / drSquared,
		},
	}

	minX := math.Min(a.X, b.X)
	maxX := math.Max(a.X, b.X)
	minY := math.Min(a.Y, b.Y)
	maxY := math.Max(a.Y, b.Y)

	var valid []r2.Point
	for _, candidate := range candidates {
		p := candidate.Add(center)
		if utils.IsFloatWithin(p.X, minX, maxX) && utils.IsFloatWithin(p.Y, minY, maxY) {
			valid = append(valid, p)
		}
	}
	return valid
}
