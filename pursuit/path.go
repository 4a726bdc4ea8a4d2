package pursuit

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"pursuit-sim/utils"
)

// ErrInvalidPath reports a raw path the profiler cannot work with.
var ErrInvalidPath = errors.New("invalid path")

// Waypoint is a profiled path point: position, turning angle at the point,
// cumulative arc length from the path start, and the feasible target velocity.
type Waypoint struct {
	Position          r2.Point
	Angle             float64
	DistanceAlongPath float64
	TargetVelocity    float64
}

// Path is an immutable sequence of profiled waypoints. The zero value is an
// empty path.
type Path struct {
	waypoints []Waypoint
}

func (p Path) Len() int {
	return len(p.waypoints)
}

// At returns the waypoint at index i.
func (p Path) At(i int) Waypoint {
	return p.waypoints[i]
}

// Start returns the first waypoint.
func (p Path) Start() Waypoint {
	return p.waypoints[0]
}

// End returns the final waypoint.
func (p Path) End() Waypoint {
	return p.waypoints[len(p.waypoints)-1]
}

// TotalDistance is the arc length of the whole path.
func (p Path) TotalDistance() float64 {
	if len(p.waypoints) == 0 {
		return 0
	}
	return p.End().DistanceAlongPath
}

func (p Path) endIndex() int {
	return len(p.waypoints) - 1
}

// ProfilePath converts raw ordered points into a velocity-annotated path.
//
// Duplicate consecutive points are collapsed; fewer than two distinct points
// is ErrInvalidPath. Each interior waypoint gets a velocity cap inversely
// related to its turning angle, scaled by angleVelocityParameter and clamped
// to [0, MaxVelocity]. A forward pass limits each velocity to what is
// reachable from the previous waypoint under MaxAcceleration (v² = v₀² + 2ad),
// then a backward pass limits it to what still allows decelerating to the next
// waypoint's velocity. The first and final waypoints are profiled at rest.
func ProfilePath(rawPoints []r2.Point, robot RobotConfig, angleVelocityParameter float64) (Path, error) {
	points := collapseDuplicatePoints(rawPoints)
	if len(points) < 2 {
		return Path{}, errors.Wrapf(ErrInvalidPath, "need at least 2 distinct points, got %d", len(points))
	}

	end := len(points) - 1
	angles := make([]float64, len(points))
	distances := make([]float64, len(points))
	velocities := make([]float64, len(points))

	distanceSum := 0.0

	for i, point := range points {
		switch i {
		case 0:
			angles[i] = 0.0
			velocities[i] = 0.0
		case end:
			angles[i] = 0.0
			distanceSum += distanceBetween(points[i-1], point)
			velocities[i] = 0.0
		default:
			angle := angleBetweenSegments(points[i-1], point, points[i+1])
			segmentLength := distanceBetween(points[i-1], point)
			distanceSum += segmentLength

			angleConstrained := robot.MaxVelocity
			if !utils.IsFloatEqual(angle, 0.0) {
				angleConstrained = math.Min(robot.MaxVelocity, angleVelocityParameter/math.Abs(angle))
			}

			accelerationConstrained := math.Sqrt(
				velocities[i-1]*velocities[i-1] + 2.0*robot.MaxAcceleration*segmentLength,
			)

			angles[i] = angle
			velocities[i] = math.Min(angleConstrained, accelerationConstrained)
		}

		distances[i] = distanceSum
	}

	// Backward pass: each waypoint must still be able to decelerate to the
	// next waypoint's velocity over the connecting segment.
	for i := end - 1; i >= 1; i-- {
		segmentLength := distances[i+1] - distances[i]
		decelerationConstrained := math.Sqrt(
			velocities[i+1]*velocities[i+1] + 2.0*robot.MaxAcceleration*segmentLength,
		)
		velocities[i] = math.Min(velocities[i], decelerationConstrained)
	}

	waypoints := make([]Waypoint, len(points))
	for i, point := range points {
		waypoints[i] = Waypoint{
			Position:          point,
			Angle:             angles[i],
			DistanceAlongPath: distances[i],
			TargetVelocity:    velocities[i],
		}
	}

	return Path{waypoints: waypoints}, nil
}

func collapseDuplicatePoints(points []r2.Point) []r2.Point {
	if len(points) == 0 {
		return nil
	}
	collapsed := make([]r2.Point, 0, len(points))
	collapsed = append(collapsed, points[0])
	for _, point := range points[1:] {
		if arePointsEqual(point, collapsed[len(collapsed)-1]) {
			continue
		}
		collapsed = append(collapsed, point)
	}
	return collapsed
}
