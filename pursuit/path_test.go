package pursuit

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func testRobotConfig() RobotConfig {
	return RobotConfig{
		WheelRadius:            0.1,
		TrackWidth:             0.5,
		Length:                 0.8,
		MaxVelocity:            1.0,
		MaxAcceleration:        0.5,
		MaxAngularVelocity:     1.5,
		MaxAngularAcceleration: 2.0,
	}
}

func TestProfilePathDistances(t *testing.T) {
	points := []r2.Point{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 4}, {X: 6, Y: 4}}

	path, err := ProfilePath(points, testRobotConfig(), 0.6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Len(), test.ShouldEqual, 4)

	test.That(t, path.At(0).DistanceAlongPath, test.ShouldEqual, 0.0)
	test.That(t, path.At(1).DistanceAlongPath, test.ShouldAlmostEqual, 3.0)
	test.That(t, path.At(2).DistanceAlongPath, test.ShouldAlmostEqual, 7.0)
	test.That(t, path.At(3).DistanceAlongPath, test.ShouldAlmostEqual, 10.0)
	test.That(t, path.TotalDistance(), test.ShouldAlmostEqual, 10.0)

	for i := 1; i < path.Len(); i++ {
		test.That(t, path.At(i).DistanceAlongPath, test.ShouldBeGreaterThan, path.At(i-1).DistanceAlongPath)
	}
}

func TestProfilePathEndsAtRest(t *testing.T) {
	points := []r2.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}

	path, err := ProfilePath(points, testRobotConfig(), 0.6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Start().TargetVelocity, test.ShouldEqual, 0.0)
	test.That(t, path.End().TargetVelocity, test.ShouldEqual, 0.0)
}

func TestProfilePathReachability(t *testing.T) {
	// Zigzag path with short and long segments to stress both passes.
	points := []r2.Point{
		{X: 0, Y: 0}, {X: 0.4, Y: 0.1}, {X: 1.5, Y: 0.8}, {X: 1.7, Y: 2.0},
		{X: 3.0, Y: 2.2}, {X: 5.5, Y: 1.0}, {X: 5.8, Y: 0.9}, {X: 7.0, Y: 3.0},
	}
	robot := testRobotConfig()

	path, err := ProfilePath(points, robot, 0.6)
	test.That(t, err, test.ShouldBeNil)

	// Every consecutive pair must be mutually reachable under the
	// acceleration limit: |v1² - v2²| <= 2·a·d.
	for i := 0; i < path.Len()-1; i++ {
		v1 := path.At(i).TargetVelocity
		v2 := path.At(i + 1).TargetVelocity
		d := path.At(i+1).DistanceAlongPath - path.At(i).DistanceAlongPath

		test.That(t, math.Abs(v1*v1-v2*v2), test.ShouldBeLessThanOrEqualTo, 2.0*robot.MaxAcceleration*d+1e-9)
		test.That(t, v1, test.ShouldBeGreaterThanOrEqualTo, 0.0)
		test.That(t, v1, test.ShouldBeLessThanOrEqualTo, robot.MaxVelocity)
	}
}

func TestProfilePathCornerSlowdown(t *testing.T) {
	corner := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}

	path, err := ProfilePath(corner, testRobotConfig(), 0.6)
	test.That(t, err, test.ShouldBeNil)

	// The 90 degree corner caps the waypoint velocity at
	// angleVelocityParameter / (pi/2), well below the straight-line limit.
	cornerVelocity := path.At(1).TargetVelocity
	test.That(t, cornerVelocity, test.ShouldBeLessThan, testRobotConfig().MaxVelocity)
	test.That(t, cornerVelocity, test.ShouldBeLessThanOrEqualTo, 0.6/(math.Pi/2.0)+1e-9)
	test.That(t, path.At(1).Angle, test.ShouldAlmostEqual, math.Pi/2.0)
}

func TestProfilePathCollapsesDuplicates(t *testing.T) {
	points := []r2.Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}

	path, err := ProfilePath(points, testRobotConfig(), 0.6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Len(), test.ShouldEqual, 3)
	test.That(t, path.TotalDistance(), test.ShouldAlmostEqual, 2.0)
}

func TestProfilePathDegenerate(t *testing.T) {
	for _, points := range [][]r2.Point{
		nil,
		{{X: 1, Y: 1}},
		{{X: 0, Y: 0}, {X: 0, Y: 0}},
		{{X: 2, Y: 3}, {X: 2, Y: 3}, {X: 2, Y: 3}},
	} {
		_, err := ProfilePath(points, testRobotConfig(), 0.6)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidPath), test.ShouldBeTrue)
	}
}
