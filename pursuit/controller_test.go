package pursuit

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func testPursuitConfig() PurePursuitConfig {
	return PurePursuitConfig{
		MinLookAheadDistance:   0.3,
		MaxLookAheadDistance:   1.0,
		AngleVelocityParameter: 0.6,
		FinalApproachVelocity:  0.15,
		EndConditionDistance:   0.05,
	}
}

// runSimulation drives the controller against the kinematic model until path
// completion, returning the visited poses and the commands that produced them.
func runSimulation(
	t *testing.T,
	points []r2.Point,
	maxSteps int,
) (*Controller, []Pose, []Command) {
	t.Helper()

	robot := testRobotConfig()
	cfg := testPursuitConfig()
	logger := golog.NewTestLogger(t)

	path, err := ProfilePath(points, robot, cfg.AngleVelocityParameter)
	test.That(t, err, test.ShouldBeNil)

	controller, err := NewController(cfg, robot, path, logger)
	test.That(t, err, test.ShouldBeNil)

	dt := 0.02
	pose := Pose{
		Position: points[0],
		Heading:  lineSegmentAngle(points[0], points[1]),
	}
	command := Command{}

	var poses []Pose
	var commands []Command

	for step := 0; !controller.PathComplete(); step++ {
		test.That(t, step, test.ShouldBeLessThan, maxSteps)

		pose = PropagatePose(robot, pose, command, dt)
		command = controller.Update(pose, dt)

		poses = append(poses, pose)
		commands = append(commands, command)
	}

	return controller, poses, commands
}

func TestNewControllerEmptyPath(t *testing.T) {
	logger := golog.NewTestLogger(t)

	_, err := NewController(testPursuitConfig(), testRobotConfig(), Path{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrEmptyPath), test.ShouldBeTrue)
}

func TestSignedCurvature(t *testing.T) {
	path, err := ProfilePath([]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, testRobotConfig(), 0.6)
	test.That(t, err, test.ShouldBeNil)

	c, err := NewController(testPursuitConfig(), testRobotConfig(), path, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	pose := Pose{Heading: 0.0}

	// Target left of the heading line: positive curvature.
	test.That(t, c.signedCurvature(pose, r2.Point{X: 1, Y: 1}), test.ShouldAlmostEqual, 1.0)
	// Target right: negative.
	test.That(t, c.signedCurvature(pose, r2.Point{X: 1, Y: -1}), test.ShouldAlmostEqual, -1.0)
	// Collinear: zero.
	test.That(t, c.signedCurvature(pose, r2.Point{X: 2, Y: 0}), test.ShouldEqual, 0.0)
	// Degenerate: target at the robot position.
	test.That(t, c.signedCurvature(pose, r2.Point{}), test.ShouldEqual, 0.0)

	// A rotated frame flips which side is left.
	pose = Pose{Heading: math.Pi / 2.0}
	test.That(t, c.signedCurvature(pose, r2.Point{X: -1, Y: 1}), test.ShouldBeGreaterThan, 0.0)
	test.That(t, c.signedCurvature(pose, r2.Point{X: 1, Y: 1}), test.ShouldBeLessThan, 0.0)
}

func TestStraightPathRun(t *testing.T) {
	controller, poses, commands := runSimulation(t, []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, 20000)

	test.That(t, controller.PathComplete(), test.ShouldBeTrue)

	final := poses[len(poses)-1]
	test.That(t, final.Position.X, test.ShouldBeBetween, 9.95, 10.05)
	test.That(t, final.Position.Y, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, final.Heading, test.ShouldAlmostEqual, 0.0, 1e-6)

	// A straight path never turns: wheel commands stay identical.
	for _, command := range commands {
		test.That(t, command.LeftWheelAngularVelocity, test.ShouldAlmostEqual, command.RightWheelAngularVelocity, 1e-9)
	}
}

func TestCheckpointIndexMonotonic(t *testing.T) {
	robot := testRobotConfig()
	cfg := testPursuitConfig()
	points := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}}

	path, err := ProfilePath(points, robot, cfg.AngleVelocityParameter)
	test.That(t, err, test.ShouldBeNil)

	controller, err := NewController(cfg, robot, path, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	dt := 0.02
	pose := Pose{Heading: 0.0}
	command := Command{}
	previousCheckpoint := controller.CheckpointIndex()

	for step := 0; !controller.PathComplete() && step < 20000; step++ {
		pose = PropagatePose(robot, pose, command, dt)
		command = controller.Update(pose, dt)

		checkpoint := controller.CheckpointIndex()
		test.That(t, checkpoint, test.ShouldBeGreaterThanOrEqualTo, previousCheckpoint)
		test.That(t, checkpoint, test.ShouldBeBetweenOrEqual, 0, path.Len()-1)
		previousCheckpoint = checkpoint
	}

	test.That(t, controller.PathComplete(), test.ShouldBeTrue)
}

func TestCornerPathRun(t *testing.T) {
	controller, poses, commands := runSimulation(t, []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}, 20000)

	test.That(t, controller.PathComplete(), test.ShouldBeTrue)

	final := poses[len(poses)-1]
	test.That(t, final.Position.Sub(r2.Point{X: 1, Y: 1}).Norm(), test.ShouldBeLessThan, 0.1)

	// The corner turns left, so at some point the right wheel must lead.
	leftTurnSeen := false
	for _, command := range commands {
		if command.RightWheelAngularVelocity-command.LeftWheelAngularVelocity > 0.1 {
			leftTurnSeen = true
			break
		}
	}
	test.That(t, leftTurnSeen, test.ShouldBeTrue)

	// The angle-based cap keeps the realized velocity below the straight-line
	// limit throughout the approach to the corner.
	maxVelocity := 0.0
	for _, pose := range poses {
		maxVelocity = math.Max(maxVelocity, pose.Velocity)
	}
	test.That(t, maxVelocity, test.ShouldBeLessThan, testRobotConfig().MaxVelocity)
}

func TestUpdateAfterCompleteReturnsZeroCommand(t *testing.T) {
	controller, poses, _ := runSimulation(t, []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, 20000)

	command := controller.Update(poses[len(poses)-1], 0.02)
	test.That(t, command, test.ShouldResemble, Command{})
	test.That(t, controller.PathComplete(), test.ShouldBeTrue)
}

func TestLookAheadDistanceScalesWithVelocity(t *testing.T) {
	robot := testRobotConfig()
	cfg := testPursuitConfig()

	path, err := ProfilePath([]r2.Point{{X: 0, Y: 0}, {X: 50, Y: 0}}, robot, cfg.AngleVelocityParameter)
	test.That(t, err, test.ShouldBeNil)

	c, err := NewController(cfg, robot, path, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	slow := c.calculateLookAheadDistance(Pose{Velocity: 0.0})
	half := c.calculateLookAheadDistance(Pose{Velocity: robot.MaxVelocity / 2.0})
	fast := c.calculateLookAheadDistance(Pose{Velocity: robot.MaxVelocity})

	test.That(t, slow, test.ShouldAlmostEqual, cfg.MinLookAheadDistance)
	test.That(t, half, test.ShouldAlmostEqual, (cfg.MinLookAheadDistance+cfg.MaxLookAheadDistance)/2.0)
	test.That(t, fast, test.ShouldAlmostEqual, cfg.MaxLookAheadDistance)
}
