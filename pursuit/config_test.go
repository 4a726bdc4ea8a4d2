package pursuit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestRobotConfigValidate(t *testing.T) {
	valid := testRobotConfig()
	test.That(t, valid.Validate(), test.ShouldBeNil)

	for _, mutate := range []func(*RobotConfig){
		func(c *RobotConfig) { c.WheelRadius = 0 },
		func(c *RobotConfig) { c.TrackWidth = -0.5 },
		func(c *RobotConfig) { c.Length = 0 },
		func(c *RobotConfig) { c.MaxVelocity = 0 },
		func(c *RobotConfig) { c.MaxAcceleration = -1 },
		func(c *RobotConfig) { c.MaxAngularVelocity = 0 },
		func(c *RobotConfig) { c.MaxAngularAcceleration = 0 },
	} {
		cfg := testRobotConfig()
		mutate(&cfg)
		err := cfg.Validate()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrConfiguration), test.ShouldBeTrue)
	}
}

func TestPurePursuitConfigValidate(t *testing.T) {
	valid := testPursuitConfig()
	test.That(t, valid.Validate(), test.ShouldBeNil)

	for _, mutate := range []func(*PurePursuitConfig){
		func(c *PurePursuitConfig) { c.MinLookAheadDistance = 0 },
		func(c *PurePursuitConfig) { c.MaxLookAheadDistance = c.MinLookAheadDistance / 2.0 },
		func(c *PurePursuitConfig) { c.AngleVelocityParameter = 0 },
		func(c *PurePursuitConfig) { c.FinalApproachVelocity = -0.1 },
		func(c *PurePursuitConfig) { c.EndConditionDistance = -0.01 },
	} {
		cfg := testPursuitConfig()
		mutate(&cfg)
		err := cfg.Validate()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrConfiguration), test.ShouldBeTrue)
	}
}

func TestSimulationConfigValidate(t *testing.T) {
	valid := SimulationConfig{ControlFrequency: 50, AvgAbsCrossTrackErrorThreshold: 0.05}
	test.That(t, valid.Validate(), test.ShouldBeNil)

	err := SimulationConfig{ControlFrequency: 0, AvgAbsCrossTrackErrorThreshold: 0.05}.Validate()
	test.That(t, errors.Is(err, ErrConfiguration), test.ShouldBeTrue)

	err = SimulationConfig{ControlFrequency: 50, AvgAbsCrossTrackErrorThreshold: 0}.Validate()
	test.That(t, errors.Is(err, ErrConfiguration), test.ShouldBeTrue)
}

func TestLoadConfigFiles(t *testing.T) {
	dir := t.TempDir()

	robotFile := filepath.Join(dir, "robot.json")
	test.That(t, os.WriteFile(robotFile, []byte(`{
		"wheel_radius": 0.1,
		"track_width": 0.5,
		"length": 0.8,
		"max_velocity": 1.0,
		"max_acceleration": 0.5,
		"max_angular_velocity": 1.5,
		"max_angular_acceleration": 2.0
	}`), 0o644), test.ShouldBeNil)

	robot, err := LoadRobotConfig(robotFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, robot, test.ShouldResemble, testRobotConfig())

	pathFile := filepath.Join(dir, "path.json")
	test.That(t, os.WriteFile(pathFile, []byte(`[{"x": 0, "y": 0}, {"x": 2.5, "y": -1}]`), 0o644), test.ShouldBeNil)

	points, err := LoadRawPath(pathFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(points), test.ShouldEqual, 2)
	test.That(t, points[1].X, test.ShouldEqual, 2.5)
	test.That(t, points[1].Y, test.ShouldEqual, -1.0)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRobotConfig(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	badFile := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(badFile, []byte(`{not json`), 0o644), test.ShouldBeNil)
	_, err = LoadPurePursuitConfig(badFile)
	test.That(t, err, test.ShouldNotBeNil)

	// Parses but fails validation.
	zeroFile := filepath.Join(dir, "zero.json")
	test.That(t, os.WriteFile(zeroFile, []byte(`{}`), 0o644), test.ShouldBeNil)
	_, err = LoadRobotConfig(zeroFile)
	test.That(t, errors.Is(err, ErrConfiguration), test.ShouldBeTrue)
}
