package pursuit

import (
	"math"

	"github.com/golang/geo/r2"
)

// PropagatePose integrates differential-drive forward kinematics over dt.
//
// Linear velocity is wheelRadius * (right + left) / 2 and angular velocity is
// wheelRadius * (right - left) / trackWidth. Integration is explicit Euler:
// the position advances along the pre-update heading, then the heading
// integrates. Pure function; identical inputs produce identical outputs.
func PropagatePose(robot RobotConfig, previous Pose, command Command, dt float64) Pose {
	velocity := robot.WheelRadius * (command.RightWheelAngularVelocity + command.LeftWheelAngularVelocity) / 2.0
	angularVelocity := robot.WheelRadius * (command.RightWheelAngularVelocity - command.LeftWheelAngularVelocity) / robot.TrackWidth

	return Pose{
		Position: r2.Point{
			X: previous.Position.X + math.Cos(previous.Heading)*velocity*dt,
			Y: previous.Position.Y + math.Sin(previous.Heading)*velocity*dt,
		},
		Heading:         previous.Heading + angularVelocity*dt,
		Velocity:        velocity,
		AngularVelocity: angularVelocity,
	}
}
