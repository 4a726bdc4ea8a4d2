package pursuit

import "github.com/golang/geo/r2"

// Pose is the robot state at the wheel-axle midpoint. Velocity and
// AngularVelocity are the realized values produced by the kinematic model,
// which the controller rate-limits against on the next tick.
type Pose struct {
	Position        r2.Point `json:"position"`
	Heading         float64  `json:"heading"`
	Velocity        float64  `json:"velocity"`
	AngularVelocity float64  `json:"angular_velocity"`
}

// RightWheelAngularVelocity decomposes the pose twist into the right wheel's
// angular velocity (rad/s).
func (p Pose) RightWheelAngularVelocity(robot RobotConfig) float64 {
	return (p.Velocity + 0.5*p.AngularVelocity*robot.TrackWidth) / robot.WheelRadius
}

// LeftWheelAngularVelocity decomposes the pose twist into the left wheel's
// angular velocity (rad/s).
func (p Pose) LeftWheelAngularVelocity(robot RobotConfig) float64 {
	return (p.Velocity - 0.5*p.AngularVelocity*robot.TrackWidth) / robot.WheelRadius
}

// Command is one tick's wheel-velocity command, in rad/s, signed.
type Command struct {
	LeftWheelAngularVelocity  float64 `json:"left_wheel_angular_velocity"`
	RightWheelAngularVelocity float64 `json:"right_wheel_angular_velocity"`
}
