package pursuit

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ErrConfiguration marks a configuration value the core cannot run with.
// The loaders validate eagerly so the control loop never sees bad numbers.
var ErrConfiguration = errors.New("invalid configuration")

// RobotConfig describes the physical platform and its motion limits.
// All fields are meters, m/s, m/s², rad/s, or rad/s².
type RobotConfig struct {
	WheelRadius            float64 `json:"wheel_radius"`
	TrackWidth             float64 `json:"track_width"`
	Length                 float64 `json:"length"`
	MaxVelocity            float64 `json:"max_velocity"`
	MaxAcceleration        float64 `json:"max_acceleration"`
	MaxAngularVelocity     float64 `json:"max_angular_velocity"`
	MaxAngularAcceleration float64 `json:"max_angular_acceleration"`
}

// Validate checks that every limit is positive.
func (c RobotConfig) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"wheel_radius", c.WheelRadius},
		{"track_width", c.TrackWidth},
		{"length", c.Length},
		{"max_velocity", c.MaxVelocity},
		{"max_acceleration", c.MaxAcceleration},
		{"max_angular_velocity", c.MaxAngularVelocity},
		{"max_angular_acceleration", c.MaxAngularAcceleration},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return errors.Wrapf(ErrConfiguration, "%s must be positive, got %v", f.name, f.value)
		}
	}
	return nil
}

// PurePursuitConfig holds the controller tuning parameters.
type PurePursuitConfig struct {
	MinLookAheadDistance   float64 `json:"min_look_ahead_distance"`
	MaxLookAheadDistance   float64 `json:"max_look_ahead_distance"`
	AngleVelocityParameter float64 `json:"angle_velocity_parameter"`
	FinalApproachVelocity  float64 `json:"final_approach_velocity"`
	EndConditionDistance   float64 `json:"end_condition_distance"`
}

// Validate checks look-ahead ordering and parameter signs.
func (c PurePursuitConfig) Validate() error {
	if c.MinLookAheadDistance <= 0 {
		return errors.Wrapf(ErrConfiguration, "min_look_ahead_distance must be positive, got %v", c.MinLookAheadDistance)
	}
	if c.MaxLookAheadDistance < c.MinLookAheadDistance {
		return errors.Wrapf(ErrConfiguration,
			"max_look_ahead_distance %v must be >= min_look_ahead_distance %v",
			c.MaxLookAheadDistance, c.MinLookAheadDistance)
	}
	if c.AngleVelocityParameter <= 0 {
		return errors.Wrapf(ErrConfiguration, "angle_velocity_parameter must be positive, got %v", c.AngleVelocityParameter)
	}
	if c.FinalApproachVelocity < 0 {
		return errors.Wrapf(ErrConfiguration, "final_approach_velocity must be >= 0, got %v", c.FinalApproachVelocity)
	}
	if c.EndConditionDistance < 0 {
		return errors.Wrapf(ErrConfiguration, "end_condition_distance must be >= 0, got %v", c.EndConditionDistance)
	}
	return nil
}

// SimulationConfig holds the loop rate and the success threshold.
type SimulationConfig struct {
	ControlFrequency               float64 `json:"control_frequency"`
	AvgAbsCrossTrackErrorThreshold float64 `json:"avg_abs_cross_track_error_threshold"`
}

// Validate checks the loop parameters.
func (c SimulationConfig) Validate() error {
	if c.ControlFrequency <= 0 {
		return errors.Wrapf(ErrConfiguration, "control_frequency must be positive, got %v", c.ControlFrequency)
	}
	if c.AvgAbsCrossTrackErrorThreshold <= 0 {
		return errors.Wrapf(ErrConfiguration,
			"avg_abs_cross_track_error_threshold must be positive, got %v", c.AvgAbsCrossTrackErrorThreshold)
	}
	return nil
}

// LoadRobotConfig reads and validates a robot config JSON file.
func LoadRobotConfig(path string) (RobotConfig, error) {
	var cfg RobotConfig
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, errors.Wrap(err, "load robot config")
	}
	return cfg, cfg.Validate()
}

// LoadPurePursuitConfig reads and validates a controller config JSON file.
func LoadPurePursuitConfig(path string) (PurePursuitConfig, error) {
	var cfg PurePursuitConfig
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, errors.Wrap(err, "load pure pursuit config")
	}
	return cfg, cfg.Validate()
}

// LoadSimulationConfig reads and validates a simulation config JSON file.
func LoadSimulationConfig(path string) (SimulationConfig, error) {
	var cfg SimulationConfig
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, errors.Wrap(err, "load simulation config")
	}
	return cfg, cfg.Validate()
}

type pathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LoadRawPath reads a path file: a JSON array of {x, y} pairs in meters.
func LoadRawPath(path string) ([]r2.Point, error) {
	var raw []pathPoint
	if err := loadJSON(path, &raw); err != nil {
		return nil, errors.Wrap(err, "load path")
	}
	points := make([]r2.Point, 0, len(raw))
	for _, p := range raw {
		points = append(points, r2.Point{X: p.X, Y: p.Y})
	}
	return points, nil
}

func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read file")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "unmarshal")
	}
	return nil
}
