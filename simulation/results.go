package main

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pursuit-sim/pursuit"
)

// SimulationState is one recorded tick of the run.
type SimulationState struct {
	Time              float64
	Pose              pursuit.Pose
	Command           pursuit.Command
	CrossTrackError   float64
	CheckpointIndex   int
	LookAheadDistance float64
	TargetPoint       *pursuit.TargetPoint
	ReferencePoint    pursuit.ReferencePoint
}

// SimulationData aggregates a completed run for reporting.
type SimulationData struct {
	RunID     string
	Name      string
	Robot     pursuit.RobotConfig
	Path      pursuit.Path
	Dt        float64
	States    []SimulationState
	StepTimes []time.Duration
}

func newSimulationData(name string, robot pursuit.RobotConfig, path pursuit.Path, dt float64) *SimulationData {
	return &SimulationData{
		RunID: uuid.New().String(),
		Name:  name,
		Robot: robot,
		Path:  path,
		Dt:    dt,
	}
}

// PathLength is the arc length of the tracked path.
func (d *SimulationData) PathLength() float64 {
	return d.Path.TotalDistance()
}

// AverageWaypointAngle is the mean absolute turning angle, in degrees.
func (d *SimulationData) AverageWaypointAngle() float64 {
	angles := make([]float64, d.Path.Len())
	for i := range angles {
		angles[i] = math.Abs(d.Path.At(i).Angle) * 180.0 / math.Pi
	}
	return stat.Mean(angles, nil)
}

// Runtime is the simulated duration of the run.
func (d *SimulationData) Runtime() float64 {
	return float64(len(d.States)) * d.Dt
}

// AverageStepCalculationTime is the mean wall-clock cost of one tick.
func (d *SimulationData) AverageStepCalculationTime() time.Duration {
	if len(d.StepTimes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, t := range d.StepTimes {
		sum += t
	}
	return sum / time.Duration(len(d.StepTimes))
}

// CrossTrackErrors returns the signed per-tick cross-track error series.
func (d *SimulationData) CrossTrackErrors() []float64 {
	out := make([]float64, len(d.States))
	for i, s := range d.States {
		out[i] = s.CrossTrackError
	}
	return out
}

// AverageAbsoluteCrossTrackError is the tracking quality metric compared
// against the configured threshold.
func (d *SimulationData) AverageAbsoluteCrossTrackError() float64 {
	errs := d.CrossTrackErrors()
	for i := range errs {
		errs[i] = math.Abs(errs[i])
	}
	return stat.Mean(errs, nil)
}

// AverageVelocity is the mean realized linear velocity.
func (d *SimulationData) AverageVelocity() float64 {
	velocities := make([]float64, len(d.States))
	for i, s := range d.States {
		velocities[i] = s.Pose.Velocity
	}
	return stat.Mean(velocities, nil)
}

// MaxAngularSpeed is the largest realized |angular velocity|.
func (d *SimulationData) MaxAngularSpeed() float64 {
	speeds := make([]float64, len(d.States))
	for i, s := range d.States {
		speeds[i] = math.Abs(s.Pose.AngularVelocity)
	}
	return floats.Max(speeds)
}

// EndPointDistance is the final distance between robot and goal.
func (d *SimulationData) EndPointDistance() float64 {
	final := d.States[len(d.States)-1].Pose.Position
	goal := d.Path.End().Position
	return final.Sub(goal).Norm()
}

// Succeeded labels the run by the average absolute cross-track error.
func (d *SimulationData) Succeeded(avgAbsCrossTrackErrorThreshold float64) bool {
	return d.AverageAbsoluteCrossTrackError() <= avgAbsCrossTrackErrorThreshold
}

// LogResults writes the run summary through the logger.
func (d *SimulationData) LogResults(log golog.Logger, avgAbsCrossTrackErrorThreshold float64) {
	log.Infof("run %s (%s)", d.RunID, d.Name)
	log.Infof("path length: %.3f m, average waypoint angle: %.1f deg", d.PathLength(), d.AverageWaypointAngle())
	log.Infof("steps: %d, runtime: %.3f s, avg step calculation time: %s",
		len(d.States), d.Runtime(), d.AverageStepCalculationTime())
	log.Infof("average velocity: %.3f m/s, max angular speed: %.3f rad/s (limit %.3f)",
		d.AverageVelocity(), d.MaxAngularSpeed(), d.Robot.MaxAngularVelocity)
	log.Infof("ending distance: %.3f m", d.EndPointDistance())

	avgErr := d.AverageAbsoluteCrossTrackError()
	if d.Succeeded(avgAbsCrossTrackErrorThreshold) {
		log.Infof("average absolute cross track error: %.3f m (threshold %.3f) - success",
			avgErr, avgAbsCrossTrackErrorThreshold)
	} else {
		log.Warnf("average absolute cross track error: %.3f m (threshold %.3f) - failure",
			avgErr, avgAbsCrossTrackErrorThreshold)
	}
}

type resultFile struct {
	RunID                           string    `json:"run_id"`
	Name                            string    `json:"name"`
	Steps                           int       `json:"steps"`
	RuntimeS                        float64   `json:"runtime_s"`
	PathLengthM                     float64   `json:"path_length_m"`
	AverageAbsoluteCrossTrackErrorM float64   `json:"average_absolute_cross_track_error_m"`
	AverageVelocityMPS              float64   `json:"average_velocity_mps"`
	MaxAngularSpeedRPS              float64   `json:"max_angular_speed_rps"`
	EndingDistanceM                 float64   `json:"ending_distance_m"`
	Succeeded                       bool      `json:"succeeded"`
	CrossTrackErrors                []float64 `json:"cross_track_errors"`
}

// WriteResults stores the run artifact under dir/results and returns its path.
func (d *SimulationData) WriteResults(dir string, avgAbsCrossTrackErrorThreshold float64) (string, error) {
	resultDir := filepath.Join(dir, "results")
	if err := os.MkdirAll(resultDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create result dir")
	}

	out := resultFile{
		RunID:                           d.RunID,
		Name:                            d.Name,
		Steps:                           len(d.States),
		RuntimeS:                        d.Runtime(),
		PathLengthM:                     d.PathLength(),
		AverageAbsoluteCrossTrackErrorM: d.AverageAbsoluteCrossTrackError(),
		AverageVelocityMPS:              d.AverageVelocity(),
		MaxAngularSpeedRPS:              d.MaxAngularSpeed(),
		EndingDistanceM:                 d.EndPointDistance(),
		Succeeded:                       d.Succeeded(avgAbsCrossTrackErrorThreshold),
		CrossTrackErrors:                d.CrossTrackErrors(),
	}

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return "", errors.Wrap(err, "marshal results")
	}

	resultPath := filepath.Join(resultDir, d.Name+".json")
	if err := os.WriteFile(resultPath, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write results")
	}
	return resultPath, nil
}
