package main

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"pursuit-sim/pursuit"
	"pursuit-sim/utils"
)

// Guard against a configuration that never reaches the end condition.
const maxSimulationSteps = 1_000_000

// driveFrame is the CAN layout used when mirroring wheel commands onto a bus.
var driveFrame = utils.FrameDef{
	ID:   0x210,
	Name: "DRIVE_CMD",
	DLC:  4,
	Signals: []utils.SignalDef{
		{
			Name: "left_wheel_angular_velocity", StartBit: 0, BitLength: 16,
			Signed: true, Factor: 0.001, Min: -32.767, Max: 32.767, Unit: "rad/s",
		},
		{
			Name: "right_wheel_angular_velocity", StartBit: 16, BitLength: 16,
			Signed: true, Factor: 0.001, Min: -32.767, Max: 32.767, Unit: "rad/s",
		},
	},
}

// RunnerConfig selects the input files and optional live output.
type RunnerConfig struct {
	PathFile             string
	RobotConfigFile      string
	PursuitConfigFile    string
	SimulationConfigFile string
	Interface            string // SocketCAN interface; empty disables the live output
	OutputDir            string
}

// Runner owns one simulation: the profiled path, the controller, and the
// sequential control loop that drives the kinematic model.
type Runner struct {
	log        golog.Logger
	name       string
	robot      pursuit.RobotConfig
	pursuitCfg pursuit.PurePursuitConfig
	simCfg     pursuit.SimulationConfig
	path       pursuit.Path
	controller *pursuit.Controller
	initial    pursuit.Pose
	dt         float64
	writer     utils.CANWriter
}

// NewRunner loads and validates all inputs and wires the simulation.
func NewRunner(ctx context.Context, cfg RunnerConfig, log golog.Logger) (*Runner, error) {
	robot, err := pursuit.LoadRobotConfig(cfg.RobotConfigFile)
	if err != nil {
		return nil, err
	}

	pursuitCfg, err := pursuit.LoadPurePursuitConfig(cfg.PursuitConfigFile)
	if err != nil {
		return nil, err
	}

	simCfg, err := pursuit.LoadSimulationConfig(cfg.SimulationConfigFile)
	if err != nil {
		return nil, err
	}

	rawPoints, err := pursuit.LoadRawPath(cfg.PathFile)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(cfg.PathFile), filepath.Ext(cfg.PathFile))

	r, err := newSimulation(name, robot, pursuitCfg, simCfg, rawPoints, log)
	if err != nil {
		return nil, err
	}

	if cfg.Interface != "" {
		writer, err := utils.NewSocketCANWriter(ctx, cfg.Interface)
		if err != nil {
			return nil, errors.Wrapf(err, "open CAN interface %s", cfg.Interface)
		}
		r.writer = writer
		log.Infof("mirroring drive commands onto %s as %s (0x%X)", cfg.Interface, driveFrame.Name, driveFrame.ID)
	}

	return r, nil
}

// newSimulation builds a runner from in-memory inputs: profile the raw path,
// construct the controller, and place the robot at the path start facing
// along the first segment.
func newSimulation(
	name string,
	robot pursuit.RobotConfig,
	pursuitCfg pursuit.PurePursuitConfig,
	simCfg pursuit.SimulationConfig,
	rawPoints []r2.Point,
	log golog.Logger,
) (*Runner, error) {
	path, err := pursuit.ProfilePath(rawPoints, robot, pursuitCfg.AngleVelocityParameter)
	if err != nil {
		return nil, err
	}

	controller, err := pursuit.NewController(pursuitCfg, robot, path, log)
	if err != nil {
		return nil, err
	}

	start := path.Start().Position
	initial := pursuit.Pose{
		Position: start,
		Heading:  headingOfFirstSegment(path),
	}

	return &Runner{
		log:        log,
		name:       name,
		robot:      robot,
		pursuitCfg: pursuitCfg,
		simCfg:     simCfg,
		path:       path,
		controller: controller,
		initial:    initial,
		dt:         1.0 / simCfg.ControlFrequency,
	}, nil
}

func headingOfFirstSegment(path pursuit.Path) float64 {
	a := path.At(0).Position
	b := path.At(1).Position
	d := b.Sub(a)
	return math.Atan2(d.Y, d.X)
}

// Close releases the live output, if any.
func (r *Runner) Close() {
	if r.writer != nil {
		_ = r.writer.Close()
	}
}

// Run executes the control loop to completion: propagate the pose from the
// previous command, ask the controller for the next command, record the tick.
// A final zero-command step brings the recorded trajectory to rest.
func (r *Runner) Run(ctx context.Context) (*SimulationData, error) {
	r.log.Infof(
		"simulating %s: %d waypoints, %.3f m, dt=%.4f s, look-ahead [%.2f, %.2f] m",
		r.name, r.path.Len(), r.path.TotalDistance(), r.dt,
		r.pursuitCfg.MinLookAheadDistance, r.pursuitCfg.MaxLookAheadDistance,
	)

	data := newSimulationData(r.name, r.robot, r.path, r.dt)

	previousPose := r.initial
	previousCommand := pursuit.Command{}
	step := 0

	for !r.controller.PathComplete() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if step >= maxSimulationSteps {
			return nil, errors.Errorf("no completion after %d steps, aborting", maxSimulationSteps)
		}

		stepStart := time.Now()
		pose := pursuit.PropagatePose(r.robot, previousPose, previousCommand, r.dt)
		command := r.controller.Update(pose, r.dt)
		data.StepTimes = append(data.StepTimes, time.Since(stepStart))

		data.States = append(data.States, r.recordState(step, pose, command))

		if r.writer != nil {
			if err := r.transmit(ctx, command); err != nil {
				return nil, err
			}
		}

		previousPose = pose
		previousCommand = command
		step++
	}

	// Stop and record the final state at rest.
	previousCommand = pursuit.Command{}
	finalPose := pursuit.PropagatePose(r.robot, previousPose, previousCommand, r.dt)
	data.States = append(data.States, r.recordState(step, finalPose, previousCommand))

	if r.writer != nil {
		if err := r.transmit(ctx, previousCommand); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func (r *Runner) recordState(step int, pose pursuit.Pose, command pursuit.Command) SimulationState {
	state := SimulationState{
		Time:              float64(step) * r.dt,
		Pose:              pose,
		Command:           command,
		CrossTrackError:   r.controller.CrossTrackError(),
		CheckpointIndex:   r.controller.CheckpointIndex(),
		LookAheadDistance: r.controller.LookAheadDistance(),
		ReferencePoint:    r.controller.ReferencePoint(),
	}
	if target, ok := r.controller.TargetPoint(); ok {
		state.TargetPoint = &target
	}
	return state
}

func (r *Runner) transmit(ctx context.Context, command pursuit.Command) error {
	frame, err := driveFrame.Encode(map[string]float64{
		"left_wheel_angular_velocity":  command.LeftWheelAngularVelocity,
		"right_wheel_angular_velocity": command.RightWheelAngularVelocity,
	})
	if err != nil {
		return errors.Wrap(err, "encode drive frame")
	}
	if err := r.writer.WriteFrame(ctx, frame); err != nil {
		return errors.Wrap(err, "transmit drive frame")
	}
	return nil
}
