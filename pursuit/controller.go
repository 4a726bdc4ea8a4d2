package pursuit

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"pursuit-sim/utils"
)

// ErrEmptyPath reports a controller constructed without a usable path.
var ErrEmptyPath = errors.New("empty path")

// TargetPoint is the point on the path the controller is steering toward,
// found at the look-ahead radius around the robot.
type TargetPoint struct {
	Position          r2.Point
	DistanceAlongPath float64
	TargetVelocity    float64
}

// ReferencePoint is the path location abeam the robot, used for cross-track
// error reporting.
type ReferencePoint struct {
	Position          r2.Point
	DistanceAlongPath float64
}

// Controller implements adaptive pure pursuit for a differential-drive robot.
//
// It owns all tracking state (checkpoint index, target and reference points,
// end-condition bookkeeping) for one run over one path. Update must be called
// from a single goroutine in strict temporal order: the checkpoint only moves
// forward, and rate limiting relies on the previous tick's realized
// velocities.
type Controller struct {
	minLookAheadDistance  float64
	maxLookAheadDistance  float64
	finalApproachVelocity float64
	endConditionDistance  float64

	maxVelocity            float64
	maxAcceleration        float64
	maxAngularVelocity     float64
	maxAngularAcceleration float64
	trackWidth             float64
	wheelRadius            float64

	path   Path
	logger golog.Logger

	// Reference point state
	referencePointIndex int
	referencePoint      ReferencePoint
	crossTrackError     float64

	// Look-ahead state
	checkpointIndex   int
	lookAheadDistance float64
	targetPoint       *TargetPoint

	// End condition state
	pathComplete              bool
	previousDistanceRemaining float64
}

// NewController builds a controller for one run over the given profiled path.
func NewController(config PurePursuitConfig, robot RobotConfig, path Path, logger golog.Logger) (*Controller, error) {
	if path.Len() < 2 {
		return nil, errors.Wrapf(ErrEmptyPath, "need at least 2 waypoints, got %d", path.Len())
	}

	start := path.Start()
	return &Controller{
		minLookAheadDistance:      config.MinLookAheadDistance,
		maxLookAheadDistance:      config.MaxLookAheadDistance,
		finalApproachVelocity:     config.FinalApproachVelocity,
		endConditionDistance:      config.EndConditionDistance,
		maxVelocity:               robot.MaxVelocity,
		maxAcceleration:           robot.MaxAcceleration,
		maxAngularVelocity:        robot.MaxAngularVelocity,
		maxAngularAcceleration:    robot.MaxAngularAcceleration,
		trackWidth:                robot.TrackWidth,
		wheelRadius:               robot.WheelRadius,
		path:                      path,
		logger:                    logger,
		referencePoint:            ReferencePoint{Position: start.Position, DistanceAlongPath: start.DistanceAlongPath},
		lookAheadDistance:         config.MinLookAheadDistance,
		previousDistanceRemaining: math.Inf(1),
	}, nil
}

// CheckpointIndex is the index of the last waypoint confirmed behind the
// robot. It never decreases.
func (c *Controller) CheckpointIndex() int {
	return c.checkpointIndex
}

// LookAheadDistance is the radius used on the most recent tick.
func (c *Controller) LookAheadDistance() float64 {
	return c.lookAheadDistance
}

// TargetPoint returns the most recent target point, if one has been chosen.
func (c *Controller) TargetPoint() (TargetPoint, bool) {
	if c.targetPoint == nil {
		return TargetPoint{}, false
	}
	return *c.targetPoint, true
}

// ReferencePoint is the most recent path point abeam the robot.
func (c *Controller) ReferencePoint() ReferencePoint {
	return c.referencePoint
}

// CrossTrackError is the signed orthogonal distance from the robot to the
// path at the reference point, positive when the robot is left of the path.
func (c *Controller) CrossTrackError() float64 {
	return c.crossTrackError
}

// PathComplete reports whether the end condition has been reached. Terminal:
// once true, Update returns zero commands.
func (c *Controller) PathComplete() bool {
	return c.pathComplete
}

// EndConditionDistance is the configured completion radius around the goal.
func (c *Controller) EndConditionDistance() float64 {
	return c.endConditionDistance
}

// Update runs one control tick: choose a look-ahead distance from the current
// velocity, advance the checkpoint and target point along the path, update the
// reference point and cross-track error, handle end conditions near the goal,
// and synthesize a rate-limited wheel command from the signed curvature to the
// target point.
func (c *Controller) Update(pose Pose, dt float64) Command {
	if c.pathComplete {
		return Command{}
	}

	lookAheadDistance := c.calculateLookAheadDistance(pose)

	checkpointIndex, targetPoint := c.nextTargetPoint(pose, lookAheadDistance)

	referencePointIndex, referencePoint := c.nextReferencePoint(pose, checkpointIndex)
	segmentStart := c.path.At(referencePointIndex)
	segmentEnd := c.path.At(referencePointIndex + 1)
	crossTrackError := segmentOrientation(pose.Position, segmentStart.Position, segmentEnd.Position) *
		distanceBetween(pose.Position, referencePoint.Position)

	targetVelocity := targetPoint.TargetVelocity

	if checkpointIndex >= c.path.endIndex()-1 {
		var distanceRemaining float64
		targetVelocity, c.pathComplete, distanceRemaining = c.handleEndConditions(pose, targetPoint, dt)
		c.previousDistanceRemaining = distanceRemaining

		if c.pathComplete {
			c.logger.Debugf("path complete at (%.3f, %.3f), distance remaining %.3f m",
				pose.Position.X, pose.Position.Y, distanceRemaining)
		}
	}

	signedCurvature := c.signedCurvature(pose, targetPoint.Position)

	command := c.createCommand(pose, signedCurvature, targetVelocity, dt)

	c.referencePointIndex = referencePointIndex
	c.referencePoint = referencePoint
	c.crossTrackError = crossTrackError
	c.checkpointIndex = checkpointIndex
	c.lookAheadDistance = lookAheadDistance
	c.targetPoint = &targetPoint

	return command
}

// calculateLookAheadDistance interpolates between the configured bounds based
// on the current velocity. Near the end of the path the profiled velocity of
// the penultimate waypoint keeps the radius from collapsing mid-deceleration.
func (c *Controller) calculateLookAheadDistance(pose Pose) float64 {
	velocityTerm := pose.Velocity
	if c.checkpointIndex >= c.path.endIndex()-1 {
		velocityTerm = math.Max(pose.Velocity, c.path.At(c.path.endIndex()-1).TargetVelocity)
	}

	velocityPercentage := velocityTerm / c.maxVelocity
	lookAheadDistance := c.minLookAheadDistance + velocityPercentage*(c.maxLookAheadDistance-c.minLookAheadDistance)

	return utils.Constrain(lookAheadDistance, c.minLookAheadDistance, c.maxLookAheadDistance)
}

// nextTargetPoint scans forward from the checkpoint for the intersection of
// the look-ahead circle with the path, never moving the target backwards along
// the path. When the path ends inside the look-ahead radius, the final
// waypoint becomes the target.
func (c *Controller) nextTargetPoint(pose Pose, lookAheadDistance float64) (int, TargetPoint) {
	end := c.path.endIndex()

	// Once the end is the checkpoint, it stays the target.
	if c.checkpointIndex == end {
		return end, waypointTarget(c.path.End())
	}

	currentTargetDistance := 0.0
	if c.targetPoint != nil {
		currentTargetDistance = c.targetPoint.DistanceAlongPath
	}

	// Check the current segment first: take the intersection that moves the
	// target further along the path than it is now.
	checkpoint := c.path.At(c.checkpointIndex)
	nextWaypoint := c.path.At(c.checkpointIndex + 1)

	for _, intersection := range segmentCircleIntersections(
		pose.Position, lookAheadDistance, checkpoint.Position, nextWaypoint.Position,
	) {
		intersectionDistance := checkpoint.DistanceAlongPath + distanceBetween(checkpoint.Position, intersection)
		if intersectionDistance > currentTargetDistance {
			return c.intersectionTarget(c.checkpointIndex, intersection, checkpoint, nextWaypoint)
		}
	}

	// No usable intersection in the current segment: find the first segment
	// whose end point is beyond the look-ahead radius. Either an intersection
	// further along exists on it, or an intersection would move the target
	// backwards (keep the current target), or the segment start is the target.
	for index := c.checkpointIndex + 1; index <= end; index++ {
		waypoint := c.path.At(index)
		previousWaypoint := c.path.At(index - 1)

		if distanceBetween(pose.Position, waypoint.Position) <= lookAheadDistance {
			continue
		}

		intersections := segmentCircleIntersections(
			pose.Position, lookAheadDistance, previousWaypoint.Position, waypoint.Position,
		)

		if len(intersections) > 0 {
			for _, intersection := range intersections {
				intersectionDistance := previousWaypoint.DistanceAlongPath +
					distanceBetween(previousWaypoint.Position, intersection)
				if intersectionDistance > currentTargetDistance {
					return c.intersectionTarget(index-1, intersection, previousWaypoint, waypoint)
				}
			}

			// Only backward intersections exist, so keep the current target.
			if c.targetPoint != nil {
				return c.checkpointIndex, *c.targetPoint
			}
			return index - 1, waypointTarget(waypoint)
		}

		if c.checkpointIndex == index-1 && c.targetPoint != nil {
			// The look-ahead radius shrank out of the target segment right
			// after crossing a checkpoint (angular velocity limiting). The
			// previous target is still valid, so hold it.
			return c.checkpointIndex, *c.targetPoint
		}

		// Beyond the target segment with no intersections: the segment end
		// point is the best forward target.
		return index - 1, waypointTarget(waypoint)
	}

	// Every remaining waypoint sits inside the look-ahead radius.
	return end, waypointTarget(c.path.End())
}

func waypointTarget(w Waypoint) TargetPoint {
	return TargetPoint{
		Position:          w.Position,
		DistanceAlongPath: w.DistanceAlongPath,
		TargetVelocity:    w.TargetVelocity,
	}
}

// intersectionTarget interpolates the target velocity at an intersection
// within a segment. The first segment uses v = x / (a·x + (1 - a)) so the
// robot does not crawl away from a standing start.
func (c *Controller) intersectionTarget(checkpointIndex int, intersection r2.Point, w1, w2 Waypoint) (int, TargetPoint) {
	distanceAlongPath := w1.DistanceAlongPath + distanceBetween(w1.Position, intersection)
	proportionOfSegment := distanceBetween(w1.Position, intersection) / (w2.DistanceAlongPath - w1.DistanceAlongPath)

	velocityScalar := proportionOfSegment
	if checkpointIndex == 0 {
		const a = 0.9
		velocityScalar = proportionOfSegment / (a*proportionOfSegment + (1.0 - a))
	}

	return checkpointIndex, TargetPoint{
		Position:          intersection,
		DistanceAlongPath: distanceAlongPath,
		TargetVelocity:    w1.TargetVelocity + velocityScalar*(w2.TargetVelocity-w1.TargetVelocity),
	}
}

// nextReferencePoint projects the robot onto the segments between the current
// reference point and the checkpoint, scoring candidates by proximity and
// path progress so overlapping path sections do not capture the reference.
func (c *Controller) nextReferencePoint(pose Pose, checkpointIndex int) (int, ReferencePoint) {
	bestIndex := -1
	var bestPoint ReferencePoint
	bestScore := math.Inf(1)

	maxIndex := checkpointIndex
	if limit := c.path.endIndex() - 1; maxIndex > limit {
		maxIndex = limit
	}

	for index := c.referencePointIndex; index <= maxIndex; index++ {
		segmentStart := c.path.At(index)
		segmentEnd := c.path.At(index + 1)

		orthogonalPoint, ok := orthogonalPointOnSegment(pose.Position, segmentStart.Position, segmentEnd.Position)
		if !ok {
			continue
		}

		distanceAlongPath := segmentStart.DistanceAlongPath + distanceBetween(segmentStart.Position, orthogonalPoint)
		if distanceAlongPath <= c.referencePoint.DistanceAlongPath {
			continue
		}

		poseDistance := distanceBetween(pose.Position, orthogonalPoint)
		score := 0.75*poseDistance + 0.6*distanceAlongPath/c.path.TotalDistance()

		if score < bestScore {
			bestScore = score
			bestIndex = index
			bestPoint = ReferencePoint{Position: orthogonalPoint, DistanceAlongPath: distanceAlongPath}
		}
	}

	if bestIndex < 0 {
		return c.referencePointIndex, c.referencePoint
	}
	return bestIndex, bestPoint
}

// handleEndConditions governs the final approach. Completion triggers when the
// robot is within endConditionDistance of the goal, or when the target is the
// goal itself and the distance remaining starts growing (the robot has driven
// past it). Otherwise the target velocity ramps down along v' = v - v²/(2d)·dt
// and is floored at finalApproachVelocity for a controlled final crawl.
func (c *Controller) handleEndConditions(pose Pose, targetPoint TargetPoint, dt float64) (float64, bool, float64) {
	endPoint := c.path.End()
	distanceRemaining := distanceBetween(pose.Position, endPoint.Position)

	if distanceRemaining < c.endConditionDistance {
		return 0.0, true, distanceRemaining
	}

	if arePointsEqual(targetPoint.Position, endPoint.Position) && distanceRemaining > c.previousDistanceRemaining {
		return 0.0, true, distanceRemaining
	}

	finalDeceleration := -pose.Velocity * pose.Velocity / (2.0 * distanceRemaining)
	targetVelocity := math.Max(pose.Velocity+finalDeceleration*dt, c.finalApproachVelocity)

	return targetVelocity, false, distanceRemaining
}

// signedCurvature is κ = 2·y' / L² where y' is the robot-frame lateral offset
// of the target point (positive left) and L the straight-line distance to it.
func (c *Controller) signedCurvature(pose Pose, target r2.Point) float64 {
	distanceToTarget := distanceBetween(pose.Position, target)
	if utils.IsFloatEqual(distanceToTarget, 0.0) {
		return 0.0
	}

	lateral := lateralOffset(target, pose.Position, pose.Heading)
	return (2.0 * lateral) / (distanceToTarget * distanceToTarget)
}

func (c *Controller) limitVelocity(pose Pose, targetVelocity float64, dt float64) float64 {
	limitedVelocity := utils.Constrain(targetVelocity, 0.0, c.maxVelocity)

	maxVelocityDelta := c.maxAcceleration * dt
	velocityDelta := utils.Constrain(limitedVelocity-pose.Velocity, -maxVelocityDelta, maxVelocityDelta)

	return pose.Velocity + velocityDelta
}

func (c *Controller) limitAngularVelocity(pose Pose, targetAngularVelocity float64, dt float64) float64 {
	limitedAngularVelocity := utils.Constrain(targetAngularVelocity, -c.maxAngularVelocity, c.maxAngularVelocity)

	maxAngularVelocityDelta := c.maxAngularAcceleration * dt
	angularVelocityDelta := utils.Constrain(
		limitedAngularVelocity-pose.AngularVelocity, -maxAngularVelocityDelta, maxAngularVelocityDelta,
	)

	return pose.AngularVelocity + angularVelocityDelta
}

// createCommand turns curvature and target velocity into wheel angular
// velocities: cap the velocity so the implied angular velocity stays feasible,
// rate-limit both against the previous tick, then apply differential-drive
// inverse kinematics.
func (c *Controller) createCommand(pose Pose, signedCurvature, targetVelocity float64, dt float64) Command {
	if c.pathComplete {
		return Command{}
	}

	curvatureLimitedVelocity := c.maxVelocity
	if !utils.IsFloatEqual(signedCurvature, 0.0) {
		curvatureLimitedVelocity = c.maxAngularVelocity / math.Abs(signedCurvature)
	}

	limitedVelocity := c.limitVelocity(pose, math.Min(targetVelocity, curvatureLimitedVelocity), dt)

	// Positive curvature turns left: the right wheel runs faster.
	limitedRightWheelVelocity := 0.5 * limitedVelocity * (2.0 + c.trackWidth*signedCurvature)
	limitedLeftWheelVelocity := 0.5 * limitedVelocity * (2.0 - c.trackWidth*signedCurvature)

	targetAngularVelocity := (limitedRightWheelVelocity - limitedLeftWheelVelocity) / c.trackWidth
	limitedAngularVelocity := c.limitAngularVelocity(pose, targetAngularVelocity, dt)

	rightWheelVelocity := limitedVelocity + 0.5*limitedAngularVelocity*c.trackWidth
	leftWheelVelocity := limitedVelocity - 0.5*limitedAngularVelocity*c.trackWidth

	return Command{
		LeftWheelAngularVelocity:  leftWheelVelocity / c.wheelRadius,
		RightWheelAngularVelocity: rightWheelVelocity / c.wheelRadius,
	}
}
