// Command pathgen writes path JSON files for the simulator: a boustrophedon
// coverage path over a rectangular field, or seeded random-walk paths.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
)

const (
	stripeWidth      = 0.5 // m between coverage stripes
	waypointDistance = 2.0 // m between coverage waypoints along a stripe

	randomSeed       = 1
	randomPathPoints = 16
	minSegmentLength = 0.3 // m
	maxSegmentLength = 2.0 // m
)

var maxAngleDelta = 108.0 * math.Pi / 180.0

func main() {
	var (
		kind      = flag.String("kind", "coverage", "coverage|random")
		maxX      = flag.Float64("x", 10, "Coverage field width (m)")
		maxY      = flag.Float64("y", 10, "Coverage field height (m)")
		numPaths  = flag.Int("n", 1, "Number of random paths")
		outputDir = flag.String("o", "paths", "Output directory")
	)
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	var err error
	switch *kind {
	case "coverage":
		err = generateCoveragePath(*maxX, *maxY, *outputDir)
	case "random":
		err = generateRandomPaths(*numPaths, *outputDir)
	default:
		err = fmt.Errorf("unknown kind %q", *kind)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func generateCoveragePath(maxX, maxY float64, outputDir string) error {
	x := 0.0
	y := 0.0

	points := []r2.Point{{X: x, Y: y}}
	directionUp := true

	for {
		if directionUp {
			for y < maxY {
				y += waypointDistance
				points = append(points, r2.Point{X: x, Y: y})
			}
		} else {
			for y > 0 {
				y -= waypointDistance
				points = append(points, r2.Point{X: x, Y: y})
			}
		}

		x += stripeWidth
		if x >= maxX {
			break
		}

		points = append(points, r2.Point{X: x, Y: y})
		directionUp = !directionUp
	}

	name := fmt.Sprintf("coverage-path-%.0fx%.0f", maxX, maxY)
	return writePath(points, filepath.Join(outputDir, name+".json"))
}

func generateRandomPaths(numPaths int, outputDir string) error {
	rng := rand.New(rand.NewSource(randomSeed))

	for pathNum := 1; pathNum <= numPaths; pathNum++ {
		points := []r2.Point{{}}

		for i := 1; i < randomPathPoints; i++ {
			var theta float64
			if i < 2 {
				theta = randomInRange(rng, 0.0, 2.0*math.Pi)
			} else {
				previous := points[i-1].Sub(points[i-2])
				theta = math.Atan2(previous.Y, previous.X) + randomInRange(rng, -maxAngleDelta, maxAngleDelta)
			}

			radius := randomInRange(rng, minSegmentLength, maxSegmentLength)
			last := points[i-1]
			points = append(points, r2.Point{
				X: last.X + radius*math.Cos(theta),
				Y: last.Y + radius*math.Sin(theta),
			})
		}

		name := fmt.Sprintf("random-path-%d", pathNum)
		if err := writePath(points, filepath.Join(outputDir, name+".json")); err != nil {
			return err
		}
	}
	return nil
}

func randomInRange(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

type pathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func writePath(points []r2.Point, file string) error {
	out := make([]pathPoint, len(points))
	for i, p := range points {
		out[i] = pathPoint{X: p.X, Y: p.Y}
	}

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0o644)
}
