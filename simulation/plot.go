package main

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// savePlots renders the static trajectory and cross-track-error graphs under
// dir/plots and returns their file paths.
func savePlots(data *SimulationData, dir string) ([]string, error) {
	plotDir := filepath.Join(dir, "plots")
	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create plot dir")
	}

	trajectoryPath := filepath.Join(plotDir, data.Name+"-trajectory.png")
	if err := saveTrajectoryPlot(data, trajectoryPath); err != nil {
		return nil, err
	}

	errorPath := filepath.Join(plotDir, data.Name+"-cross-track-error.png")
	if err := saveCrossTrackErrorPlot(data, errorPath); err != nil {
		return nil, err
	}

	return []string{trajectoryPath, errorPath}, nil
}

func saveTrajectoryPlot(data *SimulationData, file string) error {
	p := plot.New()
	p.Title.Text = data.Name
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	pathXYs := make(plotter.XYs, data.Path.Len())
	for i := range pathXYs {
		position := data.Path.At(i).Position
		pathXYs[i].X = position.X
		pathXYs[i].Y = position.Y
	}

	pathLine, err := plotter.NewLine(pathXYs)
	if err != nil {
		return errors.Wrap(err, "path line")
	}
	pathLine.Color = color.RGBA{R: 160, G: 160, B: 160, A: 255}

	trajectoryXYs := make(plotter.XYs, len(data.States))
	for i, s := range data.States {
		trajectoryXYs[i].X = s.Pose.Position.X
		trajectoryXYs[i].Y = s.Pose.Position.Y
	}

	trajectoryLine, err := plotter.NewLine(trajectoryXYs)
	if err != nil {
		return errors.Wrap(err, "trajectory line")
	}
	trajectoryLine.Color = color.RGBA{B: 255, A: 255}

	p.Add(plotter.NewGrid(), pathLine, trajectoryLine)
	p.Legend.Add("path", pathLine)
	p.Legend.Add("trajectory", trajectoryLine)

	return errors.Wrap(p.Save(8*vg.Inch, 8*vg.Inch, file), "save trajectory plot")
}

func saveCrossTrackErrorPlot(data *SimulationData, file string) error {
	p := plot.New()
	p.Title.Text = data.Name + " cross track error"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "cross track error (m)"

	xys := make(plotter.XYs, len(data.States))
	for i, s := range data.States {
		xys[i].X = s.Time
		xys[i].Y = s.CrossTrackError
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "error line")
	}
	line.Color = color.RGBA{R: 255, A: 255}

	p.Add(plotter.NewGrid(), line)

	return errors.Wrap(p.Save(8*vg.Inch, 4*vg.Inch, file), "save cross track error plot")
}
