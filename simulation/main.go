package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var (
		pathFile  = flag.String("path", "paths/sample-path.json", "Path JSON file to track")
		robotFile = flag.String("robot-config", "config/robot.json", "Robot config JSON file")
		cfgFile   = flag.String("pursuit-config", "config/pure_pursuit.json", "Pure pursuit config JSON file")
		simFile   = flag.String("simulation-config", "config/simulation.json", "Simulation config JSON file")
		iface     = flag.String("iface", "", "SocketCAN interface to mirror drive commands onto (optional)")
		outputDir = flag.String("output", "output", "Directory for result and plot artifacts")
		graphs    = flag.Bool("graphs", false, "Render trajectory and cross-track-error plots")
		logLevel  = flag.String("log", "info", "debug|info|warn|error")
	)
	flag.Parse()

	log, err := newLogger(*logLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot build logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := RunnerConfig{
		PathFile:             *pathFile,
		RobotConfigFile:      *robotFile,
		PursuitConfigFile:    *cfgFile,
		SimulationConfigFile: *simFile,
		Interface:            *iface,
		OutputDir:            *outputDir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer runner.Close()

	data, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	threshold := runner.simCfg.AvgAbsCrossTrackErrorThreshold
	data.LogResults(log, threshold)

	resultPath, err := data.WriteResults(cfg.OutputDir, threshold)
	if err != nil {
		log.Fatalf("write results failed: %v", err)
	}
	log.Infof("results saved to %s", resultPath)

	if *graphs {
		plotPaths, err := savePlots(data, cfg.OutputDir)
		if err != nil {
			log.Fatalf("plotting failed: %v", err)
		}
		for _, p := range plotPaths {
			log.Infof("plot saved to %s", p)
		}
	}
}

func newLogger(level string) (golog.Logger, error) {
	var l zapcore.Level
	if err := l.Set(level); err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(l)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
