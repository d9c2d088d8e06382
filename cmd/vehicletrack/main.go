// Package main is the vehicletrack command: tracks vehicles over frames or serves tracking over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LdDl/vehicletrack/config"
	"github.com/LdDl/vehicletrack/service"
	"github.com/LdDl/vehicletrack/session"
	"github.com/LdDl/vehicletrack/store"
)

const (
	// Flags.
	flagConfig    = "config"
	flagDebug     = "debug"
	flagBoxes     = "boxes"
	flagFrames    = "frames"
	flagOutput    = "output"
	flagThreshold = "threshold"
	flagMemory    = "memory"
	flagMotion    = "motion"
	flagBoxOrder  = "box-order"
	flagStrict    = "strict"
	flagResetAbs  = "reset-absences"
	flagListen    = "listen"
	flagDatabase  = "db"
)

func main() {
	var logger *zap.SugaredLogger

	app := &cli.App{
		Name:  "vehicletrack",
		Usage: "assign stable identifiers to vehicles detected on video frames",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = newLogger(c.Bool(flagDebug))
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				// Sync fails on console outputs, nothing to do about it
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "track",
				Usage: "track vehicles and print report as JSON",
				Flags: append(trackingFlags(),
					&cli.StringFlag{
						Name:     flagBoxes,
						Usage:    "bounding boxes: path to `JSON` file or JSON string",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagFrames,
						Usage:    "`DIR` with frame images",
						Required: true,
					},
					&cli.StringFlag{
						Name:  flagOutput,
						Usage: "write report to `FILE` instead of stdout",
					},
				),
				Action: func(c *cli.Context) error {
					return runTrack(c, logger)
				},
			},
			{
				Name:  "serve",
				Usage: "serve tracking over HTTP",
				Flags: append(trackingFlags(),
					&cli.StringFlag{
						Name:  flagListen,
						Usage: "listen `ADDR`",
					},
					&cli.StringFlag{
						Name:  flagDatabase,
						Usage: "keep reports in sqlite `FILE`",
					},
				),
				Action: func(c *cli.Context) error {
					return runServe(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func trackingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: flagThreshold, Usage: "maximum feature distance to match a vehicle"},
		&cli.IntFlag{Name: flagMemory, Usage: "frames a vehicle may stay unseen before it is forgotten"},
		&cli.StringFlag{Name: flagMotion, Usage: "motion model: velocity or kalman"},
		&cli.StringFlag{Name: flagBoxOrder, Usage: "frame order of bounding boxes: source or numeric"},
		&cli.BoolFlag{Name: flagStrict, Usage: "fail when number of frames and bounding-box lists differ"},
		&cli.BoolFlag{Name: flagResetAbs, Usage: "count only consecutive absences"},
	}
}

// newLogger builds console logger in the spirit of zap.NewDevelopmentConfig without stacktraces
func newLogger(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "can't build logger")
	}
	return logger.Sugar(), nil
}

// loadConfig reads config file and applies flags that have been set explicitly
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return cfg, err
	}
	if c.IsSet(flagThreshold) {
		cfg.DetectionThreshold = c.Float64(flagThreshold)
	}
	if c.IsSet(flagMemory) {
		cfg.MemoryFramesNumber = c.Int(flagMemory)
	}
	if c.IsSet(flagMotion) {
		cfg.MotionModel = c.String(flagMotion)
	}
	if c.IsSet(flagBoxOrder) {
		cfg.BoxOrder = c.String(flagBoxOrder)
	}
	if c.IsSet(flagStrict) {
		cfg.StrictPairing = c.Bool(flagStrict)
	}
	if c.IsSet(flagResetAbs) {
		cfg.ResetAbsencesOnMatch = c.Bool(flagResetAbs)
	}
	if c.IsSet(flagListen) {
		cfg.Listen = c.String(flagListen)
	}
	if c.IsSet(flagDatabase) {
		cfg.Database = c.String(flagDatabase)
	}
	return cfg, cfg.Validate()
}

// trackExit maps bad input to exit code 2, other failures are returned as is
func trackExit(err error) error {
	var userErr *session.UserError
	if errors.As(err, &userErr) {
		return cli.Exit(userErr.Message, 2)
	}
	if session.IsInputError(err) {
		return cli.Exit(err.Error(), 2)
	}
	return err
}

func runTrack(c *cli.Context, logger *zap.SugaredLogger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	s, err := session.New(cfg, session.ParseBoxSource(c.String(flagBoxes)), session.DirFrameSource{Dir: c.String(flagFrames)}, session.WithLogger(logger))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	report, err := s.Run(ctx)
	if err != nil {
		return trackExit(err)
	}
	data, err := report.MarshalJSON()
	if err != nil {
		return err
	}
	if path := c.String(flagOutput); path != "" {
		return errors.Wrapf(os.WriteFile(path, append(data, '\n'), 0o644), "can't write report to %s", path)
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func runServe(c *cli.Context, logger *zap.SugaredLogger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	var reports service.ReportStore
	if cfg.Database != "" {
		db, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		reports = db
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return service.NewServer(cfg, reports, logger).ListenAndServe(ctx, cfg.Listen)
}
