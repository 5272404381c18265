package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mzsearch/internal/shared"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer func() {
		if remaining := shared.RunExitCleanup(); len(remaining) > 0 {
			shared.NewLogger(nil).Warn("temporary files left behind", "paths", remaining)
		}
	}()

	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			return 0
		case errors.Is(err, shared.ErrCanceled):
			logger.Warn("search canceled")
			return 130
		default:
			logger.Errorf("application error: %v", err)
			return 1
		}
	}
	return 0
}

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "mzsearch",
		Usage:   "Submit MS/MS peak lists to a Mascot server and annotate rows with peptide identifications",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}
