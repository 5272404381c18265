// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the search history database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write an example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the file to create (default: --config)",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// searchCommand handles peak list searches and their history.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "search",
		Aliases: []string{"s"},
		Usage:   "MS/MS identification searches",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Export a peak list, submit it to Mascot and annotate rows with identifications",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "peaklist",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Monitor progress in the interactive terminal UI",
					},
					&cli.StringFlag{
						Name:  "serve",
						Usage: "Expose GET /status and POST /cancel on this address (e.g. :3000)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write identifications per row to a .csv, .json or .md file",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the Mascot result page in the browser when finished",
					},
					&cli.StringFlag{
						Name:  "tempdir",
						Usage: "Directory for the temporary MGF export (default: system temp dir)",
					},
					&cli.Float64Flag{
						Name:  "noise",
						Usage: "Noise level for centroiding profile spectra",
					},
					&cli.BoolFlag{
						Name:  "no-history",
						Usage: "Do not record the search in the history database",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the final task state as JSON",
					},
				},
				Action: r.SearchRun,
			},
			{
				Name:  "export",
				Usage: "Write the MGF that would be submitted, without contacting the server",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "peaklist",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
					&cli.Float64Flag{
						Name:  "noise",
						Usage: "Noise level for centroiding profile spectra",
					},
				},
				Action: r.SearchExport,
			},
			{
				Name:  "history",
				Usage: "List recorded searches",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show searches with this status (FINISHED, ERROR, CANCELED, ...)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of searches to list",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
					&cli.StringFlag{
						Name:  "serve",
						Usage: "Serve the history as HTML pages on this address instead (e.g. :3000)",
					},
				},
				Action: r.SearchHistory,
			},
			{
				Name:  "show",
				Usage: "Show one recorded search and its identifications",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the Mascot result page in the browser",
					},
				},
				Action: r.SearchShow,
			},
		},
	}
}
