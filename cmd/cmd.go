// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// runCommand runs the diagnostic
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"diagnose", "diag"},
		Usage:   "Run the Spotify API diagnostic",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Artist search query (default from config)",
			},
			&cli.StringFlag{
				Name:  "country",
				Usage: "Market for top tracks, ISO 3166-1 alpha-2 (default from config)",
			},
			&cli.StringFlag{
				Name:  "known-track",
				Usage: "Track ID used by the known track probe (default from config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show debug logs, step timings and errors",
			},
		},
		Action: r.Diagnose,
	}
}

// authCommand handles Spotify authorization and the token cache
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize in the browser and cache the token",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the cached token",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "probe",
						Usage: "Also call the API with the cached token",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete the cached token",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// setupCommand creates the config file and token cache.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage: "Create config.toml and initialize the token cache",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Drop and recreate the token cache tables, removing every cached token",
			},
		},
		Action: r.Setup,
	}
}
