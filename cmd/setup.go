package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotdiag/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then creates the token cache and runs migrations.
// With --reset the cache tables are rolled back and recreated.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config file", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("✓ Created %s", configPath)))
	}

	config, err := r.loadConfig(configPath)
	if err != nil {
		return err
	}

	r.logger.Info("initializing token cache", "path", config.Cache.Path)
	_, db, err := r.openCache(config)
	if err != nil {
		return err
	}
	if cmd.Bool("reset") {
		r.logger.Warn("resetting token cache", "path", config.Cache.Path)
		if err := shared.ResetDatabase(db); err != nil {
			r.closeDB(db)
			return fmt.Errorf("failed to reset token cache: %w", err)
		}
		r.writePlain("%s\n", r.palette.OK("✓ Token cache reset"))
	}
	r.closeDB(db)
	r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("✓ Token cache ready at %s", config.Cache.Path)))

	if err := config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Create an app at https://developer.spotify.com/dashboard\n")
		r.writePlain("2. Add %s to its Redirect URIs\n", config.Credentials.Spotify.RedirectURI)
		r.writePlain("3. Put client_id and client_secret in %s (or export %s and %s)\n",
			configPath, shared.EnvClientID, shared.EnvClientSecret)
		return r.writePlain("4. Run 'spotdiag run'\n")
	}

	return r.writePlainln("Credentials found. Run 'spotdiag run' to start the diagnostic.")
}
