package main

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiag/internal/diagnostics"
	"github.com/desertthunder/spotdiag/internal/services"
	"github.com/desertthunder/spotdiag/internal/shared"
	"github.com/urfave/cli/v3"
)

// Diagnose runs the diagnostic steps against Spotify, printing each step as it finishes and a summary at the end.
//
// Step failures are part of the report, not command errors: the command only fails when output cannot be written
// or the config file is unreadable.
func (r *Runner) Diagnose(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	opts := diagnostics.Options{
		Query:        firstNonEmpty(cmd.String("query"), config.Diagnostics.Query),
		Country:      firstNonEmpty(cmd.String("country"), config.Diagnostics.Country),
		KnownTrackID: firstNonEmpty(cmd.String("known-track"), config.Diagnostics.KnownTrackID),
		TrackLimit:   config.Diagnostics.TrackLimit,
		RedirectURI:  config.Credentials.Spotify.RedirectURI,
		Logger:       r.logger,
	}

	client, cleanup := r.diagnosticClient(config)
	defer cleanup()

	runner := diagnostics.NewRunner(client, opts)
	if err := r.writePlain("%s\n", r.palette.Header(runner.Options().Query, runner.Options().Country)); err != nil {
		return err
	}

	progress := make(chan diagnostics.ProgressUpdate, runner.UpdateCapacity())
	done := make(chan error, 1)
	go func() {
		var werr error
		for update := range progress {
			if err := r.writePlain("%s", r.palette.Update(update, cmd.Bool("verbose"))); err != nil && werr == nil {
				werr = err
			}
		}
		done <- werr
	}()

	report := runner.Run(ctx, progress)
	close(progress)
	if err := <-done; err != nil {
		return err
	}

	r.logger.Debug("diagnostic finished",
		"run", report.ID,
		"passed", report.Passed(),
		"truncated", report.Truncated(),
		"duration", report.Duration(),
	)

	return r.writePlain("\n%s", r.palette.Summary(report))
}

// diagnosticClient returns the injected client or a Spotify client backed by the token cache.
//
// Configuration problems yield a client whose calls all fail, so they surface as an Authenticate failure.
func (r *Runner) diagnosticClient(config *shared.Config) (diagnostics.Client, func()) {
	if r.client != nil {
		return r.client, func() {}
	}

	if err := config.Validate(); err != nil {
		r.logger.Warn("spotify credentials are not configured", "error", err)
		return unavailableClient{err: err}, func() {}
	}

	var store services.TokenStore
	adapter, db, err := r.openCache(config)
	if err != nil {
		r.logger.Warn("continuing without token cache", "error", err)
	} else {
		store = adapter
	}

	srv, err := r.spotifyService(config, store, true)
	if err != nil {
		r.closeDB(db)
		return unavailableClient{err: err}, func() {}
	}
	return srv, func() { r.closeDB(db) }
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
