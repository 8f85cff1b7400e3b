package diagnostics

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotdiag/internal/services"
)

func (r *Runner) authenticate(ctx context.Context, state *State) StepResult {
	user, err := r.client.CurrentUser(ctx)
	if err != nil {
		kind := Classify(err)
		if kind != TransportError {
			kind = AuthenticationError
		}
		return failure(kind, "could not fetch the current user profile", err)
	}
	if user == nil {
		return failure(AuthenticationError, "current user profile was empty", nil)
	}

	state.DisplayName = user.DisplayName
	state.Email = user.Email

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return success(
		fmt.Sprintf("authenticated as %s", name),
		map[string]any{"display_name": user.DisplayName, "email": user.Email},
		fmt.Sprintf("email: %s", valueOr(user.Email, "(not shared)")),
	)
}

func (r *Runner) search(ctx context.Context, state *State) StepResult {
	result, err := r.client.Search(ctx, r.opts.Query, "artist", 1)
	if err != nil {
		return failure(Classify(err), fmt.Sprintf("search for %q failed", r.opts.Query), err)
	}
	if result == nil || result.Artists == nil || len(result.Artists.Items) == 0 {
		return failure(NotFoundError, fmt.Sprintf("no artists found for %q", r.opts.Query), nil)
	}

	artist := result.Artists.Items[0]
	state.ArtistID = artist.ID
	state.ArtistName = artist.Name

	return success(
		fmt.Sprintf("found %s", artist.Name),
		map[string]any{"id": artist.ID, "name": artist.Name},
		fmt.Sprintf("artist id: %s", artist.ID),
	)
}

func (r *Runner) topTracks(ctx context.Context, state *State) StepResult {
	tracks, err := r.client.ArtistTopTracks(ctx, state.ArtistID, r.opts.Country)
	if err != nil {
		return failure(Classify(err), fmt.Sprintf("top tracks for %s failed", state.ArtistName), err)
	}
	if len(tracks) == 0 {
		return failure(NotFoundError, fmt.Sprintf("no top tracks for %s in %s", state.ArtistName, r.opts.Country), nil)
	}

	tracks = tracks[:min(len(tracks), r.opts.TrackLimit)]
	picked := make([]Track, 0, len(tracks))
	details := make([]string, 0, len(tracks))
	for i, t := range tracks {
		picked = append(picked, Track{ID: t.ID, Name: t.Name})
		details = append(details, fmt.Sprintf("%d. %s (%s)", i+1, t.Name, t.ID))
	}
	state.Tracks = picked

	return success(
		fmt.Sprintf("got %d top tracks", len(picked)),
		map[string]any{"tracks": picked},
		details...,
	)
}

// audioFeatures passes when at least one track has features. A partial answer passes with a warning detail.
func (r *Runner) audioFeatures(ctx context.Context, state *State) StepResult {
	if len(state.Tracks) == 0 {
		return failure(NotFoundError, "no tracks to look up", nil)
	}

	ids := make([]string, len(state.Tracks))
	for i, t := range state.Tracks {
		ids[i] = t.ID
	}

	features, err := r.client.AudioFeatures(ctx, ids...)
	if err != nil {
		kind := Classify(err)
		var details []string
		if kind == PermissionError {
			details = append(details, "The API rejected the request. Check that the app still has access to the audio-features endpoint in the developer dashboard.")
		}
		return failure(kind, "audio features request failed", err, details...)
	}
	if len(features) != len(ids) {
		return failure(UnknownError,
			fmt.Sprintf("expected %d audio feature entries, got %d", len(ids), len(features)), nil)
	}

	available := 0
	details := make([]string, 0, len(features)+1)
	for i, f := range features {
		details = append(details, describeFeatures(state.Tracks[i].Name, f))
		if f != nil {
			available++
		}
	}

	ratio := fmt.Sprintf("%d/%d", available, len(ids))
	data := map[string]any{"available": available, "requested": len(ids)}

	if available == 0 {
		return failure(NotFoundError, fmt.Sprintf("%s tracks returned audio features", ratio), nil, details...)
	}
	if available < len(ids) {
		details = append(details, fmt.Sprintf("warning: partial result, %d track(s) without audio features", len(ids)-available))
	}
	return success(fmt.Sprintf("%s tracks returned audio features", ratio), data, details...)
}

// knownTrackProbe checks a fixed track so an artist-specific failure can be told apart from a global one.
func (r *Runner) knownTrackProbe(ctx context.Context, _ *State) StepResult {
	id := r.opts.KnownTrackID

	features, err := r.client.AudioFeatures(ctx, id)
	if err != nil {
		return failure(Classify(err), fmt.Sprintf("audio features for known track %s failed", id), err)
	}
	if len(features) != 1 {
		return failure(UnknownError, fmt.Sprintf("expected 1 audio feature entry, got %d", len(features)), nil)
	}
	if features[0] == nil {
		return failure(NotFoundError, fmt.Sprintf("no audio features for known track %s", id), nil)
	}

	return success(
		fmt.Sprintf("audio features available for known track %s", id),
		map[string]any{"id": id},
		describeFeatures(id, features[0]),
	)
}

func describeFeatures(label string, f *services.AudioFeatures) string {
	if f == nil {
		return fmt.Sprintf("%s: unavailable", label)
	}
	return fmt.Sprintf("%s: danceability=%.2f energy=%.2f tempo=%.1f valence=%.2f",
		label, f.Danceability, f.Energy, f.Tempo, f.Valence)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
