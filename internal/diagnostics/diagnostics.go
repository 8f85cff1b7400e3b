package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiag/internal/services"
	"github.com/desertthunder/spotdiag/internal/shared"
)

const (
	DefaultQuery        = "artist:Ski Mask the Slump God"
	DefaultCountry      = "US"
	DefaultKnownTrackID = "4iV5W9uYEdYUVa79Axb7Rh"
	DefaultTrackLimit   = 3
	dashboardURL        = "https://developer.spotify.com/dashboard"
)

// ErrStepPanicked marks a step whose action panicked.
var ErrStepPanicked = errors.New("step panicked")

// Client is the slice of the Spotify Web API the runner probes.
type Client interface {
	CurrentUser(ctx context.Context) (*services.SpotifyUser, error)
	Search(ctx context.Context, query, searchType string, limit int) (*services.SearchResult, error)
	ArtistTopTracks(ctx context.Context, artistID, country string) ([]services.SpotifyTrack, error)
	AudioFeatures(ctx context.Context, ids ...string) ([]*services.AudioFeatures, error)
}

// StepName identifies a diagnostic step.
type StepName string

const (
	Authenticate    StepName = "Authenticate"
	Search          StepName = "Search"
	TopTracks       StepName = "TopTracks"
	AudioFeatures   StepName = "AudioFeatures"
	KnownTrackProbe StepName = "KnownTrackProbe"
)

// Status is the lifecycle state of a single step.
type Status int

const (
	Pending Status = iota
	Running
	Success
	Failure
	Skipped
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Skipped:
		return "skipped"
	default:
		return ""
	}
}

// Step is one named check. Required steps truncate the run when they fail.
type Step struct {
	Name     StepName
	Required bool
	Action   func(ctx context.Context, state *State) StepResult
}

// StepResult is the outcome of an executed step.
type StepResult struct {
	Name     StepName
	Status   Status
	Kind     ErrorKind
	Message  string
	Details  []string       // Extra lines rendered under the status line
	Err      error          // Underlying collaborator error, if any
	Data     map[string]any // Values extracted for display and later steps
	Duration time.Duration
}

// Track is the {id, name} pair carried from TopTracks into AudioFeatures.
type Track struct {
	ID   string
	Name string
}

// State holds values published by successful steps for the steps after them.
type State struct {
	DisplayName string
	Email       string
	ArtistID    string
	ArtistName  string
	Tracks      []Track
}

// Options configure the fixed inputs of a run. Zero values fall back to the Default constants.
type Options struct {
	Query        string
	Country      string
	KnownTrackID string
	TrackLimit   int
	RedirectURI  string // Echoed in authentication remediation
	Logger       *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Query == "" {
		o.Query = DefaultQuery
	}
	if o.Country == "" {
		o.Country = DefaultCountry
	}
	if o.KnownTrackID == "" {
		o.KnownTrackID = DefaultKnownTrackID
	}
	if o.TrackLimit <= 0 {
		o.TrackLimit = DefaultTrackLimit
	}
	if o.Logger == nil {
		o.Logger = shared.NewLogger(io.Discard)
	}
	return o
}

// RunState is the run-level lifecycle.
type RunState int

const (
	RunPending RunState = iota
	RunRunning
	RunCompleted
)

// Runner executes the diagnostic steps in order against a [Client].
type Runner struct {
	client Client
	opts   Options
	steps  []Step
	state  RunState
}

// NewRunner creates a [Runner] with the standard five steps.
func NewRunner(client Client, opts Options) *Runner {
	r := &Runner{client: client, opts: opts.withDefaults()}
	r.steps = []Step{
		{Name: Authenticate, Required: true, Action: r.authenticate},
		{Name: Search, Required: true, Action: r.search},
		{Name: TopTracks, Required: true, Action: r.topTracks},
		{Name: AudioFeatures, Required: false, Action: r.audioFeatures},
		{Name: KnownTrackProbe, Required: false, Action: r.knownTrackProbe},
	}
	return r
}

// Steps returns the steps in execution order.
func (r *Runner) Steps() []Step {
	return r.steps
}

// Options returns the options in effect, defaults applied.
func (r *Runner) Options() Options {
	return r.opts
}

// State reports where the most recent run is in its lifecycle.
func (r *Runner) State() RunState {
	return r.state
}

// UpdateCapacity is a progress channel buffer size that never drops an update.
func (r *Runner) UpdateCapacity() int {
	return 2 * len(r.steps)
}

// Run executes every step in order and returns the report.
//
// Collaborator errors never escape: each becomes a Failure result. A failed required step stops the run
// and the remaining steps are listed in [Report.Skipped]. progress may be nil; sends never block.
func (r *Runner) Run(ctx context.Context, progress chan<- ProgressUpdate) *Report {
	if r.client == nil {
		panic("diagnostics: nil client")
	}

	r.state = RunRunning
	defer func() { r.state = RunCompleted }()

	report := &Report{ID: shared.GenerateID(), StartedAt: time.Now()}
	logger := shared.WithLogger(r.opts.Logger, "run", report.ID)
	state := &State{}
	total := len(r.steps)

	for i, step := range r.steps {
		sendProgress(progress, startedUpdate(i+1, total, step.Name))

		result := r.execute(ctx, step, state)
		report.Results = append(report.Results, result)

		logger.Debug("step finished",
			"step", step.Name,
			"status", result.Status,
			"kind", result.Kind,
			"duration", result.Duration,
		)
		sendProgress(progress, finishedUpdate(i+1, total, result))

		if result.Kind == AuthenticationError || (step.Name == Authenticate && result.Status == Failure) {
			report.Remediation = r.authRemediation()
		}

		if result.Status == Failure && step.Required {
			for j, rest := range r.steps[i+1:] {
				report.Skipped = append(report.Skipped, rest.Name)
				sendProgress(progress, skippedUpdate(i+j+2, total, rest.Name))
			}
			logger.Warn("required step failed, run truncated", "step", step.Name, "skipped", len(report.Skipped))
			break
		}
	}

	report.FinishedAt = time.Now()
	return report
}

// execute runs a single step, recovering panics and stamping name and duration.
func (r *Runner) execute(ctx context.Context, step Step, state *State) (result StepResult) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%w: %v", ErrStepPanicked, p)
			result = failure(UnknownError, "step panicked", err)
		}
		if result.Status != Success && result.Status != Failure {
			result = failure(UnknownError, fmt.Sprintf("step ended in %s state", result.Status), nil)
		}
		result.Name = step.Name
		result.Duration = time.Since(start)
	}()

	return step.Action(ctx, state)
}

func (r *Runner) authRemediation() []string {
	redirect := r.opts.RedirectURI
	if redirect == "" {
		redirect = "the redirect URI from your config"
	}
	return []string{
		fmt.Sprintf("Open %s and select your app.", dashboardURL),
		fmt.Sprintf("Under Settings, add %s to Redirect URIs exactly as written.", redirect),
		"Check that client_id and client_secret match the app (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET).",
		"If the app is in development mode, add your Spotify account under User Management.",
		"Run 'spotdiag auth logout' to clear a stale cached token, then try again.",
	}
}

func success(message string, data map[string]any, details ...string) StepResult {
	return StepResult{Status: Success, Kind: None, Message: message, Data: data, Details: details}
}

func failure(kind ErrorKind, message string, err error, details ...string) StepResult {
	return StepResult{Status: Failure, Kind: kind, Message: message, Err: err, Details: details}
}

// Report is the ordered record of a run.
type Report struct {
	ID          string
	Results     []StepResult // One per executed step, in order
	Skipped     []StepName   // Steps not attempted because a required step failed
	Remediation []string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Truncated reports whether a required failure stopped the run early.
func (r *Report) Truncated() bool {
	return len(r.Skipped) > 0
}

// Passed reports whether every step ran and succeeded.
func (r *Report) Passed() bool {
	if r.Truncated() || len(r.Results) == 0 {
		return false
	}
	return r.Failed() == 0
}

// Succeeded counts successful results.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == Success {
			n++
		}
	}
	return n
}

// Failed counts failed results.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == Failure {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result returns the result recorded for name.
func (r *Report) Result(name StepName) (StepResult, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return StepResult{}, false
}

// Notes interprets the two audio feature probes together.
func (r *Report) Notes() []string {
	features, ok := r.Result(AudioFeatures)
	if !ok {
		return nil
	}
	probe, ok := r.Result(KnownTrackProbe)
	if !ok {
		return nil
	}

	switch {
	case features.Status == Failure && probe.Status == Success:
		return []string{"Audio features work for the known track, so the failure is specific to this artist's tracks."}
	case features.Status == Failure && probe.Status == Failure:
		return []string{"Audio features failed for the known track too, so the restriction applies to the whole app or token."}
	case features.Status == Success && probe.Status == Failure:
		return []string{"Audio features work for this artist but not for the known track."}
	default:
		return nil
	}
}
