package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotdiag/internal/diagnostics"
)

func testPalette() *Palette {
	return NewPalette(&bytes.Buffer{})
}

func TestSymbol(t *testing.T) {
	tc := map[diagnostics.Status]string{
		diagnostics.Success: "✓",
		diagnostics.Failure: "✗",
		diagnostics.Skipped: "-",
		diagnostics.Running: "→",
		diagnostics.Pending: " ",
	}
	for status, want := range tc {
		if got := Symbol(status); got != want {
			t.Errorf("Symbol(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestUpdate(t *testing.T) {
	p := testPalette()

	t.Run("running", func(t *testing.T) {
		out := p.Update(diagnostics.ProgressUpdate{Step: diagnostics.Search, Index: 2, Total: 5, Status: diagnostics.Running}, false)
		if out != "→ [2/5] Search...\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("skipped", func(t *testing.T) {
		out := p.Update(diagnostics.ProgressUpdate{Step: diagnostics.TopTracks, Index: 3, Total: 5, Status: diagnostics.Skipped}, false)
		if !strings.Contains(out, "[3/5] TopTracks: skipped") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("success with details", func(t *testing.T) {
		res := diagnostics.StepResult{
			Name:     diagnostics.AudioFeatures,
			Status:   diagnostics.Success,
			Message:  "2/3 tracks returned audio features",
			Details:  []string{"One: danceability=0.80", "warning: partial result"},
			Duration: 1500 * time.Microsecond,
		}
		out := p.Update(diagnostics.ProgressUpdate{Step: res.Name, Index: 4, Total: 5, Status: res.Status, Result: &res}, false)

		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
		}
		if lines[0] != "✓ [4/5] AudioFeatures: 2/3 tracks returned audio features" {
			t.Errorf("unexpected status line %q", lines[0])
		}
		if !strings.HasPrefix(lines[1], indent) || !strings.Contains(lines[2], "warning:") {
			t.Errorf("expected indented details, got %q", lines[1:])
		}
		if strings.Contains(out, "ms") {
			t.Error("duration should only be shown when verbose")
		}

		verbose := p.Update(diagnostics.ProgressUpdate{Step: res.Name, Index: 4, Total: 5, Status: res.Status, Result: &res}, true)
		if !strings.Contains(verbose, "2ms") {
			t.Errorf("expected rounded duration in verbose output, got %q", verbose)
		}
	})

	t.Run("failure shows kind and error", func(t *testing.T) {
		res := diagnostics.StepResult{
			Name:    diagnostics.Authenticate,
			Status:  diagnostics.Failure,
			Kind:    diagnostics.AuthenticationError,
			Message: "could not fetch the current user profile",
			Err:     errors.New("status 401"),
		}
		out := p.Update(diagnostics.ProgressUpdate{Step: res.Name, Index: 1, Total: 5, Status: res.Status, Result: &res}, false)

		if !strings.Contains(out, "✗ [1/5] Authenticate: could not fetch the current user profile (AuthenticationError)") {
			t.Errorf("unexpected status line %q", out)
		}
		if !strings.Contains(out, "error: status 401") {
			t.Errorf("expected error line, got %q", out)
		}
	})
}

func TestSummary(t *testing.T) {
	p := testPalette()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("passed", func(t *testing.T) {
		report := &diagnostics.Report{ID: "run-1", StartedAt: start, FinishedAt: start.Add(time.Second)}
		for _, name := range []diagnostics.StepName{
			diagnostics.Authenticate, diagnostics.Search, diagnostics.TopTracks,
			diagnostics.AudioFeatures, diagnostics.KnownTrackProbe,
		} {
			report.Results = append(report.Results, diagnostics.StepResult{Name: name, Status: diagnostics.Success})
		}

		out := p.Summary(report)
		for _, want := range []string{"All checks passed: 5/5 checks passed", "✓ KnownTrackProbe", "run run-1 in 1s"} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "How to fix") {
			t.Error("passing summary should not include remediation")
		}
	})

	t.Run("truncated with remediation", func(t *testing.T) {
		report := &diagnostics.Report{
			ID: "run-2",
			Results: []diagnostics.StepResult{
				{Name: diagnostics.Authenticate, Status: diagnostics.Failure, Kind: diagnostics.AuthenticationError},
			},
			Skipped:     []diagnostics.StepName{diagnostics.Search, diagnostics.TopTracks, diagnostics.AudioFeatures, diagnostics.KnownTrackProbe},
			Remediation: []string{"Add the redirect URI.", "Try again."},
			StartedAt:   start,
			FinishedAt:  start,
		}

		out := p.Summary(report)
		for _, want := range []string{
			"Stopped at Authenticate: 0/5 checks passed",
			"✗ Authenticate (AuthenticationError)",
			"- Search (skipped)",
			"How to fix authentication",
			"1. Add the redirect URI.",
			"2. Try again.",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("optional failure with note", func(t *testing.T) {
		report := &diagnostics.Report{
			ID: "run-3",
			Results: []diagnostics.StepResult{
				{Name: diagnostics.Authenticate, Status: diagnostics.Success},
				{Name: diagnostics.Search, Status: diagnostics.Success},
				{Name: diagnostics.TopTracks, Status: diagnostics.Success},
				{Name: diagnostics.AudioFeatures, Status: diagnostics.Failure, Kind: diagnostics.PermissionError},
				{Name: diagnostics.KnownTrackProbe, Status: diagnostics.Success},
			},
			StartedAt:  start,
			FinishedAt: start,
		}

		out := p.Summary(report)
		if !strings.Contains(out, "Completed with failures: 4/5 checks passed") {
			t.Errorf("unexpected headline:\n%s", out)
		}
		if !strings.Contains(out, "specific to this artist") {
			t.Errorf("expected artist-specific note:\n%s", out)
		}
	})
}

func TestHeader(t *testing.T) {
	out := testPalette().Header("artist:Test", "US")
	if !strings.Contains(out, "Spotify API diagnostic") || !strings.Contains(out, `query "artist:Test", market US`) {
		t.Errorf("unexpected header %q", out)
	}
}
