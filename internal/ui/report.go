package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotdiag/internal/diagnostics"
)

const indent = "    "

// Symbol returns the status marker used at the start of each step line.
func Symbol(s diagnostics.Status) string {
	switch s {
	case diagnostics.Success:
		return "✓"
	case diagnostics.Failure:
		return "✗"
	case diagnostics.Skipped:
		return "-"
	case diagnostics.Running:
		return "→"
	default:
		return " "
	}
}

// Header renders the banner printed before the first step.
func (p *Palette) Header(query, country string) string {
	return p.Title("Spotify API diagnostic") + "\n" +
		p.Help(fmt.Sprintf("query %q, market %s", query, country)) + "\n"
}

// Update renders one progress event. Finished steps include their detail lines; verbose adds timing and errors.
func (p *Palette) Update(u diagnostics.ProgressUpdate, verbose bool) string {
	label := fmt.Sprintf("[%d/%d] %s", u.Index, u.Total, u.Step)

	switch u.Status {
	case diagnostics.Running:
		return p.Help(fmt.Sprintf("%s %s...", Symbol(u.Status), label)) + "\n"
	case diagnostics.Skipped:
		return p.Warn(fmt.Sprintf("%s %s: skipped", Symbol(u.Status), label)) + "\n"
	}

	if u.Result == nil {
		return fmt.Sprintf("%s %s: %s\n", Symbol(u.Status), label, u.Message)
	}
	return p.result(label, *u.Result, verbose)
}

func (p *Palette) result(label string, res diagnostics.StepResult, verbose bool) string {
	var b strings.Builder

	line := fmt.Sprintf("%s %s: %s", Symbol(res.Status), label, res.Message)
	if res.Status == diagnostics.Failure {
		if res.Kind != diagnostics.None {
			line += fmt.Sprintf(" (%s)", res.Kind)
		}
		b.WriteString(p.Err(line))
	} else {
		b.WriteString(p.OK(line))
	}
	if verbose {
		b.WriteString(p.Help(fmt.Sprintf(" %s", res.Duration.Round(time.Millisecond))))
	}
	b.WriteString("\n")

	for _, d := range res.Details {
		if strings.HasPrefix(d, "warning:") {
			b.WriteString(indent + p.Warn(d) + "\n")
			continue
		}
		b.WriteString(indent + d + "\n")
	}

	if res.Err != nil && (verbose || res.Status == diagnostics.Failure) {
		b.WriteString(indent + p.Help("error: "+res.Err.Error()) + "\n")
	}
	return b.String()
}

// Summary renders the closing banner, followed by notes and remediation steps when present.
func (p *Palette) Summary(report *diagnostics.Report) string {
	var b strings.Builder

	total := len(report.Results) + len(report.Skipped)
	headline := fmt.Sprintf("%d/%d checks passed", report.Succeeded(), total)
	switch {
	case report.Passed():
		headline = "All checks passed: " + headline
	case report.Truncated():
		last := report.Results[len(report.Results)-1]
		headline = fmt.Sprintf("Stopped at %s: %s", last.Name, headline)
	default:
		headline = "Completed with failures: " + headline
	}

	lines := []string{headline}
	for _, res := range report.Results {
		line := fmt.Sprintf("%s %s", Symbol(res.Status), res.Name)
		if res.Kind != diagnostics.None {
			line += fmt.Sprintf(" (%s)", res.Kind)
		}
		lines = append(lines, line)
	}
	for _, name := range report.Skipped {
		lines = append(lines, fmt.Sprintf("%s %s (skipped)", Symbol(diagnostics.Skipped), name))
	}
	lines = append(lines, fmt.Sprintf("run %s in %s", report.ID, report.Duration().Round(time.Millisecond)))

	tone := p.ok
	if !report.Passed() {
		tone = p.err
		if !report.Truncated() {
			tone = p.warn
		}
	}
	b.WriteString(p.Banner(strings.Join(lines, "\n"), tone))
	b.WriteString("\n")

	for _, note := range report.Notes() {
		b.WriteString(p.Warn(note) + "\n")
	}

	if len(report.Remediation) > 0 {
		b.WriteString("\n" + p.Title("How to fix authentication") + "\n")
		for i, step := range report.Remediation {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
	}

	return b.String()
}
