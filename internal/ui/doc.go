// Package ui renders diagnostic progress and the closing summary for the terminal.
//
// A [Palette] holds the [lipgloss] styles and detects color support from the writer it is built for,
// so output redirected to a file is plain text. [Palette.Update] renders one line per step event as
// it arrives and [Palette.Summary] renders the banner, notes and remediation printed at the end.
package ui
