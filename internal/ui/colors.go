package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorTitle = "#7D56F4"
	colorOK    = "#1DB954"
	colorErr   = "#FF0000"
	colorWarn  = "#FFA500"
	colorHelp  = "#626262"
)

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	banner lipgloss.Style
}

// NewPalette builds the default palette for output written to w.
//
// Color support is detected from w, so a file or buffer gets plain text.
func NewPalette(w io.Writer) *Palette {
	r := lipgloss.NewRenderer(w)
	return &Palette{
		title:  NewBold(r, colorTitle),
		ok:     NewBold(r, colorOK),
		err:    NewBold(r, colorErr),
		warn:   NewStyle(r, colorWarn),
		help:   NewEm(r, colorHelp),
		banner: r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Banner boxes s, tinting the border with the style's foreground.
func (p *Palette) Banner(s string, tone lipgloss.Style) string {
	return p.banner.BorderForeground(tone.GetForeground()).Render(s)
}

func NewStyle(r *lipgloss.Renderer, fg string) lipgloss.Style {
	return r.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(r *lipgloss.Renderer, fg string) lipgloss.Style {
	return NewStyle(r, fg).Bold(true)
}

func NewEm(r *lipgloss.Renderer, fg string) lipgloss.Style {
	return NewStyle(r, fg).Italic(true)
}
