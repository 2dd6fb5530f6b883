package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/spotproxy/internal/models"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// Styles returns the package palette for command output.
func Styles() *Palette {
	return styles
}

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	Title(string) string
	OK(string) string
	Err(string) string
	Warn(string) string
	Help(string) string
}

var _ Painter = (*Palette)(nil)

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Outcome colors an auth event outcome: green for success, orange for user-side
// outcomes, red for failures.
func (p *Palette) Outcome(outcome string) string {
	return p.outcome(outcome).Render(outcome)
}

func (p *Palette) outcome(outcome string) lipgloss.Style {
	switch outcome {
	case models.OutcomeSuccess, models.OutcomeRefreshed:
		return p.ok
	case models.OutcomeMissingCredential, models.OutcomeAccessDenied, models.OutcomeStateMismatch:
		return p.warn
	default:
		return p.err
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
