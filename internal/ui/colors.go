package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/playsync/internal/tasks"
)

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a palette from title, success, error, warning and help colors.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// DefaultPalette returns the palette used by the CLI.
func DefaultPalette() *Palette {
	return NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")
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

// Title renders a heading.
func (p *Palette) Title(s string) string {
	return p.title.Render(s)
}

// Help renders secondary text.
func (p *Palette) Help(s string) string {
	return p.help.Render(s)
}

// Severity renders s in the style for sev.
func (p *Palette) Severity(sev tasks.Severity, s string) string {
	switch sev {
	case tasks.SeveritySuccess:
		return p.ok.Render(s)
	case tasks.SeverityWarning:
		return p.warn.Render(s)
	case tasks.SeverityDanger:
		return p.err.Render(s)
	case tasks.SeverityInfo:
		return p.help.Render(s)
	default:
		return s
	}
}

// Event renders one progress event as a single terminal line.
func (p *Palette) Event(ev tasks.ProgressEvent) string {
	switch ev.Kind {
	case tasks.EventStatus:
		line := fmt.Sprintf("%s %s", p.help.Render(fmt.Sprintf("[%5.1f%%]", ev.Percent)), ev.Message)
		if ev.Detail != "" {
			line += " " + p.help.Render(ev.Detail)
		}
		return line
	case tasks.EventTrack:
		return "  " + p.Severity(ev.Severity, ev.Message)
	case tasks.EventComplete:
		return p.ok.Render(ev.Message)
	case tasks.EventError:
		return p.err.Render("Error: " + ev.Message)
	default:
		return ev.Message
	}
}
