package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type checkLevel int

const (
	levelInfo checkLevel = iota
	levelOK
	levelWarn
	levelFail
)

func (l checkLevel) tag() string {
	switch l {
	case levelOK:
		return "OK"
	case levelWarn:
		return "WARN"
	case levelFail:
		return "FAIL"
	default:
		return "INFO"
	}
}

func (l checkLevel) color() lipgloss.Color {
	switch l {
	case levelOK:
		return lipgloss.Color("42")
	case levelWarn:
		return lipgloss.Color("214")
	case levelFail:
		return lipgloss.Color("203")
	default:
		return lipgloss.Color("75")
	}
}

const reportLabelWidth = 20

// report collects doctor check lines grouped under section headings.
type report struct {
	color    bool
	lines    []string
	failures int
}

func newReport(color bool) *report {
	return &report{color: color}
}

func (r *report) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if r.color {
		heading = lipgloss.NewStyle().Bold(true).Foreground(levelInfo.color()).Render(heading)
	}
	r.lines = append(r.lines, heading)
}

func (r *report) add(label string, level checkLevel, detail string) {
	if level == levelFail {
		r.failures++
	}
	tag := "[" + level.tag() + "]"
	if r.color {
		tag = lipgloss.NewStyle().Foreground(level.color()).Render(tag)
	}
	line := fmt.Sprintf("  %-*s %s", reportLabelWidth, label+":", tag)
	if detail != "" {
		line += " " + detail
	}
	r.lines = append(r.lines, line)
}

func (r *report) write(w io.Writer) error {
	_, err := fmt.Fprintln(w, strings.Join(r.lines, "\n"))
	return err
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
