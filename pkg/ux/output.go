// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the erdoslab CLI.
package ux

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// erdoslab palette - chalkboard greens and manuscript parchment
var (
	ColorChalk       = lipgloss.Color("#E8E3D3") // Chalk - highlights on dark terminals
	ColorBoardGreen  = lipgloss.Color("#3FA574") // Board green - main brand color
	ColorBoardDeep   = lipgloss.Color("#2C7A56") // Deep board green - borders, accents
	ColorParchment   = lipgloss.Color("#C9B98F") // Parchment - secondary elements
	ColorGraphite    = lipgloss.Color("#5C6370") // Graphite - muted text
	ColorInkDark     = lipgloss.Color("#1E2329") // Ink - near black backgrounds

	// Semantic colors
	ColorSuccess = lipgloss.Color("#3FA574") // Board green for passing gates
	ColorWarning = lipgloss.Color("#E5C07B") // Amber for warnings, NEEDS_REVIEW
	ColorError   = lipgloss.Color("#E06C75") // Red for findings and failures
	ColorMuted   = lipgloss.Color("#5C6370") // Graphite for secondary text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorChalk),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorBoardGreen),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorGraphite),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorBoardGreen).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBoardDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling, or the bare rune in
// plain mode.
func (i Icon) Render() string {
	if PlainMode() {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

var (
	plainMode     bool
	plainModeOnce sync.Once
)

// PlainMode reports whether styled output is suppressed. Plain mode is
// active when stdout is not a terminal (CI, pipes) or when NO_COLOR is
// set, so gate diagnostics stay grep-able.
func PlainMode() bool {
	plainModeOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			plainMode = true
			return
		}
		fd := os.Stdout.Fd()
		plainMode = !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	})
	return plainMode
}

// SetPlainMode forces plain or styled output, overriding detection.
// Used by the --machine flag and by tests.
func SetPlainMode(plain bool) {
	plainModeOnce.Do(func() {})
	plainMode = plain
}

// render applies a style unless plain mode is active.
func render(style lipgloss.Style, text string) string {
	if PlainMode() {
		return text
	}
	return style.Render(text)
}

// Successf prints a success line with icon.
func Successf(format string, args ...any) {
	fmt.Printf("%s %s\n", IconSuccess.Render(), render(Styles.Success, fmt.Sprintf(format, args...)))
}

// Warnf prints a warning line with icon.
func Warnf(format string, args ...any) {
	fmt.Printf("%s %s\n", IconWarning.Render(), render(Styles.Warning, fmt.Sprintf(format, args...)))
}

// Errorf prints an error line with icon to stderr.
func Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", IconError.Render(), render(Styles.Error, fmt.Sprintf(format, args...)))
}

// Titlef prints a bold title line.
func Titlef(format string, args ...any) {
	fmt.Println(render(Styles.Title, fmt.Sprintf(format, args...)))
}

// Mutedf prints a secondary detail line.
func Mutedf(format string, args ...any) {
	fmt.Println(render(Styles.Muted, fmt.Sprintf(format, args...)))
}
