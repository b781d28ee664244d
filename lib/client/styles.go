// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colors of client status messages. Server text is
// printed unstyled.
type Theme struct {
	Info    lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Faint   lipgloss.Color
}

// DefaultTheme uses the 16-color palette so it reads on any terminal.
var DefaultTheme = Theme{
	Info:    lipgloss.Color("6"),
	Success: lipgloss.Color("2"),
	Warning: lipgloss.Color("3"),
	Error:   lipgloss.Color("1"),
	Faint:   lipgloss.Color("8"),
}

// Styles renders status messages for one output.
type Styles struct {
	info    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	faint   lipgloss.Style
}

// NewStyles builds styles whose color profile matches output. Output
// that is not a terminal gets plain text.
func NewStyles(output io.Writer, theme Theme) Styles {
	renderer := lipgloss.NewRenderer(output)
	return Styles{
		info:    renderer.NewStyle().Foreground(theme.Info),
		success: renderer.NewStyle().Foreground(theme.Success).Bold(true),
		warning: renderer.NewStyle().Foreground(theme.Warning),
		failure: renderer.NewStyle().Foreground(theme.Error).Bold(true),
		faint:   renderer.NewStyle().Foreground(theme.Faint),
	}
}

// Info renders text as an informational status line.
func (s Styles) Info(text string) string { return s.info.Render(text) }
