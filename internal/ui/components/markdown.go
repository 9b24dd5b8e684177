// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders the chairman's answer as terminal markdown. Glamour
// renderers are width-bound, so the renderer is rebuilt on resize.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdown creates a markdown renderer for the given wrap width.
func NewMarkdown(width int, dark bool) *Markdown {
	m := &Markdown{dark: dark}
	m.SetWidth(width)
	return m
}

// SetWidth rebuilds the renderer when the wrap width changes.
func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if m.renderer != nil && m.width == width {
		return
	}
	m.width = width

	style := glamour.WithStandardStyle("light")
	if m.dark {
		style = glamour.WithStandardStyle("dark")
	}

	r, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Fall back to plain text rendering.
		m.renderer = nil
		return
	}
	m.renderer = r
}

// Render converts markdown to styled terminal output. On any renderer
// failure the raw text comes back unchanged so the answer is never lost.
func (m *Markdown) Render(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
