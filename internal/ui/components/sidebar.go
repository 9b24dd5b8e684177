// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/ui/styles"
	"github.com/jeranaias/council-tui/internal/util"
)

// =============================================================================
// CONVERSATION SIDEBAR
// =============================================================================

// Sidebar lists past conversations. Selection is tracked by conversation
// ID so a list refresh never jumps the cursor to a different entry.
type Sidebar struct {
	summaries []council.Summary
	selected  int
	width     int
	height    int
}

// NewSidebar creates an empty sidebar.
func NewSidebar() *Sidebar {
	return &Sidebar{}
}

// SetSize updates the sidebar dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// SetSummaries replaces the conversation list, keeping the cursor on the
// previously selected conversation when it still exists.
func (s *Sidebar) SetSummaries(summaries []council.Summary) {
	var selectedID string
	if s.selected >= 0 && s.selected < len(s.summaries) {
		selectedID = s.summaries[s.selected].ID
	}

	s.summaries = summaries
	s.selected = 0
	for i, sum := range summaries {
		if sum.ID == selectedID {
			s.selected = i
			break
		}
	}
}

// Len returns the number of listed conversations.
func (s *Sidebar) Len() int {
	return len(s.summaries)
}

// Move shifts the cursor by delta, clamped to the list bounds.
func (s *Sidebar) Move(delta int) {
	if len(s.summaries) == 0 {
		s.selected = 0
		return
	}
	s.selected += delta
	if s.selected < 0 {
		s.selected = 0
	}
	if s.selected >= len(s.summaries) {
		s.selected = len(s.summaries) - 1
	}
}

// Selected returns the conversation under the cursor.
func (s *Sidebar) Selected() (council.Summary, bool) {
	if s.selected < 0 || s.selected >= len(s.summaries) {
		return council.Summary{}, false
	}
	return s.summaries[s.selected], true
}

// View renders the sidebar column.
func (s *Sidebar) View(theme *styles.Theme, focused bool) string {
	innerWidth := s.width - 2
	if innerWidth < 8 {
		innerWidth = 8
	}

	var b strings.Builder
	b.WriteString(theme.SidebarTitle.Render("Conversations"))
	b.WriteString("\n")

	if len(s.summaries) == 0 {
		b.WriteString(theme.SidebarMeta.Render("none yet"))
	}

	// Keep the cursor visible when the list outgrows the pane.
	visible := s.height - 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if s.selected >= visible {
		start = s.selected - visible + 1
	}

	for i := start; i < len(s.summaries) && i < start+visible; i++ {
		sum := s.summaries[i]
		title := sum.Title
		if title == "" {
			title = council.DefaultTitle
		}
		line := util.TruncateWidth(title, innerWidth)

		style := theme.SidebarItem
		if i == s.selected && focused {
			style = theme.SidebarItemSelected
		}
		b.WriteString(style.Render(util.PadWidth(line, innerWidth)))
		if sum.MessageCount > 0 {
			b.WriteString(theme.SidebarMeta.Render(fmt.Sprintf("%d", sum.MessageCount)))
		}
		b.WriteString("\n")
	}

	return theme.Sidebar.
		Width(s.width).
		Height(s.height).
		Render(strings.TrimRight(b.String(), "\n"))
}
