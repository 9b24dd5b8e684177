// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/council-tui/internal/ui/styles"
)

// StatusInfo carries everything the status bar displays.
type StatusInfo struct {
	Busy         bool
	SpinnerFrame string
	CouncilSize  int
	Chairman     string
	FXStale      bool
	Message      string // transient status or error text
	IsError      bool
}

// RenderStatusBar renders the bottom status line.
func RenderStatusBar(theme *styles.Theme, width int, info StatusInfo) string {
	var left strings.Builder

	if info.Busy {
		left.WriteString(theme.StageRunning.Render(info.SpinnerFrame + " deliberating"))
	} else {
		left.WriteString(theme.StatusBar.Render("ready"))
	}

	left.WriteString("  ")
	left.WriteString(theme.ShortcutDesc.Render(
		fmt.Sprintf("council:%d chair:%s", info.CouncilSize, ShortModelName(info.Chairman)),
	))

	if info.FXStale {
		left.WriteString("  ")
		left.WriteString(theme.SettingsWarn.Render("fx stale"))
	}

	if info.Message != "" {
		left.WriteString("  ")
		if info.IsError {
			left.WriteString(theme.StatusError.Render(info.Message))
		} else {
			left.WriteString(theme.ShortcutDesc.Render(info.Message))
		}
	}

	hints := theme.ShortcutKey.Render("^o") + theme.ShortcutDesc.Render(" settings ") +
		theme.ShortcutKey.Render("^b") + theme.ShortcutDesc.Render(" list ") +
		theme.ShortcutKey.Render("^n") + theme.ShortcutDesc.Render(" new ") +
		theme.ShortcutKey.Render("^q") + theme.ShortcutDesc.Render(" quit")

	leftStr := left.String()
	gap := width - lipgloss.Width(leftStr) - lipgloss.Width(hints) - 2
	if gap < 1 {
		gap = 1
	}

	return theme.StatusBar.Width(width).Render(leftStr + strings.Repeat(" ", gap) + hints)
}
