// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/jeranaias/council-tui/internal/ui/styles"
)

// NewSpinner creates the shared deliberation spinner with an
// ASCII-compatible animation.
func NewSpinner(theme *styles.Theme) spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner
	return sp
}
