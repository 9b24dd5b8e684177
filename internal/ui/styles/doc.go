// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the council TUI.
//
// Colors are defined as lipgloss.AdaptiveColor pairs so light and dark
// terminals both get readable output without configuration. The Theme
// struct bundles every style the views use; construct one with NewTheme
// at startup and pass it down.
package styles
