// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI components for the council TUI.
//
// Components here are presentation-only: they render deliberation state
// (stage progress, rankings, the chairman's answer), the conversation
// sidebar, the status bar, and the settings overlay. State transitions
// live in the chat model; components receive snapshots and emit
// Bubble Tea messages.
package components
