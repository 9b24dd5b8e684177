// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main Bubble Tea model for the council TUI.
//
// The chat model is a thin presentation layer over council.Controller:
// key presses become controller calls issued as commands, and controller
// updates arrive on a channel that a re-armed command converts into
// Bubble Tea messages. All deliberation state lives in the controller;
// the model keeps only view state (focus, overlays, dimensions).
package chat
