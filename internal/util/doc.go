// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across council-tui.
//
// It contains the small primitives the rest of the application builds on:
// crash-safe file writes and display-width aware string handling.
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Truncate long strings safely for terminal display
//	label := util.TruncateWidth(title, 40)
package util
