// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog indexes the model catalog served by the council backend.
//
// The backend exposes the set of models the council can draw from, plus the
// server-side default council and chairman selection. This package builds a
// pure in-memory index over that catalog for lookup, grouping, and set
// operations. It performs no I/O; fetching is the API client's job.
//
//	idx := catalog.NewIndex(models)
//	m, ok := idx.ByID("openai/gpt-5.1")
//	addable := idx.Addable(councilIDs)
package catalog
