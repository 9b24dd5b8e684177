// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package council holds the client-side state of a deliberation session.
//
// A conversation is a sequence of user turns and assistant turns; each
// assistant turn fills in three stages as the backend streams progress
// events. The reducer folds those events into conversation snapshots, the
// pending turn tracks the optimistic insert until the request settles, and
// the controller ties the API client, settings store, and catalog together
// behind a single update channel the UI consumes.
package council
