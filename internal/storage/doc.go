// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps a local mirror of backend conversations.
//
// The backend owns conversation state; the mirror is a read-through cache
// under ~/.council/mirror.db refreshed whenever the client fetches the list
// or a conversation. It serves the sidebar when the backend is unreachable.
//
// The package also exports conversations as markdown or JSON documents
// under ~/.council/exports/.
package storage
