// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the client for the council orchestration backend.
//
// The backend exposes a small REST surface (model catalog, exchange rate,
// conversation CRUD) plus a streaming endpoint that emits the deliberation
// progress as Server-Sent Events: the three council stages, the generated
// title, and a terminal complete or error event.
//
// The API key travels in the X-OpenRouter-Key header only; it is never
// placed in URLs or request bodies.
package api
