// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides the two-tier settings store for council-tui.
//
// Settings live in one of two tiers: a durable tier (TOML file at
// ~/.council/settings.toml, owner-only permissions, atomic writes) and a
// session tier (in-memory, gone when the process exits). Model selection and
// flags are always durable; the API key lives in exactly one tier at a time,
// chosen by the session-only toggle.
//
//	store, err := config.NewStore()
//	store.SetSecret("sk-or-...")
//	store.SetSessionOnly(true) // migrates the key out of the file
//
// Environment overrides: COUNCIL_API_KEY takes precedence over both tiers
// for reads and is never written anywhere.
package config
