// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cost estimates the price of sending a prompt to the council.
//
// The estimate is a rough lower bound: it covers the prompt tokens of the
// draft text across the selected council members, priced from the catalog.
// Completion tokens, ranking rounds, and the chairman synthesis are not
// estimated because their sizes are unknowable before the request runs.
//
//	est := cost.Estimate(draft, councilIDs, idx, usdINR)
//	fmt.Println(cost.FormatINR(est.INR))
package cost
