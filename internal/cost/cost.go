// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cost

import (
	"fmt"
	"strings"

	"github.com/jeranaias/council-tui/internal/catalog"
)

// FallbackUSDINR is used when no exchange rate has been fetched yet.
const FallbackUSDINR = 83.0

// Display floors. Positive amounts below these render as "< ..." rather
// than rounding down to zero.
const (
	floorINR = 0.01
	floorUSD = 0.0001
)

// Estimate is a prompt-cost projection for one send.
type Estimate struct {
	// Tokens is the estimated prompt token count of the draft text.
	Tokens int

	// USD is the summed prompt cost across all council members.
	USD float64

	// INR is USD converted at the current (or fallback) exchange rate.
	INR float64
}

// EstimateTokens approximates the token count of text using the common
// 4-characters-per-token heuristic. Empty or whitespace-only text is 0
// tokens; any other text is at least 1.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := (len(text) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// NewEstimate projects the prompt cost of sending text to the given council.
// Models missing from the catalog, or present without a prompt price,
// contribute zero. usdINR of 0 or less falls back to FallbackUSDINR.
func NewEstimate(text string, council []string, idx *catalog.Index, usdINR float64) Estimate {
	tokens := EstimateTokens(text)

	var usd float64
	if idx != nil {
		for _, id := range council {
			m, ok := idx.ByID(id)
			if !ok {
				continue
			}
			usd += float64(tokens) * m.PromptCostPerToken
		}
	}

	rate := usdINR
	if rate <= 0 {
		rate = FallbackUSDINR
	}

	return Estimate{
		Tokens: tokens,
		USD:    usd,
		INR:    usd * rate,
	}
}

// HasPricing reports whether at least one council member has a nonzero
// prompt price in the catalog. When false the estimate is meaningless and
// the UI should not show one.
func HasPricing(council []string, idx *catalog.Index) bool {
	if idx == nil {
		return false
	}
	for _, id := range council {
		if m, ok := idx.ByID(id); ok && m.PromptCostPerToken > 0 {
			return true
		}
	}
	return false
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatINR renders an INR amount for display. Zero and negative amounts
// render as "₹0.00"; positive amounts below one paisa render as "< ₹0.01".
func FormatINR(amount float64) string {
	if amount <= 0 {
		return "₹0.00"
	}
	if amount < floorINR {
		return "< ₹0.01"
	}
	return fmt.Sprintf("₹%.2f", amount)
}

// FormatUSD renders a USD amount for display. Zero and negative amounts
// render as "$0.00"; positive amounts below the floor render as "< $0.0001".
func FormatUSD(amount float64) string {
	if amount <= 0 {
		return "$0.00"
	}
	if amount < floorUSD {
		return "< $0.0001"
	}
	return fmt.Sprintf("$%.6f", amount)
}

// String renders the estimate as the one-line preview shown under the input.
func (e Estimate) String() string {
	return fmt.Sprintf("~%d tokens · %s (%s)", e.Tokens, FormatINR(e.INR), FormatUSD(e.USD))
}
