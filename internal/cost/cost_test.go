// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cost

import (
	"testing"

	"github.com/jeranaias/council-tui/internal/catalog"
)

func testIndex() *catalog.Index {
	return catalog.NewIndex([]catalog.Model{
		{ID: "a/priced", PromptCostPerToken: 0.000003},
		{ID: "b/priced", PromptCostPerToken: 0.000002},
		{ID: "c/free", PromptCostPerToken: 0},
	})
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t ", 0},
		{"single char rounds up to one", "x", 1},
		{"four chars is one token", "abcd", 1},
		{"five chars is two tokens", "abcde", 2},
		{"eight chars is two tokens", "abcdefgh", 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateTokens(tc.text); got != tc.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestNewEstimate(t *testing.T) {
	idx := testIndex()

	// 8 chars = 2 tokens; priced members sum 0.000005 per token.
	est := NewEstimate("abcdefgh", []string{"a/priced", "b/priced", "c/free"}, idx, 90.0)
	if est.Tokens != 2 {
		t.Errorf("Tokens = %d, want 2", est.Tokens)
	}
	wantUSD := 2 * (0.000003 + 0.000002)
	if est.USD != wantUSD {
		t.Errorf("USD = %v, want %v", est.USD, wantUSD)
	}
	if est.INR != wantUSD*90.0 {
		t.Errorf("INR = %v, want %v", est.INR, wantUSD*90.0)
	}
}

func TestNewEstimate_FallbackRate(t *testing.T) {
	est := NewEstimate("abcd", []string{"a/priced"}, testIndex(), 0)
	if est.INR != est.USD*FallbackUSDINR {
		t.Errorf("INR = %v, want fallback conversion %v", est.INR, est.USD*FallbackUSDINR)
	}
}

func TestNewEstimate_UnknownModelsContributeZero(t *testing.T) {
	est := NewEstimate("abcd", []string{"gone/missing"}, testIndex(), 90.0)
	if est.USD != 0 {
		t.Errorf("USD = %v, want 0", est.USD)
	}
}

func TestHasPricing(t *testing.T) {
	idx := testIndex()
	if !HasPricing([]string{"c/free", "b/priced"}, idx) {
		t.Error("expected pricing with one priced member")
	}
	if HasPricing([]string{"c/free"}, idx) {
		t.Error("expected no pricing with only free members")
	}
	if HasPricing([]string{"a/priced"}, nil) {
		t.Error("expected no pricing without an index")
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "₹0.00"},
		{-1, "₹0.00"},
		{0.005, "< ₹0.01"},
		{0.01, "₹0.01"},
		{12.345, "₹12.35"},
	}
	for _, tc := range tests {
		if got := FormatINR(tc.amount); got != tc.want {
			t.Errorf("FormatINR(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{0.00005, "< $0.0001"},
		{0.0001, "$0.000100"},
		{0.000123, "$0.000123"},
		{1.5, "$1.500000"},
	}
	for _, tc := range tests {
		if got := FormatUSD(tc.amount); got != tc.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}
