// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL TYPE
// =============================================================================

// Model describes one entry in the backend's model catalog.
// This is used for council membership selection and cost estimation.
type Model struct {
	// ID is the provider-qualified identifier used in API calls,
	// e.g. "anthropic/claude-sonnet-4.5".
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Provider is the organization serving the model ("openai", "google", ...).
	Provider string `json:"provider"`

	// ContextLength is the maximum context window size in tokens.
	ContextLength int `json:"context_length"`

	// PromptCostPerToken is the USD price per prompt token (0 when unknown).
	PromptCostPerToken float64 `json:"prompt_cost_per_token"`

	// CompletionCostPerToken is the USD price per completion token.
	CompletionCostPerToken float64 `json:"completion_cost_per_token"`
}

// Defaults is the server-recommended council composition.
type Defaults struct {
	// Council is the default set of council member model IDs.
	Council []string `json:"council"`

	// Chairman is the default chairman model ID.
	Chairman string `json:"chairman"`
}

// =============================================================================
// MODEL DISPLAY HELPERS
// =============================================================================

// DisplayName returns the model's name, falling back to the ID when the
// catalog entry has no name.
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// ContextString returns a formatted context window string.
func (m Model) ContextString() string {
	if m.ContextLength >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.ContextLength)/1000000)
	}
	if m.ContextLength >= 1000 {
		return fmt.Sprintf("%dK tokens", m.ContextLength/1000)
	}
	return fmt.Sprintf("%d tokens", m.ContextLength)
}

// PromptCostString returns a formatted prompt price per 1M tokens.
// Returns "n/a" when the catalog carries no price for the model.
func (m Model) PromptCostString() string {
	if m.PromptCostPerToken <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f/1M", m.PromptCostPerToken*1000000)
}

// =============================================================================
// CATALOG INDEX
// =============================================================================

// Index is an immutable lookup structure over a model catalog snapshot.
// Build one with NewIndex whenever a fresh catalog arrives; all methods are
// safe for concurrent readers.
type Index struct {
	models []Model
	byID   map[string]Model
}

// NewIndex builds an Index from a catalog snapshot. The input slice is copied;
// later mutation of the caller's slice does not affect the index.
func NewIndex(models []Model) *Index {
	idx := &Index{
		models: make([]Model, len(models)),
		byID:   make(map[string]Model, len(models)),
	}
	copy(idx.models, models)
	for _, m := range models {
		idx.byID[m.ID] = m
	}
	return idx
}

// Len returns the number of models in the catalog.
func (idx *Index) Len() int {
	return len(idx.models)
}

// All returns the catalog snapshot in its original order.
// The returned slice must not be modified.
func (idx *Index) All() []Model {
	return idx.models
}

// ByID looks up a model by its provider-qualified ID.
func (idx *Index) ByID(id string) (Model, bool) {
	m, ok := idx.byID[id]
	return m, ok
}

// Addable returns the models not currently in the council, preserving
// catalog order. Council IDs absent from the catalog are ignored.
func (idx *Index) Addable(council []string) []Model {
	member := make(map[string]bool, len(council))
	for _, id := range council {
		member[id] = true
	}

	result := []Model{}
	for _, m := range idx.models {
		if !member[m.ID] {
			result = append(result, m)
		}
	}
	return result
}

// =============================================================================
// PROVIDER GROUPING
// =============================================================================

// ProviderGroup is a set of models under one provider heading.
type ProviderGroup struct {
	Provider string
	Models   []Model
}

// GroupByProvider buckets models by provider, with providers sorted
// case-insensitively and models kept in input order within each bucket.
// Models with an empty provider land in an "other" bucket, sorted last.
func GroupByProvider(models []Model) []ProviderGroup {
	buckets := map[string][]Model{}
	for _, m := range models {
		p := m.Provider
		if p == "" {
			p = "other"
		}
		buckets[p] = append(buckets[p], m)
	}

	providers := make([]string, 0, len(buckets))
	for p := range buckets {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		pi, pj := providers[i], providers[j]
		// "other" always sorts last.
		if pi == "other" {
			return false
		}
		if pj == "other" {
			return true
		}
		return strings.ToLower(pi) < strings.ToLower(pj)
	})

	groups := make([]ProviderGroup, 0, len(providers))
	for _, p := range providers {
		groups = append(groups, ProviderGroup{Provider: p, Models: buckets[p]})
	}
	return groups
}
