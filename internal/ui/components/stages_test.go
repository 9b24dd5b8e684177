// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/ui/styles"
)

func TestParseStageAnswers(t *testing.T) {
	raw := json.RawMessage(`[
		{"model": "openai/gpt-4o", "response": "Paris"},
		{"model": "anthropic/claude", "response": "Paris, France"}
	]`)

	answers := ParseStageAnswers(raw)
	if len(answers) != 2 {
		t.Fatalf("got %d answers, want 2", len(answers))
	}
	if answers[0].Model != "openai/gpt-4o" || answers[0].Response != "Paris" {
		t.Errorf("answers[0] = %+v", answers[0])
	}
}

func TestParseStageAnswers_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{"empty", nil},
		{"not json", json.RawMessage(`{{{`)},
		{"wrong shape", json.RawMessage(`{"model": "a"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseStageAnswers(tt.raw); got != nil {
				t.Errorf("ParseStageAnswers(%s) = %v, want nil", tt.name, got)
			}
		})
	}
}

func TestParseAggregateRankings_SortsBestFirst(t *testing.T) {
	raw := json.RawMessage(`[
		{"model": "b/two", "average_rank": 2.5},
		{"model": "a/one", "average_rank": 1.0}
	]`)

	ranks := ParseAggregateRankings(raw)
	if len(ranks) != 2 {
		t.Fatalf("got %d ranks, want 2", len(ranks))
	}
	if ranks[0].Model != "a/one" {
		t.Errorf("best ranked = %s, want a/one", ranks[0].Model)
	}
}

func TestParseAggregateRankings_UnknownShape(t *testing.T) {
	if got := ParseAggregateRankings(json.RawMessage(`"free text"`)); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestShortModelName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"openai/gpt-4o", "gpt-4o"},
		{"no-provider", "no-provider"},
		{"trailing/", "trailing/"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ShortModelName(tt.id); got != tt.want {
			t.Errorf("ShortModelName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestDeanonymize(t *testing.T) {
	labels := map[string]string{
		"Response A": "openai/gpt-4o",
		"Response B": "anthropic/claude",
	}

	got := Deanonymize("I prefer Response A over Response B.", labels)
	want := "I prefer Response A (gpt-4o) over Response B (claude)."
	if got != want {
		t.Errorf("Deanonymize() = %q, want %q", got, want)
	}
}

func TestDeanonymize_NoLabels(t *testing.T) {
	if got := Deanonymize("unchanged", nil); got != "unchanged" {
		t.Errorf("got %q", got)
	}
}

func TestStageStatusLine(t *testing.T) {
	theme := styles.NewTheme()

	msg := council.NewAssistantMessage()
	msg.Stage1 = json.RawMessage(`[]`)
	msg.Stage2Loading = true

	line := StageStatusLine(theme, msg)
	if !strings.Contains(line, stageGlyphDone+" council") {
		t.Errorf("stage 1 not marked done: %q", line)
	}
	if !strings.Contains(line, stageGlyphRunning+" peer review") {
		t.Errorf("stage 2 not marked running: %q", line)
	}
	if !strings.Contains(line, stageGlyphPending+" synthesis") {
		t.Errorf("stage 3 not marked pending: %q", line)
	}
}

func TestRenderRankingDetail(t *testing.T) {
	msg := council.NewAssistantMessage()
	msg.Stage2 = json.RawMessage(`[
		{"model": "a/one", "ranking": "Response A is best"}
	]`)
	msg.Metadata = nil

	if got := RenderRankingDetail(msg, "a/one"); got != "Response A is best" {
		t.Errorf("RenderRankingDetail = %q", got)
	}
	if got := RenderRankingDetail(msg, "missing/model"); got != "" {
		t.Errorf("unknown model = %q, want empty", got)
	}
}
