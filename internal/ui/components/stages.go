// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/ui/styles"
)

// =============================================================================
// STAGE PAYLOADS
// =============================================================================

// StageAnswer is one council member's contribution in a stage payload.
// Stage 1 carries Response, stage 2 carries Ranking.
type StageAnswer struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Ranking  string `json:"ranking"`
}

// ParseStageAnswers decodes a stage 1 or stage 2 payload. Malformed
// payloads yield nil; rendering degrades to the stage status line.
func ParseStageAnswers(raw json.RawMessage) []StageAnswer {
	if len(raw) == 0 {
		return nil
	}
	var answers []StageAnswer
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil
	}
	return answers
}

// AggregateRank is one entry of the stage 2 aggregate ranking.
type AggregateRank struct {
	Model       string  `json:"model"`
	AverageRank float64 `json:"average_rank"`
}

// ParseAggregateRankings decodes the aggregate ranking metadata,
// sorted best first. Unknown shapes yield nil.
func ParseAggregateRankings(raw json.RawMessage) []AggregateRank {
	if len(raw) == 0 {
		return nil
	}
	var ranks []AggregateRank
	if err := json.Unmarshal(raw, &ranks); err != nil {
		return nil
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].AverageRank < ranks[j].AverageRank
	})
	return ranks
}

// ShortModelName strips the provider prefix from a model ID for display.
func ShortModelName(id string) string {
	if i := strings.IndexByte(id, '/'); i >= 0 && i+1 < len(id) {
		return id[i+1:]
	}
	return id
}

// Deanonymize annotates anonymous response labels with the model that
// produced them, using the label map the backend reveals after stage 2.
func Deanonymize(text string, labelToModel map[string]string) string {
	if len(labelToModel) == 0 {
		return text
	}

	// Longer labels first so "Response A1" is not clobbered by "Response A".
	labels := make([]string, 0, len(labelToModel))
	for label := range labelToModel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return len(labels[i]) > len(labels[j]) })

	for _, label := range labels {
		annotated := fmt.Sprintf("%s (%s)", label, ShortModelName(labelToModel[label]))
		text = strings.ReplaceAll(text, label, annotated)
	}
	return text
}

// =============================================================================
// STAGE RENDERING
// =============================================================================

const (
	stageGlyphDone    = "[x]"
	stageGlyphRunning = "[~]"
	stageGlyphPending = "[ ]"
)

var stageNames = [3]string{"council", "peer review", "synthesis"}

// StageStatusLine renders the three-stage progress indicator for an
// assistant message.
func StageStatusLine(theme *styles.Theme, msg *council.Message) string {
	parts := make([]string, 0, 3)

	done := []bool{msg.Stage1 != nil, msg.Stage2 != nil, msg.Stage3 != nil}
	loading := []bool{msg.Stage1Loading, msg.Stage2Loading, msg.Stage3Loading}

	for i, name := range stageNames {
		switch {
		case done[i]:
			parts = append(parts, theme.StageDone.Render(stageGlyphDone+" "+name))
		case loading[i]:
			parts = append(parts, theme.StageRunning.Render(stageGlyphRunning+" "+name))
		default:
			parts = append(parts, theme.StagePending.Render(stageGlyphPending+" "+name))
		}
	}

	return strings.Join(parts, "  ")
}

// RenderAssistant renders a full assistant message: stage progress,
// council roster, aggregate rankings, and the chairman's final answer.
func RenderAssistant(theme *styles.Theme, md *Markdown, msg *council.Message) string {
	var b strings.Builder

	b.WriteString(StageStatusLine(theme, msg))

	if answers := ParseStageAnswers(msg.Stage1); len(answers) > 0 {
		models := make([]string, 0, len(answers))
		for _, a := range answers {
			models = append(models, ShortModelName(a.Model))
		}
		b.WriteString("\n")
		b.WriteString(theme.RankingLabel.Render(
			fmt.Sprintf("%d responses: %s", len(answers), strings.Join(models, ", ")),
		))
	}

	if msg.Metadata != nil {
		if ranks := ParseAggregateRankings(msg.Metadata.AggregateRankings); len(ranks) > 0 {
			b.WriteString("\n")
			b.WriteString(theme.RankingLabel.Render("peer ranking: "))
			entries := make([]string, 0, len(ranks))
			for i, r := range ranks {
				entries = append(entries, fmt.Sprintf(
					"%d. %s (%.1f)", i+1, ShortModelName(r.Model), r.AverageRank,
				))
			}
			b.WriteString(theme.RankingValue.Render(strings.Join(entries, "  ")))
		}
	}

	if final := msg.FinalAnswer(); final != "" {
		b.WriteString("\n")
		b.WriteString(md.Render(final))
	}

	return theme.AssistantBlock.Render(b.String())
}

// RenderRankingDetail renders one member's stage 2 ranking with
// anonymous labels resolved, for the expanded ranking view.
func RenderRankingDetail(msg *council.Message, model string) string {
	answers := ParseStageAnswers(msg.Stage2)
	var labels map[string]string
	if msg.Metadata != nil {
		labels = msg.Metadata.LabelToModel
	}
	for _, a := range answers {
		if a.Model == model {
			return Deanonymize(a.Ranking, labels)
		}
	}
	return ""
}
