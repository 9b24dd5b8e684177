// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/council-tui/internal/config"
	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/util"
)

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// stageEntry mirrors the per-model stage payload shape for export.
type stageEntry struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Ranking  string `json:"ranking"`
}

// ExportMarkdown renders a conversation as a markdown document.
func ExportMarkdown(conv *council.Conversation) []byte {
	var b strings.Builder

	title := conv.Title
	if title == "" {
		title = council.DefaultTitle
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !conv.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "_%s_\n\n", conv.CreatedAt.Format(time.RFC1123))
	}

	for _, msg := range conv.Messages {
		switch msg.Role {
		case council.RoleUser:
			fmt.Fprintf(&b, "## You\n\n%s\n\n", msg.Content)

		case council.RoleAssistant:
			b.WriteString("## Council\n\n")

			var answers []stageEntry
			if err := json.Unmarshal(msg.Stage1, &answers); err == nil && len(answers) > 0 {
				models := make([]string, 0, len(answers))
				for _, a := range answers {
					models = append(models, a.Model)
				}
				fmt.Fprintf(&b, "Councillors: %s\n\n", strings.Join(models, ", "))
			}

			if final := msg.FinalAnswer(); final != "" {
				b.WriteString(final)
				b.WriteString("\n\n")
			}
		}
	}

	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}

// ExportJSON renders a conversation as indented JSON, stage payloads
// included verbatim.
func ExportJSON(conv *council.Conversation) ([]byte, error) {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export conversation: %w", err)
	}
	return data, nil
}

// WriteMarkdown exports a conversation to ~/.council/exports/<id>.md and
// returns the written path.
func WriteMarkdown(conv *council.Conversation) (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "exports", conv.ID+".md")
	if err := util.AtomicWriteFile(path, ExportMarkdown(conv), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
