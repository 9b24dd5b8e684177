// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/jeranaias/council-tui/internal/api"
	"github.com/jeranaias/council-tui/internal/council"
)

func testMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMirror_SaveAndListSummaries(t *testing.T) {
	m := testMirror(t)

	in := []council.Summary{
		{ID: "c2", Title: "Newer", MessageCount: 4, CreatedAt: "2026-02-01T00:00:00Z"},
		{ID: "c1", Title: "Older", MessageCount: 2, CreatedAt: "2026-01-01T00:00:00Z"},
	}
	if err := m.SaveSummaries(in); err != nil {
		t.Fatalf("SaveSummaries() error = %v", err)
	}

	got, err := m.ListSummaries()
	if err != nil {
		t.Fatalf("ListSummaries() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d summaries, want 2", len(got))
	}
	if got[0].ID != "c2" || got[1].ID != "c1" {
		t.Errorf("order = %s, %s; want newest first", got[0].ID, got[1].ID)
	}
	if got[0].Title != "Newer" || got[0].MessageCount != 4 {
		t.Errorf("summary = %+v", got[0])
	}
}

func TestMirror_SaveSummariesReplacesList(t *testing.T) {
	m := testMirror(t)

	first := []council.Summary{
		{ID: "c1", Title: "Keep", CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "c2", Title: "Drop", CreatedAt: "2026-01-02T00:00:00Z"},
	}
	if err := m.SaveSummaries(first); err != nil {
		t.Fatalf("SaveSummaries() error = %v", err)
	}

	// Backend deleted c2; the mirror must follow.
	if err := m.SaveSummaries(first[:1]); err != nil {
		t.Fatalf("SaveSummaries() error = %v", err)
	}

	got, err := m.ListSummaries()
	if err != nil {
		t.Fatalf("ListSummaries() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("summaries after replace = %+v", got)
	}
}

func TestMirror_SaveAndGetConversation(t *testing.T) {
	m := testMirror(t)

	conv := council.NewConversation("c1")
	conv.Title = "Capitals"
	user := council.NewUserMessage("what is the capital of France?")
	assistant := council.NewAssistantMessage()
	assistant.Stage1 = json.RawMessage(`[{"model":"a/one","response":"Paris"}]`)
	assistant.Stage2 = json.RawMessage(`[{"model":"a/one","ranking":"..."}]`)
	assistant.Stage3 = json.RawMessage(`{"model":"c/chair","response":"Paris."}`)
	assistant.Metadata = &api.StageMetadata{
		LabelToModel: map[string]string{"Response A": "a/one"},
	}
	conv.Messages = append(conv.Messages, user, assistant)

	if err := m.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	got, err := m.GetConversation("c1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetConversation() = nil for saved conversation")
	}
	if got.Title != "Capitals" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.MessageCount() != 2 {
		t.Fatalf("got %d messages, want 2", got.MessageCount())
	}
	if got.Messages[0].Role != council.RoleUser || got.Messages[0].Content != user.Content {
		t.Errorf("user message = %+v", got.Messages[0])
	}

	back := got.Messages[1]
	if back.Role != council.RoleAssistant {
		t.Errorf("Role = %q", back.Role)
	}
	if string(back.Stage1) != string(assistant.Stage1) {
		t.Errorf("Stage1 = %s", back.Stage1)
	}
	if string(back.Stage3) != string(assistant.Stage3) {
		t.Errorf("Stage3 = %s", back.Stage3)
	}
	if back.Metadata == nil || back.Metadata.LabelToModel["Response A"] != "a/one" {
		t.Errorf("Metadata = %+v", back.Metadata)
	}
	if back.FinalAnswer() != "Paris." {
		t.Errorf("FinalAnswer = %q", back.FinalAnswer())
	}
}

func TestMirror_SaveConversationReplacesMessages(t *testing.T) {
	m := testMirror(t)

	conv := council.NewConversation("c1")
	conv.Messages = append(conv.Messages, council.NewUserMessage("first"))
	if err := m.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	conv.Messages = []*council.Message{council.NewUserMessage("rewritten")}
	if err := m.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}

	got, err := m.GetConversation("c1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.MessageCount() != 1 || got.Messages[0].Content != "rewritten" {
		t.Errorf("messages after resave = %+v", got.Messages)
	}
}

func TestMirror_GetConversationMissing(t *testing.T) {
	m := testMirror(t)

	got, err := m.GetConversation("nope")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetConversation() = %+v, want nil", got)
	}
}

func TestMirror_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := m.SaveSummaries([]council.Summary{{ID: "c1", Title: "Kept"}}); err != nil {
		t.Fatalf("SaveSummaries() error = %v", err)
	}
	m.Close()

	m2, err := Open(path)
	if err != nil {
		t.Fatalf("Open() reopen error = %v", err)
	}
	defer m2.Close()

	got, err := m2.ListSummaries()
	if err != nil {
		t.Fatalf("ListSummaries() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Kept" {
		t.Errorf("summaries after reopen = %+v", got)
	}
}
