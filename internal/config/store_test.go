// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/council-tui/internal/catalog"
)

func newTestStore(t *testing.T) (*Store, Backend, Backend) {
	t.Helper()
	durable := NewFileBackend(filepath.Join(t.TempDir(), "settings.toml"))
	session := NewMemoryBackend()
	s := NewStoreWith(durable, session)
	s.envSecret = "" // isolate from the developer's environment
	return s, durable, session
}

func mustGet(t *testing.T, b Backend, key string) (string, bool) {
	t.Helper()
	v, ok, err := b.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return v, ok
}

func TestSecretRoundTrip(t *testing.T) {
	s, durable, session := newTestStore(t)

	if err := s.SetSecret("sk-or-test"); err != nil {
		t.Fatalf("SetSecret failed: %v", err)
	}

	got, err := s.Secret()
	if err != nil || got != "sk-or-test" {
		t.Fatalf("Secret = %q, %v", got, err)
	}

	// Default tier is durable; the session tier must not hold it.
	if _, ok := mustGet(t, durable, "api_key"); !ok {
		t.Error("expected key in durable tier")
	}
	if _, ok := mustGet(t, session, "api_key"); ok {
		t.Error("key must not exist in session tier")
	}
}

func TestSetSecret_EmptyDeletesBothTiers(t *testing.T) {
	s, durable, session := newTestStore(t)

	if err := s.SetSecret("sk-or-test"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSecret(""); err != nil {
		t.Fatal(err)
	}

	if _, ok := mustGet(t, durable, "api_key"); ok {
		t.Error("key still in durable tier after clearing")
	}
	if _, ok := mustGet(t, session, "api_key"); ok {
		t.Error("key still in session tier after clearing")
	}
}

func TestSessionOnlyMigration(t *testing.T) {
	s, durable, session := newTestStore(t)

	if err := s.SetSecret("sk-or-test"); err != nil {
		t.Fatal(err)
	}

	// Durable -> session.
	if err := s.SetSessionOnly(true); err != nil {
		t.Fatalf("SetSessionOnly(true) failed: %v", err)
	}
	if got, _ := s.Secret(); got != "sk-or-test" {
		t.Errorf("secret lost during migration: %q", got)
	}
	if _, ok := mustGet(t, durable, "api_key"); ok {
		t.Error("key must leave durable tier when session-only")
	}
	if _, ok := mustGet(t, session, "api_key"); !ok {
		t.Error("key missing from session tier after migration")
	}

	// The toggle itself survives in the durable tier.
	if v, ok := mustGet(t, durable, "session_only"); !ok || v != "true" {
		t.Errorf("session_only flag = %q, %v", v, ok)
	}

	// Session -> durable round trip.
	if err := s.SetSessionOnly(false); err != nil {
		t.Fatalf("SetSessionOnly(false) failed: %v", err)
	}
	if got, _ := s.Secret(); got != "sk-or-test" {
		t.Errorf("secret lost during reverse migration: %q", got)
	}
	if _, ok := mustGet(t, session, "api_key"); ok {
		t.Error("key must leave session tier when durable again")
	}
}

func TestSetSessionOnly_Idempotent(t *testing.T) {
	s, _, _ := newTestStore(t)

	if err := s.SetSecret("sk-or-test"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSessionOnly(false); err != nil {
		t.Fatalf("no-op toggle failed: %v", err)
	}
	if got, _ := s.Secret(); got != "sk-or-test" {
		t.Errorf("secret changed by no-op toggle: %q", got)
	}
}

func TestEnvSecretOverride(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.envSecret = "sk-env"

	if err := s.SetSecret("sk-stored"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Secret(); got != "sk-env" {
		t.Errorf("Secret = %q, want env override", got)
	}
}

func TestCouncilModelsRoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)

	models := []string{"openai/gpt-5.1", "google/gemini-3-pro"}
	if err := s.SetCouncilModels(models); err != nil {
		t.Fatal(err)
	}

	got, err := s.CouncilModels()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != models[0] || got[1] != models[1] {
		t.Errorf("CouncilModels = %v", got)
	}

	// Empty clears.
	if err := s.SetCouncilModels(nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.CouncilModels(); got != nil {
		t.Errorf("expected nil after clear, got %v", got)
	}
}

func TestSyncDefaults(t *testing.T) {
	defaults := catalog.Defaults{
		Council:  []string{"a/one", "b/two"},
		Chairman: "c/chair",
	}

	t.Run("not customized follows server", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		if err := s.SetCouncilModels([]string{"old/model"}); err != nil {
			t.Fatal(err)
		}

		if err := s.SyncDefaults(defaults); err != nil {
			t.Fatal(err)
		}

		got, _ := s.CouncilModels()
		if len(got) != 2 || got[0] != "a/one" {
			t.Errorf("council not overwritten: %v", got)
		}
		if ch, _ := s.ChairmanModel(); ch != "c/chair" {
			t.Errorf("chairman = %q", ch)
		}
	})

	t.Run("customized selection untouched", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		if err := s.SetCouncilModels([]string{"mine/model"}); err != nil {
			t.Fatal(err)
		}
		if err := s.SetModelsCustomized(true); err != nil {
			t.Fatal(err)
		}

		if err := s.SyncDefaults(defaults); err != nil {
			t.Fatal(err)
		}

		got, _ := s.CouncilModels()
		if len(got) != 1 || got[0] != "mine/model" {
			t.Errorf("customized council was overwritten: %v", got)
		}
	})

	t.Run("empty defaults clear selection", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		if err := s.SetCouncilModels([]string{"old/model"}); err != nil {
			t.Fatal(err)
		}

		if err := s.SyncDefaults(catalog.Defaults{}); err != nil {
			t.Fatal(err)
		}
		if got, _ := s.CouncilModels(); got != nil {
			t.Errorf("expected cleared council, got %v", got)
		}
	})
}

func TestResetModelCustomization(t *testing.T) {
	s, _, _ := newTestStore(t)

	if err := s.SetCouncilModels([]string{"mine/model"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetModelsCustomized(true); err != nil {
		t.Fatal(err)
	}

	defaults := catalog.Defaults{Council: []string{"a/one", "b/two"}, Chairman: "c/chair"}
	if err := s.ResetModelCustomization(defaults); err != nil {
		t.Fatal(err)
	}

	if customized, _ := s.ModelsCustomized(); customized {
		t.Error("customized flag still set after reset")
	}
	got, _ := s.CouncilModels()
	if len(got) != 2 || got[0] != "a/one" {
		t.Errorf("defaults not applied: %v", got)
	}
}

func TestClearAll(t *testing.T) {
	s, durable, session := newTestStore(t)

	if err := s.SetSecret("sk-or-test"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCouncilModels([]string{"a/one"}); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}

	if got, _ := s.Secret(); got != "" {
		t.Errorf("secret survives ClearAll: %q", got)
	}
	if _, ok := mustGet(t, durable, "council_models"); ok {
		t.Error("durable tier not cleared")
	}
	if _, ok := mustGet(t, session, "api_key"); ok {
		t.Error("session tier not cleared")
	}
}

func TestFileBackendPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	b := NewFileBackend(path)

	if err := b.Set("api_key", "sk-or-test"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("settings file permissions = %o, want 0600", info.Mode().Perm())
	}
}

func TestFileBackendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	b1 := NewFileBackend(path)
	if err := b1.Set("chairman_model", "c/chair"); err != nil {
		t.Fatal(err)
	}

	b2 := NewFileBackend(path)
	v, ok := mustGet(t, b2, "chairman_model")
	if !ok || v != "c/chair" {
		t.Errorf("reopened backend Get = %q, %v", v, ok)
	}
}
