// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jeranaias/council-tui/internal/catalog"
)

// =============================================================================
// SETTINGS KEYS
// =============================================================================

const (
	keyAPIKey           = "api_key"
	keyCouncilModels    = "council_models"
	keyChairmanModel    = "chairman_model"
	keySessionOnly      = "session_only"
	keyModelsCustomized = "models_customized"
)

// EnvAPIKey overrides the stored API key when set. It is read-only: the
// store never writes it back to either tier.
const EnvAPIKey = "COUNCIL_API_KEY"

// EnvBaseURL overrides the backend base URL when set.
const EnvBaseURL = "COUNCIL_BASE_URL"

// =============================================================================
// STORE
// =============================================================================

// Store is the two-tier settings store. Model selection and boolean flags
// always live in the durable tier; the API key lives in exactly one tier,
// picked by the session-only toggle.
//
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	durable Backend
	session Backend

	// envSecret is the COUNCIL_API_KEY override captured at construction.
	envSecret string
}

// NewStore builds a Store over the standard durable file backend and a
// fresh in-memory session tier.
func NewStore() (*Store, error) {
	durable, err := NewDefaultFileBackend()
	if err != nil {
		return nil, err
	}
	return NewStoreWith(durable, NewMemoryBackend()), nil
}

// NewStoreWith builds a Store over explicit backends. Used directly in tests.
func NewStoreWith(durable, session Backend) *Store {
	return &Store{
		durable:   durable,
		session:   session,
		envSecret: os.Getenv(EnvAPIKey),
	}
}

// secretTier returns the backend that currently owns the API key.
// Caller must hold mu.
func (s *Store) secretTier() (Backend, error) {
	only, err := s.flag(keySessionOnly)
	if err != nil {
		return nil, err
	}
	if only {
		return s.session, nil
	}
	return s.durable, nil
}

// flag reads a boolean key from the durable tier. Absent reads as false.
// Caller must hold mu.
func (s *Store) flag(key string) (bool, error) {
	v, ok, err := s.durable.Get(key)
	if err != nil {
		return false, err
	}
	return ok && v == "true", nil
}

func (s *Store) setFlag(key string, v bool) error {
	if v {
		return s.durable.Set(key, "true")
	}
	return s.durable.Delete(key)
}

// =============================================================================
// SECRET
// =============================================================================

// Secret returns the API key, or "" when none is stored. The COUNCIL_API_KEY
// environment variable takes precedence over both tiers.
func (s *Store) Secret() (string, error) {
	if s.envSecret != "" {
		return s.envSecret, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tier, err := s.secretTier()
	if err != nil {
		return "", err
	}
	v, _, err := tier.Get(keyAPIKey)
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	return v, nil
}

// SetSecret stores the API key in the tier selected by the session-only
// toggle. An empty value deletes the key from both tiers.
func (s *Store) SetSecret(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		if err := s.durable.Delete(keyAPIKey); err != nil {
			return err
		}
		return s.session.Delete(keyAPIKey)
	}

	tier, err := s.secretTier()
	if err != nil {
		return err
	}
	if err := tier.Set(keyAPIKey, value); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}

	// The key must never exist in the other tier at the same time.
	other := s.durable
	if tier == s.durable {
		other = s.session
	}
	return other.Delete(keyAPIKey)
}

// SessionOnly reports whether the API key is confined to the session tier.
func (s *Store) SessionOnly() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flag(keySessionOnly)
}

// SetSessionOnly toggles session-only key storage, migrating any stored key
// to the newly selected tier. Setting the current value is a no-op.
func (s *Store) SetSessionOnly(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.flag(keySessionOnly)
	if err != nil {
		return err
	}
	if current == v {
		return nil
	}

	from, to := s.durable, s.session
	if !v {
		from, to = s.session, s.durable
	}

	secret, ok, err := from.Get(keyAPIKey)
	if err != nil {
		return fmt.Errorf("failed to read api key for migration: %w", err)
	}
	if ok {
		if err := to.Set(keyAPIKey, secret); err != nil {
			return fmt.Errorf("failed to migrate api key: %w", err)
		}
		if err := from.Delete(keyAPIKey); err != nil {
			return fmt.Errorf("failed to remove api key from old tier: %w", err)
		}
	}

	// The flag itself is always durable so the choice survives restarts.
	return s.setFlag(keySessionOnly, v)
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

// CouncilModels returns the stored council membership, or nil when none is
// stored (meaning: follow server defaults).
func (s *Store) CouncilModels() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok, err := s.durable.Get(keyCouncilModels)
	if err != nil || !ok {
		return nil, err
	}

	var models []string
	if err := json.Unmarshal([]byte(v), &models); err != nil {
		return nil, fmt.Errorf("corrupt council_models value: %w", err)
	}
	return models, nil
}

// SetCouncilModels stores the council membership. A nil or empty slice
// clears the stored value.
func (s *Store) SetCouncilModels(models []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCouncilModelsLocked(models)
}

func (s *Store) setCouncilModelsLocked(models []string) error {
	if len(models) == 0 {
		return s.durable.Delete(keyCouncilModels)
	}
	data, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("failed to encode council models: %w", err)
	}
	return s.durable.Set(keyCouncilModels, string(data))
}

// ChairmanModel returns the stored chairman model ID, or "" when none is
// stored.
func (s *Store) ChairmanModel() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _, err := s.durable.Get(keyChairmanModel)
	return v, err
}

// SetChairmanModel stores the chairman model ID. Empty clears it.
func (s *Store) SetChairmanModel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setChairmanModelLocked(id)
}

func (s *Store) setChairmanModelLocked(id string) error {
	if id == "" {
		return s.durable.Delete(keyChairmanModel)
	}
	return s.durable.Set(keyChairmanModel, id)
}

// ModelsCustomized reports whether the user has diverged from server
// defaults. While false, SyncDefaults keeps local selection tracking the
// server.
func (s *Store) ModelsCustomized() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flag(keyModelsCustomized)
}

// SetModelsCustomized marks (or unmarks) the selection as user-customized.
func (s *Store) SetModelsCustomized(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFlag(keyModelsCustomized, v)
}

// SyncDefaults reconciles stored model selection with fresh server defaults.
// When the user has customized their selection this is a no-op; otherwise
// the stored selection is overwritten with the defaults (or cleared when the
// defaults are empty). Called on every catalog refresh.
func (s *Store) SyncDefaults(defaults catalog.Defaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customized, err := s.flag(keyModelsCustomized)
	if err != nil {
		return err
	}
	if customized {
		return nil
	}
	return s.applyDefaultsLocked(defaults)
}

// ResetModelCustomization discards user customization and re-applies server
// defaults unconditionally.
func (s *Store) ResetModelCustomization(defaults catalog.Defaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setFlag(keyModelsCustomized, false); err != nil {
		return err
	}
	return s.applyDefaultsLocked(defaults)
}

func (s *Store) applyDefaultsLocked(defaults catalog.Defaults) error {
	if err := s.setCouncilModelsLocked(defaults.Council); err != nil {
		return err
	}
	return s.setChairmanModelLocked(defaults.Chairman)
}

// =============================================================================
// CLEAR
// =============================================================================

// ClearAll removes every stored setting from both tiers, including the API
// key. The environment override, if set, still applies afterwards.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.Clear(); err != nil {
		return err
	}
	return s.durable.Clear()
}
