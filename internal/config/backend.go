// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/council-tui/internal/util"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a flat string key-value store. The settings Store composes two
// of these: one durable, one session-scoped.
type Backend interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores the value for key, creating or overwriting.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Clear removes all keys.
	Clear() error
}

// =============================================================================
// FILE BACKEND (DURABLE TIER)
// =============================================================================

// ConfigDir returns the council-tui configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".council"), nil
}

// SettingsPath returns the path to the durable settings file.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

// ensureSecurePermissions checks and fixes permissions on the settings file.
// SECURITY: The file holds the API key and must be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// fileBackend persists settings as a flat TOML table. Every Set/Delete
// rewrites the whole file atomically; the file is small enough that this
// costs nothing and it keeps partial writes impossible.
type fileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend creates a durable backend at path. The file is created
// lazily on first write; a missing file reads as empty.
func NewFileBackend(path string) Backend {
	return &fileBackend{path: path}
}

// NewDefaultFileBackend creates a durable backend at the standard settings
// path under ~/.council.
func NewDefaultFileBackend() (Backend, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	return NewFileBackend(path), nil
}

func (b *fileBackend) load() (map[string]string, error) {
	values := map[string]string{}

	if _, err := os.Stat(b.path); err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}

	if err := ensureSecurePermissions(b.path); err != nil {
		return nil, err
	}

	if _, err := toml.DecodeFile(b.path, &values); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return values, nil
}

func (b *fileBackend) save(values map[string]string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(values); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := util.AtomicWriteFile(b.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

func (b *fileBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (b *fileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.load()
	if err != nil {
		return err
	}
	values[key] = value
	return b.save(values)
}

func (b *fileBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return b.save(values)
}

func (b *fileBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := os.Remove(b.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove settings file: %w", err)
	}
	return nil
}

// =============================================================================
// MEMORY BACKEND (SESSION TIER)
// =============================================================================

// memoryBackend holds settings for the lifetime of the process only.
type memoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryBackend creates a session-scoped backend.
func NewMemoryBackend() Backend {
	return &memoryBackend{values: map[string]string{}}
}

func (b *memoryBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *memoryBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

func (b *memoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

func (b *memoryBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = map[string]string{}
	return nil
}
