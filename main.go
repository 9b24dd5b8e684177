// council TUI - a terminal client for multi-model deliberation.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/council-tui/internal/api"
	"github.com/jeranaias/council-tui/internal/config"
	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/storage"
	"github.com/jeranaias/council-tui/internal/ui/chat"
	"github.com/jeranaias/council-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	baseURL := flag.String("base-url", defaultBaseURL(), "council backend base URL")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("council-tui %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	// The terminal owns stdout; log to a file instead.
	closeLog := setupLogging()
	defer closeLog()

	store, err := config.NewStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open settings: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(*baseURL, func() string {
		secret, err := store.Secret()
		if err != nil {
			log.Printf("main: secret read failed: %v", err)
			return ""
		}
		return secret
	})

	ctrl := council.NewController(client, store)

	// Local mirror is best effort; the client runs without it.
	if path, err := storage.DefaultPath(); err == nil {
		if mirror, err := storage.Open(path); err == nil {
			defer mirror.Close()
			ctrl.SetMirror(mirror)
		} else {
			log.Printf("main: mirror unavailable: %v", err)
		}
	}

	// Watch the settings file so external edits take effect live.
	var reload <-chan struct{}
	if path, err := config.SettingsPath(); err == nil {
		if watcher, err := config.NewWatcher(path); err == nil {
			defer watcher.Close()
			reload = watcher.Events()
		} else {
			log.Printf("main: settings watcher unavailable: %v", err)
		}
	}

	model := chat.New(ctrl, store, styles.NewTheme(), reload)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// defaultBaseURL prefers the environment override over the built-in
// localhost default.
func defaultBaseURL() string {
	if v := os.Getenv(config.EnvBaseURL); v != "" {
		return v
	}
	return api.DefaultBaseURL
}

// setupLogging routes the stdlib logger to ~/.council/council.log and
// returns a cleanup func.
func setupLogging() func() {
	dir, err := config.ConfigDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(dir, "council.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return func() { _ = f.Close() }
}
