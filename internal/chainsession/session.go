// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chainsession persists small pieces of interactive state across
// runs of the repl subcommand: the last process name and selected module
// name. NextOutputPath also picks auto-incrementing output filenames by
// checking which numbered files already exist; no counter is stored.
//
// Grounded on the original tool's main.cpp, which stashes these same two
// values (last attached process, g_selected_module) in files under a
// hardcoded /sdcard path so its interactive cmd_parser menu doesn't make
// the user retype them on every launch; here the same convenience is
// kept but the storage moves to a standard XDG config directory, since
// this is a CLI tool rather than an Android app (see SPEC_FULL.md §6.4).
package chainsession

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainscan/chainscan/internal/chainerr"
)

// State is the persisted repl session: the last process the user
// attached to and the module name they restricted scans to, if any.
type State struct {
	ProcessName    string `json:"process_name,omitempty"`
	SelectedModule string `json:"selected_module,omitempty"`
}

const fileName = "session.json"

// Dir returns the directory session state is stored under:
// $XDG_CONFIG_HOME/chainscan, falling back to $HOME/.config/chainscan.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chainscan"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("chainsession: locate home directory: %w: %w", chainerr.ErrIO, err)
	}
	return filepath.Join(home, ".config", "chainscan"), nil
}

// Load reads the persisted session, returning a zero-value State (not an
// error) if none has been saved yet.
func Load() (State, error) {
	dir, err := Dir()
	if err != nil {
		return State{}, err
	}
	b, err := os.ReadFile(filepath.Join(dir, fileName))
	if os.IsNotExist(err) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("chainsession: read session: %w: %w", chainerr.ErrIO, err)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("chainsession: %w: corrupt session file: %v", chainerr.ErrMalformed, err)
	}
	return s, nil
}

// Save persists s, creating the config directory if needed.
func Save(s State) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("chainsession: create %s: %w: %w", dir, chainerr.ErrIO, err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("chainsession: encode session: %w", err)
	}
	path := filepath.Join(dir, fileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chainsession: write %s: %w: %w", path, chainerr.ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chainsession: rename into place %s: %w: %w", path, chainerr.ErrIO, err)
	}
	return nil
}

// NextOutputPath returns the next unused "prefix_N.ext" path in dir,
// starting at 1 — the original's output-filename auto-increment so
// repeated scans from the repl don't clobber each other.
func NextOutputPath(dir, prefix, ext string) (string, error) {
	for n := 1; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d%s", prefix, n, ext))
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("chainsession: stat %s: %w: %w", path, chainerr.ErrIO, err)
		}
	}
}
