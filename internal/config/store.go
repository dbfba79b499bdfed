// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// command is a serialized mutation request. The control goroutine in Run
// applies commands one at a time, so concurrent Update/DeleteKey calls
// never interleave a read-modify-write against the on-disk file.
type command struct {
	mutate func(*AppConfig)
	done   chan error
}

// Store is the single owner of AppConfig. Reads (Current) are lock-free via
// an atomic snapshot pointer; writes (Update, DeleteKey) are serialized
// through a command channel consumed by a single goroutine, matching a
// "read by many, written by few" resource model.
type Store struct {
	path string
	log  logrus.FieldLogger

	current atomic.Pointer[AppConfig]
	cmds    chan command
	done    chan struct{}
}

// New constructs a Store and loads the persisted record from path, if any.
// A missing, unreadable or corrupt file is a config error: Store
// starts with an empty config rather than failing construction.
func New(path string, log logrus.FieldLogger) *Store {
	s := &Store{
		path: path,
		log:  log,
		cmds: make(chan command),
		done: make(chan struct{}),
	}
	cfg := s.load()
	s.current.Store(&cfg)
	return s
}

func (s *Store) load() AppConfig {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("config: could not read config file, starting empty")
		}
		return AppConfig{}
	}

	var rec persistedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.WithError(err).Warn("config: corrupt config file, starting empty")
		return AppConfig{}
	}

	key, err := decryptAPIKey(rec.EncryptedAPIKey)
	if err != nil {
		s.log.WithError(err).Warn("config: could not decrypt stored key, starting empty")
		return AppConfig{EngineerEnabled: rec.EngineerEnabled}
	}

	return AppConfig{APIKey: key, EngineerEnabled: rec.EngineerEnabled}
}

func (s *Store) persist(cfg AppConfig) error {
	encrypted, err := encryptAPIKey(cfg.APIKey)
	if err != nil {
		return err
	}
	rec := persistedRecord{EncryptedAPIKey: encrypted, EngineerEnabled: cfg.EngineerEnabled}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal record: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("config: create config dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("config: write config file: %w", err)
	}
	return nil
}

// Run drives the control goroutine until Close is called. It must be
// started before any Update/DeleteKey call; Current works without Run.
func (s *Store) Run() {
	for {
		select {
		case cmd := <-s.cmds:
			cfg := *s.current.Load()
			cmd.mutate(&cfg)
			err := s.persist(cfg)
			if err == nil {
				s.current.Store(&cfg)
			} else {
				s.log.WithError(err).Error("config: failed to persist config")
			}
			cmd.done <- err
		case <-s.done:
			return
		}
	}
}

// Close stops the control goroutine.
func (s *Store) Close() {
	close(s.done)
}

// Current returns the live config. The returned value is a snapshot; it
// does not change even if a concurrent Update lands a moment later.
func (s *Store) Current() AppConfig {
	return *s.current.Load()
}

func (s *Store) apply(mutate func(*AppConfig)) error {
	cmd := command{mutate: mutate, done: make(chan error, 1)}
	s.cmds <- cmd
	return <-cmd.done
}

// Update sets the API key and the engineer-enabled flag, persisting the
// result. An empty apiKey leaves the existing key untouched; use DeleteKey
// to clear it.
func (s *Store) Update(apiKey string, engineerEnabled bool) error {
	return s.apply(func(cfg *AppConfig) {
		if apiKey != "" {
			cfg.APIKey = apiKey
		}
		cfg.EngineerEnabled = engineerEnabled
	})
}

// SetEngineerEnabled flips the engineer-enabled flag without touching the
// key.
func (s *Store) SetEngineerEnabled(enabled bool) error {
	return s.apply(func(cfg *AppConfig) { cfg.EngineerEnabled = enabled })
}

// DeleteKey clears the stored API key, persisting the result.
func (s *Store) DeleteKey() error {
	return s.apply(func(cfg *AppConfig) { cfg.APIKey = "" })
}

// ApplyEnvOverride overwrites the in-memory key from an environment
// variable (GEMINI_API_KEY) without touching the persisted record.
func (s *Store) ApplyEnvOverride(apiKey string) {
	if apiKey == "" {
		return
	}
	cfg := s.Current()
	cfg.APIKey = apiKey
	s.current.Store(&cfg)
	s.log.Info("config: API key overridden from environment")
}
