// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists checker run verdicts in an embedded BadgerDB
// under .erdoslab/state. Because the checker is deterministic, two runs
// over the same tree digest must agree; the history makes that property
// visible (`erdoslab check --history`).
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const runKeyPrefix = "run:"

// Record is one stored checker run.
type Record struct {
	RunAt      time.Time `json:"run_at"`
	TreeDigest string    `json:"tree_digest"`
	Problems   int       `json:"problems_checked"`
	Findings   int       `json:"findings"`
	Pass       bool      `json:"pass"`
}

// Store wraps the database. Safe for concurrent use; callers must Close.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the history database in dir. BadgerDB's own
// logging is routed through slog when a logger is given, disabled
// otherwise.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history store path is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create history directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// key layout: run:<RFC3339Nano timestamp>. Monotonic per machine; Badger
// iterates keys in lexical order, which for this layout is time order.
func runKey(at time.Time) []byte {
	return []byte(runKeyPrefix + at.UTC().Format(time.RFC3339Nano))
}

// Append stores one run verdict.
func (s *Store) Append(rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(rec.RunAt), value)
	})
	if err != nil {
		return fmt.Errorf("store history record: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first, up to limit
// (limit <= 0 means all).
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek past the last possible key.
		seek := []byte(runKeyPrefix + "\xff")
		for it.Seek(seek); it.ValidForPrefix([]byte(runKeyPrefix)); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var rec Record
				if err := json.Unmarshal(value, &rec); err != nil {
					return fmt.Errorf("decode history record: %w", err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// LastForDigest returns the most recent run recorded for a tree digest,
// if any. Used to report "unchanged tree, same verdict" on repeat runs.
func (s *Store) LastForDigest(digest string) (*Record, bool, error) {
	records, err := s.List(0)
	if err != nil {
		return nil, false, err
	}
	for i := range records {
		if records[i].TreeDigest == digest {
			return &records[i], true, nil
		}
	}
	return nil, false, nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
