// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package solver manages the manual research loop for one problem: timestamped
// run directories under solver/runs, planner prompts and pasted responses,
// plan validation and ingest, and the promoted best plan under solver/best.
package solver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/erdoslab/erdoslab/pkg/validation"
)

const (
	// DefaultMaxPlans caps how many plans a planner response may carry.
	DefaultMaxPlans = 8
	// DefaultMaxLiterature caps candidates rendered into the planner prompt.
	DefaultMaxLiterature = 8

	// ResponsePlaceholder seeds planner_response.md; a run whose response
	// still starts with it counts as untouched.
	ResponsePlaceholder = "# Paste model output below\n\n"

	notesPlaceholder = "# Notes\n\n"
	latestFileName   = "latest.json"
)

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// RunIDNow returns a fresh UTC timestamp run id.
func RunIDNow() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

// RunsDir returns the runs directory for a problem.
func RunsDir(problemDir string) string {
	return filepath.Join(problemDir, "solver", "runs")
}

// BestDir returns the promoted-plan directory for a problem.
func BestDir(problemDir string) string {
	return filepath.Join(problemDir, "solver", "best")
}

type latestPointer struct {
	RunID     string `json:"run_id"`
	UpdatedAt string `json:"updated_at"`
}

// ResolveLatestRun reads the latest.json pointer. The second return is false
// when no valid pointer exists.
func ResolveLatestRun(runsDir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(runsDir, latestFileName))
	if err != nil {
		return "", false
	}
	var pointer latestPointer
	if err := json.Unmarshal(data, &pointer); err != nil || pointer.RunID == "" {
		return "", false
	}
	return pointer.RunID, true
}

// WriteLatest repoints latest.json at runID.
func WriteLatest(runsDir, runID string) error {
	pointer := latestPointer{RunID: runID, UpdatedAt: nowISO()}
	return writeJSON(filepath.Join(runsDir, latestFileName), pointer)
}

// ResolveRunDir maps a run id (or "latest") to an existing run directory.
func ResolveRunDir(problemDir, runID string) (string, error) {
	runsDir := RunsDir(problemDir)
	if runID == "" || runID == "latest" {
		latest, ok := ResolveLatestRun(runsDir)
		if !ok {
			return "", fmt.Errorf("latest run not found under %s", runsDir)
		}
		runID = latest
	} else if err := validation.ValidateRunID(runID); err != nil {
		return "", err
	}
	runDir := filepath.Join(runsDir, runID)
	info, err := os.Stat(runDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("run directory not found: %s", runDir)
	}
	return runDir, nil
}

// RunUsed reports whether a run already holds pasted planner output or
// ingested plans. Untouched runs are reused instead of piling up.
func RunUsed(runDir string) bool {
	data, err := os.ReadFile(filepath.Join(runDir, "planner_response.md"))
	if err == nil {
		content := strings.TrimSpace(string(data))
		if content != "" && !strings.HasPrefix(content, strings.TrimSpace(ResponsePlaceholder)) {
			return true
		}
	}
	plans, err := filepath.Glob(filepath.Join(runDir, "plans", "*.json"))
	return err == nil && len(plans) > 0
}

// EnsureRun returns a run directory ready for planner output: the latest run
// if it is still untouched and forceNew is unset, otherwise a newly created
// one with placeholder files seeded and latest.json repointed.
func EnsureRun(problemDir string, forceNew bool) (string, error) {
	runsDir := RunsDir(problemDir)
	if err := os.MkdirAll(runsDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create runs dir: %w", err)
	}
	if latest, ok := ResolveLatestRun(runsDir); ok && !forceNew {
		candidate := filepath.Join(runsDir, latest)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() && !RunUsed(candidate) {
			slog.Debug("Reusing untouched run", "run_id", latest)
			return candidate, nil
		}
	}

	runID := RunIDNow()
	runDir := filepath.Join(runsDir, runID)
	for _, sub := range []string{"plans", "experiments", "lean", "verification"} {
		if err := os.MkdirAll(filepath.Join(runDir, sub), 0o750); err != nil {
			return "", fmt.Errorf("failed to create run dir: %w", err)
		}
	}
	seeds := []struct{ path, content string }{
		{filepath.Join(runDir, "planner_response.md"), ResponsePlaceholder},
		{filepath.Join(runDir, "notes.md"), notesPlaceholder},
		{filepath.Join(runDir, "verification", "checklist.md"), defaultChecklist()},
	}
	for _, seed := range seeds {
		if _, err := os.Stat(seed.path); os.IsNotExist(err) {
			if err := os.WriteFile(seed.path, []byte(seed.content), 0o644); err != nil {
				return "", fmt.Errorf("failed to seed %s: %w", seed.path, err)
			}
		}
	}
	if err := WriteLatest(runsDir, runID); err != nil {
		return "", err
	}
	slog.Info("Created solver run", "run_id", runID)
	return runDir, nil
}

func defaultChecklist() string {
	return "# Verification Checklist\n" +
		"\n- [ ] Statement matches frozen_v1.\n" +
		"- [ ] No unverified claims labeled as solved.\n" +
		"- [ ] Experiments are reproducible.\n" +
		"- [ ] Lean attempts compile or are clearly marked as WIP.\n"
}

// EnsureBestDir seeds solver/best with placeholder plan, summary and next
// actions so downstream tooling always finds the files.
func EnsureBestDir(problemDir string) error {
	bestDir := BestDir(problemDir)
	if err := os.MkdirAll(bestDir, 0o750); err != nil {
		return fmt.Errorf("failed to create best dir: %w", err)
	}
	planPath := filepath.Join(bestDir, "plan.json")
	if _, err := os.Stat(planPath); os.IsNotExist(err) {
		if err := writeJSON(planPath, map[string]string{"status": "empty"}); err != nil {
			return err
		}
	}
	seeds := []struct{ path, content string }{
		{filepath.Join(bestDir, "summary.md"), "# Solver Summary\n\nNo verified plan yet.\n"},
		{filepath.Join(bestDir, "next_actions.md"), "# Next Actions\n\n- TODO: select a plan.\n"},
	}
	for _, seed := range seeds {
		if _, err := os.Stat(seed.path); os.IsNotExist(err) {
			if err := os.WriteFile(seed.path, []byte(seed.content), 0o644); err != nil {
				return fmt.Errorf("failed to seed %s: %w", seed.path, err)
			}
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
