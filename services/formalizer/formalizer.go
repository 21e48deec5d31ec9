// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package formalizer scaffolds and validates manual Lean formalization
// attempts inside a solver run. Proof checking itself is delegated to the
// external lake toolchain.
package formalizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/erdoslab/erdoslab/services/llm"
	"github.com/erdoslab/erdoslab/services/problems"
	"github.com/erdoslab/erdoslab/services/solver"
)

// PlaceholderLean seeds every fresh Lean file. The first line doubles as the
// untouched-file marker, so the proof gate rejects it until replaced.
const PlaceholderLean = "-- Paste Lean code below (no sorry/admit/axiom/unsafe)\n\nimport Mathlib\n\n"

const attemptPrefix = "attempt_"

var attemptPattern = regexp.MustCompile(`^attempt_(\d+)\.lean$`)

// LeanDir returns the Lean workspace of a run.
func LeanDir(runDir string) string {
	return filepath.Join(runDir, "lean")
}

// AttemptsDir returns the numbered-attempts directory of a run.
func AttemptsDir(runDir string) string {
	return filepath.Join(LeanDir(runDir), "attempts")
}

// EnsureAttemptsDir creates the attempts directory with its README.
func EnsureAttemptsDir(runDir string) (string, error) {
	attemptsDir := AttemptsDir(runDir)
	if err := os.MkdirAll(attemptsDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create attempts dir: %w", err)
	}
	readmePath := filepath.Join(attemptsDir, "README.md")
	if _, err := os.Stat(readmePath); os.IsNotExist(err) {
		readme := "# Lean Attempts\n\n" +
			"Store iterative attempts as attempt_001.lean, attempt_002.lean, ...\n" +
			"Use `erdoslab formalize --attempt latest --check` to validate.\n"
		if err := os.WriteFile(readmePath, []byte(readme), 0o644); err != nil {
			return "", fmt.Errorf("failed to write attempts README: %w", err)
		}
	}
	return attemptsDir, nil
}

// AttemptIndices lists existing attempt numbers in ascending order.
func AttemptIndices(attemptsDir string) []int {
	entries, err := os.ReadDir(attemptsDir)
	if err != nil {
		return nil
	}
	var indices []int
	for _, entry := range entries {
		m := attemptPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			indices = append(indices, n)
		}
	}
	sort.Ints(indices)
	return indices
}

// NextAttemptIndex returns the index a new attempt file should use.
func NextAttemptIndex(attemptsDir string) int {
	indices := AttemptIndices(attemptsDir)
	if len(indices) == 0 {
		return 1
	}
	return indices[len(indices)-1] + 1
}

// AttemptPath returns the file path for a numbered attempt.
func AttemptPath(attemptsDir string, index int) string {
	return filepath.Join(attemptsDir, fmt.Sprintf("%s%03d.lean", attemptPrefix, index))
}

// IsPlaceholder reports whether Lean text is still the untouched seed.
func IsPlaceholder(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "-- Paste Lean code below")
}

// CreateAttempt writes a numbered attempt file seeded from baseText when
// that text carries real content, the placeholder otherwise. An existing
// file is left alone.
func CreateAttempt(attemptsDir string, index int, baseText string) (string, error) {
	path := AttemptPath(attemptsDir, index)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	content := PlaceholderLean
	if baseText != "" && !IsPlaceholder(baseText) {
		content = baseText
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write attempt: %w", err)
	}
	return path, nil
}

// ResolveAttempt maps an attempt label ("latest" or a number) to a file
// path. "latest" with no attempts yet creates attempt_001.lean; a numeric
// label must name an existing file.
func ResolveAttempt(runDir, label string) (string, error) {
	attemptsDir, err := EnsureAttemptsDir(runDir)
	if err != nil {
		return "", err
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "latest" {
		indices := AttemptIndices(attemptsDir)
		if len(indices) == 0 {
			return CreateAttempt(attemptsDir, 1, "")
		}
		return AttemptPath(attemptsDir, indices[len(indices)-1]), nil
	}
	index, err := strconv.Atoi(label)
	if err != nil || index < 1 {
		return "", fmt.Errorf("attempt must be a number or 'latest', got %q", label)
	}
	path := AttemptPath(attemptsDir, index)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("attempt not found: %s", path)
	}
	return path, nil
}

func loadBestPlan(problemDir string) map[string]any {
	data, err := os.ReadFile(filepath.Join(solver.BestDir(problemDir), "plan.json"))
	if err != nil {
		return nil
	}
	var plan map[string]any
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil
	}
	return plan
}

// BuildPrompt renders the manual formalizer prompt, folding in suggested
// lemmata from the promoted best plan when one exists.
func BuildPrompt(problemID, statementText string, bestPlan map[string]any) string {
	lines := []string{
		"# Formalizer Prompt (manual)",
		"",
		"Version: v1",
		"",
		"Goal: produce Lean code that compiles in this repo using Mathlib.",
		"Rules: do NOT use sorry/admit/axiom/unsafe. Keep everything explicit.",
		"",
		"problem_id: " + problemID,
		"",
		"Frozen statement:",
		strings.TrimSpace(statementText),
		"",
	}
	if bestPlan != nil {
		lines = append(lines, "Suggested lemmata (from solver/best):")
		lemmas, _ := bestPlan["key_lemmas"].([]any)
		listed := false
		for _, rawLemma := range lemmas {
			lemma, ok := rawLemma.(map[string]any)
			if !ok {
				continue
			}
			if statement, _ := lemma["statement"].(string); strings.TrimSpace(statement) != "" {
				lines = append(lines, "- "+strings.TrimSpace(statement))
				listed = true
			}
		}
		if !listed {
			lines = append(lines, "- (none listed)")
		}
		lines = append(lines, "")
	}
	lines = append(lines,
		"Output: Lean code only (no Markdown), starting with imports, defining the "+
			"main theorem and any helper lemmas.")
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}

// Scaffold prepares the Lean workspace of a run: attempts dir, formalizer
// prompt, response seed and per-model prompt files. Returns the response
// path checks default to.
func Scaffold(problemDir, problemID, runDir string, models []string) (string, error) {
	leanDir := LeanDir(runDir)
	if err := os.MkdirAll(leanDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create lean dir: %w", err)
	}
	if _, err := EnsureAttemptsDir(runDir); err != nil {
		return "", err
	}

	statementText := ""
	if data, err := os.ReadFile(filepath.Join(problemDir, "statement", "frozen_v1.md")); err == nil {
		statementText = problems.ExtractStatement(string(data))
	}
	prompt := BuildPrompt(problemID, statementText, loadBestPlan(problemDir))

	promptPath := filepath.Join(leanDir, "formalizer_prompt.md")
	if _, err := os.Stat(promptPath); os.IsNotExist(err) {
		if err := os.WriteFile(promptPath, []byte(prompt), 0o644); err != nil {
			return "", fmt.Errorf("failed to write formalizer prompt: %w", err)
		}
	}
	responsePath := filepath.Join(leanDir, "formalizer_response.lean")
	if _, err := os.Stat(responsePath); os.IsNotExist(err) {
		if err := os.WriteFile(responsePath, []byte(PlaceholderLean), 0o644); err != nil {
			return "", fmt.Errorf("failed to write formalizer response seed: %w", err)
		}
	}

	err := llm.WriteModelPrompts(
		filepath.Join(runDir, "llm", "formalizer"),
		prompt, ".lean", PlaceholderLean, models,
	)
	if err != nil {
		return "", err
	}
	return responsePath, nil
}
