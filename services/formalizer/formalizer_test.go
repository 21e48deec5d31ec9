// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package formalizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdoslab/erdoslab/services/problems"
	"github.com/erdoslab/erdoslab/services/solver"
)

func newRun(t *testing.T) (string, string, string) {
	t.Helper()
	root := t.TempDir()
	repo, err := problems.NewRepository(root)
	require.NoError(t, err)
	problemDir, err := repo.Scaffold("P0042", "Distinct prime divisors")
	require.NoError(t, err)
	runDir, err := solver.EnsureRun(problemDir, false)
	require.NoError(t, err)
	return root, problemDir, runDir
}

func TestScaffoldSeedsLeanWorkspace(t *testing.T) {
	_, problemDir, runDir := newRun(t)

	responsePath, err := Scaffold(problemDir, "P0042", runDir, []string{"gpt-5.2-pro"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(runDir, "lean", "formalizer_response.lean"), responsePath)

	response, err := os.ReadFile(responsePath)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderLean, string(response))

	prompt, err := os.ReadFile(filepath.Join(runDir, "lean", "formalizer_prompt.md"))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "problem_id: P0042")
	assert.Contains(t, string(prompt), "do NOT use sorry/admit/axiom/unsafe")
	assert.NotContains(t, string(prompt), "Suggested lemmata", "no best plan promoted yet")

	_, err = os.Stat(filepath.Join(runDir, "lean", "attempts", "README.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(runDir, "llm", "formalizer", "gpt_5_2_pro_response.lean"))
	assert.NoError(t, err)
}

func TestScaffoldUsesBestPlanLemmas(t *testing.T) {
	_, problemDir, runDir := newRun(t)

	bestDir := solver.BestDir(problemDir)
	require.NoError(t, os.MkdirAll(bestDir, 0o750))
	plan := `{
  "strategy_name": "Literature-first mapping",
  "key_lemmas": [
    {"statement": "Identify a known bound on divisor counts."},
    {"statement": "   "}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(bestDir, "plan.json"), []byte(plan), 0o644))

	_, err := Scaffold(problemDir, "P0042", runDir, nil)
	require.NoError(t, err)

	prompt, err := os.ReadFile(filepath.Join(runDir, "lean", "formalizer_prompt.md"))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "Suggested lemmata (from solver/best):")
	assert.Contains(t, string(prompt), "- Identify a known bound on divisor counts.")
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(PlaceholderLean))
	assert.True(t, IsPlaceholder("\n\n-- Paste Lean code below (no sorry/admit/axiom/unsafe)"))
	assert.False(t, IsPlaceholder("import Mathlib\n\ntheorem t : True := trivial\n"))
	assert.False(t, IsPlaceholder(""))
}

func TestAttemptLifecycle(t *testing.T) {
	_, _, runDir := newRun(t)
	attemptsDir, err := EnsureAttemptsDir(runDir)
	require.NoError(t, err)

	assert.Empty(t, AttemptIndices(attemptsDir))
	assert.Equal(t, 1, NextAttemptIndex(attemptsDir))

	first, err := CreateAttempt(attemptsDir, 1, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(attemptsDir, "attempt_001.lean"), first)
	content, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderLean, string(content))

	// Base text with real content seeds the next attempt.
	second, err := CreateAttempt(attemptsDir, 2, "import Mathlib\n\ntheorem t : True := trivial\n")
	require.NoError(t, err)
	content, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(content), "theorem t")

	assert.Equal(t, []int{1, 2}, AttemptIndices(attemptsDir))
	assert.Equal(t, 3, NextAttemptIndex(attemptsDir))

	// An existing attempt is never overwritten.
	again, err := CreateAttempt(attemptsDir, 2, "different")
	require.NoError(t, err)
	assert.Equal(t, second, again)
	content, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(content), "theorem t")
}

func TestResolveAttempt(t *testing.T) {
	_, _, runDir := newRun(t)

	// "latest" bootstraps the first attempt.
	path, err := ResolveAttempt(runDir, "latest")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(AttemptsDir(runDir), "attempt_001.lean"), path)

	path, err = ResolveAttempt(runDir, "1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(AttemptsDir(runDir), "attempt_001.lean"), path)

	_, err = ResolveAttempt(runDir, "7")
	assert.ErrorContains(t, err, "attempt not found")

	_, err = ResolveAttempt(runDir, "banana")
	assert.ErrorContains(t, err, "must be a number or 'latest'")
}

func withStubLake(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	stub := filepath.Join(dir, "fakelake")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\n"+script), 0o755))
	saved := lakeCommand
	lakeCommand = []string{stub}
	t.Cleanup(func() { lakeCommand = saved })
}

func TestCheckPassWritesFeedback(t *testing.T) {
	root, _, runDir := newRun(t)
	withStubLake(t, "echo compiled\nexit 0\n")

	attemptsDir, err := EnsureAttemptsDir(runDir)
	require.NoError(t, err)
	target, err := CreateAttempt(attemptsDir, 1, "import Mathlib\ntheorem t : True := trivial\n")
	require.NoError(t, err)

	result, err := Check(context.Background(), root, target, runDir)
	require.NoError(t, err)
	assert.True(t, result.Passed())
	assert.Contains(t, result.Output, "compiled")

	// Attempt targets get per-attempt log and feedback files.
	assert.Equal(t, filepath.Join(attemptsDir, "attempt_001_build.log"), result.LogPath)
	feedback, err := os.ReadFile(filepath.Join(attemptsDir, "attempt_001_feedback.md"))
	require.NoError(t, err)
	assert.Contains(t, string(feedback), "- exit_code: 0")
	assert.Contains(t, string(feedback), "compiled")
}

func TestCheckFailureCapturesOutput(t *testing.T) {
	root, _, runDir := newRun(t)
	withStubLake(t, "echo 'error: unknown identifier' >&2\nexit 1\n")

	leanFile := filepath.Join(LeanDir(runDir), "formalizer_response.lean")
	require.NoError(t, os.MkdirAll(LeanDir(runDir), 0o750))
	require.NoError(t, os.WriteFile(leanFile, []byte("bad lean"), 0o644))

	result, err := Check(context.Background(), root, leanFile, runDir)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	assert.Equal(t, 1, result.ExitCode)

	// Non-attempt targets fall back to the shared lean/ log files.
	assert.Equal(t, filepath.Join(LeanDir(runDir), "formalizer_last_build.log"), result.LogPath)
	logContent, err := os.ReadFile(result.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logContent), "unknown identifier")
}

func TestCheckMissingTarget(t *testing.T) {
	root, _, runDir := newRun(t)
	_, err := Check(context.Background(), root, filepath.Join(runDir, "lean", "nope.lean"), runDir)
	assert.ErrorContains(t, err, "missing Lean file")
}
