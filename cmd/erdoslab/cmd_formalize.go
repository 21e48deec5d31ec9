// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/pkg/validation"
	"github.com/erdoslab/erdoslab/services/formalizer"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	formalizeRunID      string
	formalizeNewAttempt bool
	formalizeAttempt    string
	formalizeCheck      bool
	formalizeTarget     string
)

// checkTimeout bounds one `lake env lean` invocation. Mathlib-heavy
// files can legitimately take minutes.
const checkTimeout = 30 * time.Minute

// =============================================================================
// FORMALIZE COMMAND
// =============================================================================

// runFormalize manages the Lean workspace of a solver run: formalizer
// prompt scaffolding, numbered attempt files, and optional compilation
// through the external proof toolchain.
//
// # Exit Codes
//
//   - 0: Scaffolded (and, with --check, the file compiled)
//   - 1: --check ran and the file did not compile
//   - 2: Error
func runFormalize(cmd *cobra.Command, args []string) {
	repo, err := openRepo()
	if err != nil {
		OutputError(false, "Failed to open repository", err)
		os.Exit(CLIExitError)
	}

	ref, err := resolveProblem(repo, args[0])
	if err != nil {
		OutputError(false, "Failed to resolve problem", err)
		os.Exit(CLIExitError)
	}

	runDir, err := resolveRun(ref, formalizeRunID)
	if err != nil {
		OutputError(false, "Failed to resolve solver run", err)
		os.Exit(CLIExitError)
	}

	responsePath, err := formalizer.Scaffold(ref.Dir, ref.ID, runDir, configuredModels(""))
	if err != nil {
		OutputError(false, "Failed to scaffold formalizer workspace", err)
		os.Exit(CLIExitError)
	}

	target := ""
	switch {
	case formalizeTarget != "":
		resolved, err := validation.ResolveWithinRoot(repo.Root, ref.Dir, formalizeTarget)
		if err != nil {
			OutputError(false, "Invalid --target path", err)
			os.Exit(CLIExitError)
		}
		target = resolved
	case formalizeNewAttempt:
		attemptsDir, err := formalizer.EnsureAttemptsDir(runDir)
		if err != nil {
			OutputError(false, "Failed to create attempts directory", err)
			os.Exit(CLIExitError)
		}
		index := formalizer.NextAttemptIndex(attemptsDir)
		path, err := formalizer.CreateAttempt(attemptsDir, index, "")
		if err != nil {
			OutputError(false, "Failed to create attempt", err)
			os.Exit(CLIExitError)
		}
		ux.Successf("Created %s", path)
		target = path
	case formalizeAttempt != "":
		path, err := formalizer.ResolveAttempt(runDir, formalizeAttempt)
		if err != nil {
			OutputError(false, "Failed to resolve attempt", err)
			os.Exit(CLIExitError)
		}
		target = path
	}

	if !formalizeCheck {
		if target != "" {
			ux.Mutedf("Paste Lean code into %s, then re-run with --check", target)
		} else {
			ux.Successf("Formalizer workspace ready; response file at %s", responsePath)
		}
		return
	}

	if target == "" {
		// Default check target: the pasted formalizer response.
		target = filepath.Join(formalizer.LeanDir(runDir), "formalizer_response.lean")
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	result, err := formalizer.Check(ctx, repo.Root, target, runDir)
	if err != nil {
		OutputError(false, "Failed to run the Lean check", err)
		os.Exit(CLIExitError)
	}

	if result.Passed() {
		ux.Successf("%s compiled cleanly", result.Target)
		ux.Mutedf("Feedback written to %s", result.FeedbackPath)
		os.Exit(CLIExitSuccess)
	}
	ux.Errorf("%s failed (exit %d)", result.Target, result.ExitCode)
	ux.Mutedf("Build log: %s", result.LogPath)
	ux.Mutedf("Feedback: %s", result.FeedbackPath)
	os.Exit(CLIExitFindings)
}
