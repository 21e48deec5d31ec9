// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/pkg/validation"
	"github.com/erdoslab/erdoslab/services/audit"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	problemTitle    string
	problemListJSON bool
	setActiveYes    bool
	freezeSourceURL string
)

// =============================================================================
// PROBLEM NEW COMMAND
// =============================================================================

// runProblemNew is the CLI handler for "erdoslab problem new".
//
// # Exit Codes
//
//   - 0: Problem scaffolded
//   - 2: Error
func runProblemNew(cmd *cobra.Command, args []string) {
	repo, err := openRepo()
	if err != nil {
		OutputError(false, "Failed to open repository", err)
		os.Exit(CLIExitError)
	}

	id, _, err := validation.NormalizeProblemID(args[0])
	if err != nil {
		OutputError(false, "Invalid problem id", err)
		os.Exit(CLIExitError)
	}

	dir, err := repo.Scaffold(id, problemTitle)
	if err != nil {
		OutputError(false, "Failed to scaffold problem", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Scaffolded %s at %s", id, dir)
	ux.Mutedf("Next: paste the statement into statement/frozen_v1.md and run `erdoslab problem freeze %s`", id)
}

// =============================================================================
// PROBLEM LIST COMMAND
// =============================================================================

// runProblemList enumerates problems with claim state and audit status.
func runProblemList(cmd *cobra.Command, args []string) {
	start := time.Now()
	repo, err := openRepo()
	if err != nil {
		os.Exit(OutputResult(OutputConfig{JSON: problemListJSON}, "problem list", start, nil, false, err))
	}

	infos, err := repo.List()
	if err != nil {
		os.Exit(OutputResult(OutputConfig{JSON: problemListJSON}, "problem list", start, nil, false, err))
	}

	active, _, err := repo.ActiveTarget()
	if err != nil {
		// A broken ACTIVE entry is the checker's problem, not list's.
		active = ""
	}

	result := ProblemListResult{Count: len(infos), Active: active}
	for _, info := range infos {
		summary := ProblemSummary{ProblemID: info.ProblemID}
		if info.LoadErr != nil {
			summary.ClaimState = "invalid"
			summary.Error = info.LoadErr.Error()
		} else {
			summary.ClaimState = string(info.Status.Claim.State)
		}
		auditStatus, err := audit.ReadStatus(info.Dir)
		if err != nil {
			auditStatus = audit.StatusMissing
		}
		summary.Audit = string(auditStatus)
		result.Problems = append(result.Problems, summary)
	}

	if problemListJSON {
		os.Exit(OutputResult(OutputConfig{JSON: true}, "problem list", start, result, false, nil))
	}

	if len(result.Problems) == 0 {
		ux.Mutedf("No problems yet. Start with `erdoslab problem new P0001`.")
		return
	}
	ux.Titlef("Problems (%d)", result.Count)
	for _, p := range result.Problems {
		marker := "  "
		if p.ProblemID == result.Active {
			marker = "* "
		}
		line := fmt.Sprintf("%s%-10s %-18s audit=%s", marker, p.ProblemID, p.ClaimState, p.Audit)
		if p.Error != "" {
			ux.Errorf("%s (%s)", line, p.Error)
			continue
		}
		fmt.Println(line)
	}
	if result.Active != "" {
		ux.Mutedf("* = active (problems/ACTIVE)")
	}
}

// =============================================================================
// PROBLEM SET-ACTIVE COMMAND
// =============================================================================

// runProblemSetActive replaces problems/ACTIVE. When ACTIVE already
// points somewhere else this is destructive for a copied (non-symlink)
// ACTIVE, so it asks first unless --yes or stdin is not a terminal.
func runProblemSetActive(cmd *cobra.Command, args []string) {
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

	current, hasActive, err := repo.ActiveTarget()
	if err != nil {
		OutputError(false, "Failed to inspect problems/ACTIVE", err)
		os.Exit(CLIExitError)
	}
	if hasActive && current == ref.ID {
		ux.Mutedf("%s is already active", ref.ID)
		return
	}

	if hasActive && !setActiveYes && isatty.IsTerminal(os.Stdin.Fd()) {
		confirmed := false
		prompt := huh.NewConfirm().
			Title(fmt.Sprintf("Replace active problem %s with %s?", current, ref.ID)).
			Value(&confirmed)
		if err := prompt.Run(); err != nil {
			OutputError(false, "Confirmation failed", err)
			os.Exit(CLIExitError)
		}
		if !confirmed {
			ux.Warnf("Aborted; %s stays active", current)
			return
		}
	}

	method, err := repo.SetActive(ref.ID)
	if err != nil {
		OutputError(false, "Failed to set active problem", err)
		os.Exit(CLIExitError)
	}
	ux.Successf("%s", setActiveMessage(ref.ID, repo.ActiveDir(), method))
}

// setActiveMessage reports where the active pointer lives and how it was
// created ("symlink" or "copy").
func setActiveMessage(problemID, activeDir, method string) string {
	return fmt.Sprintf("%s is now active at %s (via %s)", problemID, activeDir, method)
}

// =============================================================================
// PROBLEM FREEZE COMMAND
// =============================================================================

// runProblemFreeze records the statement hash, making the frozen
// statement immutable as far as the gate is concerned.
func runProblemFreeze(cmd *cobra.Command, args []string) {
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

	status, err := repo.Freeze(ref.ID, freezeSourceURL)
	if err != nil {
		OutputError(false, "Failed to freeze statement", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Froze %s statement (sha256 %s)", ref.ID, status.FrozenStatement.SHA256)
	ux.Mutedf("Any later edit to %s is a gate finding.", status.FrozenStatement.File)
}
