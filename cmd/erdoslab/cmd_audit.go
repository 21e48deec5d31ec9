// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/services/audit"
	"github.com/erdoslab/erdoslab/services/solver"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	auditRunID    string
	auditLeanFile string
)

// =============================================================================
// AUDIT GENERATE COMMAND
// =============================================================================

// runAuditGenerate writes the semantic audit checklist for a problem.
// The checklist quotes the frozen statement and the Lean declarations it
// is supposed to be checked against; a human reviewer fills it in and
// flips Status: to COMPLETE.
func runAuditGenerate(cmd *cobra.Command, args []string) {
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

	// A solver run is optional context; without one the checklist still
	// quotes the gated proof file when it exists.
	runDir := ""
	if dir, err := solver.ResolveRunDir(ref.Dir, auditRunID); err == nil {
		runDir = dir
	} else if auditRunID != "" {
		OutputError(false, "Failed to resolve solver run", err)
		os.Exit(CLIExitError)
	}

	path, err := audit.Generate(audit.Params{
		Root:       repo.Root,
		ProblemID:  ref.ID,
		ProblemDir: ref.Dir,
		RunDir:     runDir,
		LeanFile:   auditLeanFile,
	})
	if err != nil {
		OutputError(false, "Failed to generate audit checklist", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Wrote %s", path)
	ux.Mutedf("Review the checklist and set Status: COMPLETE when every box is checked.")
}

// =============================================================================
// AUDIT STATUS COMMAND
// =============================================================================

// runAuditStatus prints the audit status for a problem.
//
// # Exit Codes
//
//   - 0: Audit is COMPLETE or LEGACY
//   - 1: Audit is INCOMPLETE or MISSING
//   - 2: Error
func runAuditStatus(cmd *cobra.Command, args []string) {
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

	status, err := audit.ReadStatus(ref.Dir)
	if err != nil {
		status = audit.StatusMissing
	}

	if status.Accepted() {
		ux.Successf("%s audit: %s", ref.ID, status)
		os.Exit(CLIExitSuccess)
	}
	ux.Warnf("%s audit: %s", ref.ID, status)
	os.Exit(CLIExitFindings)
}
