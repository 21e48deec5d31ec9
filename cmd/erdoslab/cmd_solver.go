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
	"path/filepath"

	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/services/problems"
	"github.com/erdoslab/erdoslab/services/solver"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	solverTitle    string
	solverNewRun   bool
	solverRunID    string
	solverFile     string
	solverMaxPlans int
	solverSource   string
)

// =============================================================================
// SOLVER SCAFFOLD COMMAND
// =============================================================================

// runSolverScaffold creates (or reuses) a planner run for a problem.
func runSolverScaffold(cmd *cobra.Command, args []string) {
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

	title := solverTitle
	if title == "" {
		if statusPath, err := repo.StatusPath(ref.ID); err == nil {
			if status, err := problems.LoadStatus(statusPath); err == nil {
				title = status.Title
			}
		}
	}

	runDir, err := solver.Scaffold(solver.ScaffoldParams{
		ProblemDir:    ref.Dir,
		ProblemID:     ref.ID,
		ProblemNumber: ref.Number,
		Title:         title,
		ProblemURL:    solver.DefaultProblemURL(ref.Number),
		ForumURL:      solver.DefaultForumURL(ref.Number),
		ForceNewRun:   solverNewRun,
		MaxPlans:      configuredMaxPlans(0),
		Models:        configuredModels(""),
	})
	if err != nil {
		OutputError(false, "Failed to scaffold solver run", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Solver run ready at %s", runDir)
	ux.Mutedf("Paste model output into %s, then run `erdoslab solver ingest %s`",
		filepath.Join(runDir, "planner_response.md"), ref.ID)
}

// =============================================================================
// SOLVER VALIDATE COMMAND
// =============================================================================

// runSolverValidate strictly validates pasted planner JSON.
//
// # Exit Codes
//
//   - 0: Payload satisfies the plan schema
//   - 1: Schema violations
//   - 2: Error (missing run, unreadable file, no JSON at all)
func runSolverValidate(cmd *cobra.Command, args []string) {
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

	responsePath := solverFile
	if responsePath == "" {
		runDir, err := resolveRun(ref, solverRunID)
		if err != nil {
			OutputError(false, "Failed to resolve solver run", err)
			os.Exit(CLIExitError)
		}
		responsePath = filepath.Join(runDir, "planner_response.md")
	}

	data, err := os.ReadFile(responsePath)
	if err != nil {
		OutputError(false, "Failed to read planner response", err)
		os.Exit(CLIExitError)
	}

	payload, err := solver.ExtractPlannerJSON(string(data))
	if err != nil {
		OutputError(false, "No planner JSON found", err)
		os.Exit(CLIExitError)
	}

	violations := solver.ValidatePayload(payload, ref.ID, configuredMaxPlans(solverMaxPlans))
	if len(violations) == 0 {
		ux.Successf("Planner response is valid (%s)", responsePath)
		os.Exit(CLIExitSuccess)
	}
	for _, v := range violations {
		fmt.Printf("%s: %s\n", responsePath, v)
	}
	ux.Errorf("%d schema violation(s)", len(violations))
	os.Exit(CLIExitFindings)
}

// =============================================================================
// SOLVER INGEST COMMAND
// =============================================================================

// runSolverIngest leniently normalizes planner output into ranked plans.
func runSolverIngest(cmd *cobra.Command, args []string) {
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

	runDir, err := resolveRun(ref, solverRunID)
	if err != nil {
		OutputError(false, "Failed to resolve solver run", err)
		os.Exit(CLIExitError)
	}

	result, err := solver.Ingest(solver.IngestParams{
		ProblemDir:   ref.Dir,
		RunDir:       runDir,
		ResponsePath: solverFile,
		Source:       solverSource,
	})
	if err != nil {
		OutputError(false, "Failed to ingest planner response", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Ingested %d plan(s); best score %.3f", result.Plans, result.BestScore)
	for _, warning := range result.Warnings {
		ux.Warnf("%s", warning)
	}
	ux.Mutedf("Best plan promoted to %s", solver.BestDir(ref.Dir))
}

// =============================================================================
// SOLVER AUTOPLAN COMMAND
// =============================================================================

// runSolverAutoplan seeds offline template plans from statement keywords.
func runSolverAutoplan(cmd *cobra.Command, args []string) {
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

	runDir, err := resolveRun(ref, solverRunID)
	if err != nil {
		OutputError(false, "Failed to resolve solver run", err)
		os.Exit(CLIExitError)
	}

	path, err := solver.WriteAutoplan(ref.Dir, ref.ID, runDir, configuredMaxPlans(0))
	if err != nil {
		OutputError(false, "Failed to write autoplan", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Wrote %s", path)
	ux.Mutedf("Auto-seeded plans are placeholders; replace them with human or model plans before trusting scores.")
}
