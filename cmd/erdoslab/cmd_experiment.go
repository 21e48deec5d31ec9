// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/services/solver"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	experimentManifest string
	experimentOnly     string
	experimentRunID    string
	experimentDryRun   bool
	experimentJSON     bool
)

// =============================================================================
// EXPERIMENT RUN COMMAND
// =============================================================================

// runExperiments executes the per-problem experiments manifest.
//
// # Exit Codes
//
//   - 0: Every experiment succeeded (or was a dry-run)
//   - 1: At least one experiment failed, timed out, or was invalid
//   - 2: The runner itself failed (missing manifest, bad JSON)
func runExperiments(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := OutputConfig{JSON: experimentJSON}

	repo, err := openRepo()
	if err != nil {
		os.Exit(OutputResult(cfg, "experiment run", start, nil, false, err))
	}

	ref, err := resolveProblem(repo, args[0])
	if err != nil {
		os.Exit(OutputResult(cfg, "experiment run", start, nil, false, err))
	}

	runDir, err := resolveRun(ref, experimentRunID)
	if err != nil {
		os.Exit(OutputResult(cfg, "experiment run", start, nil, false, err))
	}
	// Results attach to the solver run they belong to.
	runID := filepath.Base(runDir)

	summary, err := solver.RunExperiments(context.Background(), solver.RunExperimentsParams{
		Root:         repo.Root,
		ProblemDir:   ref.Dir,
		ProblemID:    ref.ID,
		ManifestPath: experimentManifest,
		Only:         experimentOnly,
		RunID:        runID,
		DryRun:       experimentDryRun,
	})
	if err != nil {
		os.Exit(OutputResult(cfg, "experiment run", start, nil, false, err))
	}

	if !experimentJSON {
		ux.Titlef("Experiments (%d)", len(summary.Records))
		for _, record := range summary.Records {
			line := fmt.Sprintf("  %-24s %s", record.Name, record.Status)
			if record.ExitCode != nil {
				line += fmt.Sprintf(" (exit %d)", *record.ExitCode)
			}
			fmt.Println(line)
		}
		if summary.Failures > 0 {
			ux.Errorf("%d experiment(s) failed; logs under %s", summary.Failures, summary.OutputDir)
		} else {
			ux.Successf("Results under %s", summary.OutputDir)
		}
	}

	os.Exit(OutputResult(cfg, "experiment run", start, summary, summary.Failures > 0, nil))
}
