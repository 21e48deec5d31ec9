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
	"os/exec"

	"github.com/erdoslab/erdoslab/cmd/erdoslab/config"
	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/services/gate"
	"github.com/erdoslab/erdoslab/services/policy_engine"
	"github.com/spf13/cobra"
)

// =============================================================================
// CI COMMAND
// =============================================================================

// runCI is the one command CI needs: the full policy gate followed by
// the external proof build. A tree only ships when both pass.
//
// # Exit Codes
//
//   - 0: Gate passed and `lake build` succeeded
//   - 1: Gate findings or build failure
//   - 2: Error
func runCI(cmd *cobra.Command, args []string) {
	repo, err := openRepo()
	if err != nil {
		OutputError(false, "Failed to open repository", err)
		os.Exit(CLIExitError)
	}

	engine, err := policy_engine.NewPolicyEngine()
	if err != nil {
		OutputError(false, "Failed to load policy engine", err)
		os.Exit(CLIExitError)
	}

	// CI always wants the complete report, never fail-fast.
	checker := gate.NewChecker(repo, engine, gate.Options{
		FailFast:       false,
		GatedProofDir:  config.Global.Repo.GatedProofDir,
		AxiomAllowlist: config.Global.Gate.AxiomAllowlist,
	})

	ux.Titlef("CI gate 1/2: policy check")
	report, err := checker.Run()
	if err != nil {
		OutputError(false, "Checker failed", err)
		os.Exit(CLIExitError)
	}
	if !report.Pass() {
		for _, finding := range report.Findings {
			fmt.Println(finding.String())
		}
		ux.Errorf("Policy gate failed: %d finding(s)", len(report.Findings))
		os.Exit(CLIExitFindings)
	}
	ux.Successf("Policy gate passed (%d problem(s))", report.Problems)

	ux.Titlef("CI gate 2/2: lake build")
	build := exec.Command("lake", "build")
	build.Dir = repo.Root
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			ux.Errorf("lake build failed")
			os.Exit(CLIExitFindings)
		}
		OutputError(false, "Failed to run lake build", err)
		os.Exit(CLIExitError)
	}
	ux.Successf("lake build passed")
	os.Exit(CLIExitSuccess)
}
