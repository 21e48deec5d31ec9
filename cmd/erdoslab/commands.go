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

	"github.com/erdoslab/erdoslab/cmd/erdoslab/config"
	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	repoRootFlag string
	plainOutput  bool
	logLevelFlag string

	rootCmd = &cobra.Command{
		Use:   "erdoslab",
		Short: "A cli to manage policy-gated Erdos problem research",
		Long: `erdoslab manages a repository of Erdos problem formalization attempts:
				per-problem scaffolding, solver planning runs, literature triage,
				Lean attempt workspaces, and the evidence-gating policy checker
				that CI runs before anything may claim "solved".`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if plainOutput {
				ux.SetPlainMode(true)
			}
			if err := config.Load(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
				os.Exit(CLIExitError)
			}
		},
	}

	// --- Problems ---
	problemCmd = &cobra.Command{
		Use:   "problem",
		Short: "Manage per-problem directories under problems/",
	}
	problemNewCmd = &cobra.Command{
		Use:   "new [problem-id]",
		Short: "Scaffold a new problem directory from the embedded template",
		Args:  cobra.ExactArgs(1),
		Run:   runProblemNew, // Defined in cmd_problem.go
	}
	problemListCmd = &cobra.Command{
		Use:   "list",
		Short: "List problems with their claim state and audit status",
		Run:   runProblemList, // Defined in cmd_problem.go
	}
	problemSetActiveCmd = &cobra.Command{
		Use:   "set-active [problem-id]",
		Short: "Point problems/ACTIVE at a problem (symlink, copy fallback)",
		Args:  cobra.ExactArgs(1),
		Run:   runProblemSetActive, // Defined in cmd_problem.go
	}
	problemFreezeCmd = &cobra.Command{
		Use:   "freeze [problem-id]",
		Short: "Record the sha256 of statement/frozen_v1.md into status.json",
		Args:  cobra.ExactArgs(1),
		Run:   runProblemFreeze, // Defined in cmd_problem.go
	}

	// --- Policy gate ---
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Run the evidence-gating policy checker (the CI gate)",
		Long: `check walks the repository read-only and enforces the structural and
				textual invariants every problem must satisfy. Exit code 0 means the
				tree passes, 1 means findings, 2 means the checker itself failed.`,
		Run: runCheck, // Defined in cmd_check.go
	}

	// --- Policies ---
	policyCmd = &cobra.Command{
		Use:   "policy",
		Short: "Base command to interact with the proof-gate policies",
		Long: `Use policy + subcommands to interact with the proof-gate patterns that
				are embedded in the erdoslab binary. You can define new versions as
				long as you rebuild the binary.`,
	}
	verifyPolicyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify the integrity of the embedded policy rules",
		Long:  `Calculates the SHA256 hash of the compiled-in proof-gate patterns. Use this to verify that the binary is running the expected version of your governance rules.`,
		Run:   verifyPolicies, // Defined in cmd_policy.go
	}
	dumpPolicyCmd = &cobra.Command{
		Use:   "dump",
		Short: "Prints out the whole policy file to stdout",
		Run:   dumpPolicies, // Defined in cmd_policy.go
	}
	testPolicyCmd = &cobra.Command{
		Use:   "test [string]",
		Short: "Test a string against the proof-gate patterns",
		Args:  cobra.ExactArgs(1),
		Run:   testPolicyString, // Defined in cmd_policy.go
	}

	// --- Semantic audit ---
	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Manage the per-problem semantic audit checklist",
	}
	auditGenerateCmd = &cobra.Command{
		Use:   "generate [problem-id]",
		Short: "Write statement/semantic_audit.md for a problem",
		Args:  cobra.ExactArgs(1),
		Run:   runAuditGenerate, // Defined in cmd_audit.go
	}
	auditStatusCmd = &cobra.Command{
		Use:   "status [problem-id]",
		Short: "Show the audit status (COMPLETE, LEGACY, or INCOMPLETE)",
		Args:  cobra.ExactArgs(1),
		Run:   runAuditStatus, // Defined in cmd_audit.go
	}

	// --- Solver ---
	solverCmd = &cobra.Command{
		Use:   "solver",
		Short: "Manage solver planning runs for a problem",
	}
	solverScaffoldCmd = &cobra.Command{
		Use:   "scaffold [problem-id]",
		Short: "Create a solver run with prompts, input bundle, and checklist",
		Args:  cobra.ExactArgs(1),
		Run:   runSolverScaffold, // Defined in cmd_solver.go
	}
	solverValidateCmd = &cobra.Command{
		Use:   "validate [problem-id]",
		Short: "Strictly validate pasted planner JSON against the plan schema",
		Args:  cobra.ExactArgs(1),
		Run:   runSolverValidate, // Defined in cmd_solver.go
	}
	solverIngestCmd = &cobra.Command{
		Use:   "ingest [problem-id]",
		Short: "Normalize planner JSON into ranked plans and promote the best",
		Args:  cobra.ExactArgs(1),
		Run:   runSolverIngest, // Defined in cmd_solver.go
	}
	solverAutoplanCmd = &cobra.Command{
		Use:   "autoplan [problem-id]",
		Short: "Seed template plans from statement keywords (offline)",
		Args:  cobra.ExactArgs(1),
		Run:   runSolverAutoplan, // Defined in cmd_solver.go
	}

	// --- Literature ---
	literatureCmd = &cobra.Command{
		Use:   "literature",
		Short: "Manage literature scouting for a problem",
	}
	literaturePromptCmd = &cobra.Command{
		Use:   "prompt [problem-id]",
		Short: "Render the literature scout prompt and response scaffolds",
		Args:  cobra.ExactArgs(1),
		Run:   runLiteraturePrompt, // Defined in cmd_literature.go
	}
	literatureIngestCmd = &cobra.Command{
		Use:   "ingest [problem-id]",
		Short: "Ingest pasted scout output into candidates.json",
		Args:  cobra.ExactArgs(1),
		Run:   runLiteratureIngest, // Defined in cmd_literature.go
	}
	literatureAskCmd = &cobra.Command{
		Use:   "ask [problem-id]",
		Short: "Send the scout prompt to the configured models and save the responses",
		Args:  cobra.ExactArgs(1),
		Run:   runLiteratureAsk, // Defined in cmd_literature.go
	}

	// --- Formalizer ---
	formalizeCmd = &cobra.Command{
		Use:   "formalize [problem-id]",
		Short: "Manage Lean attempt files for a solver run",
		Args:  cobra.ExactArgs(1),
		Run:   runFormalize, // Defined in cmd_formalize.go
	}

	// --- Experiments ---
	experimentCmd = &cobra.Command{
		Use:   "experiment",
		Short: "Run compute experiments declared in the per-problem manifest",
	}
	experimentRunCmd = &cobra.Command{
		Use:   "run [problem-id]",
		Short: "Run the experiments manifest and capture results",
		Args:  cobra.ExactArgs(1),
		Run:   runExperiments, // Defined in cmd_experiment.go
	}

	// --- CI ---
	ciCmd = &cobra.Command{
		Use:   "ci",
		Short: "Run the full CI gate: policy check, then `lake build`",
		Run:   runCI, // Defined in cmd_ci.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&repoRootFlag, "repo", "",
		"Repository root (default: config repo.root, then the working directory)")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false,
		"Disable styled output (also implied by a non-TTY stdout)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: config logging.level)")

	// problem commands
	rootCmd.AddCommand(problemCmd)
	problemCmd.AddCommand(problemNewCmd)
	problemNewCmd.Flags().StringVar(&problemTitle, "title", "", "Human title for the problem")
	problemCmd.AddCommand(problemListCmd)
	problemListCmd.Flags().BoolVar(&problemListJSON, "json", false, "Output as JSON")
	problemCmd.AddCommand(problemSetActiveCmd)
	problemSetActiveCmd.Flags().BoolVarP(&setActiveYes, "yes", "y", false,
		"Replace an existing ACTIVE without asking")
	problemCmd.AddCommand(problemFreezeCmd)
	problemFreezeCmd.Flags().StringVar(&freezeSourceURL, "source-url", "",
		"Provenance URL recorded with the frozen statement")

	// check command
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "Report every finding instead of stopping at the first")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the report as JSON")
	checkCmd.Flags().BoolVar(&checkQuiet, "quiet", false, "No output, exit code only")
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "Re-run the checker when the tree changes")
	checkCmd.Flags().BoolVar(&checkHistory, "history", false, "List recorded checker runs instead of checking")

	// policy commands
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(verifyPolicyCmd)
	verifyPolicyCmd.Flags().BoolVar(&policyVerifyJSON, "json", false, "Output as JSON")
	policyCmd.AddCommand(dumpPolicyCmd)
	dumpPolicyCmd.Flags().BoolVar(&policyDumpJSON, "json", false, "Output as JSON")
	policyCmd.AddCommand(testPolicyCmd)
	testPolicyCmd.Flags().BoolVar(&policyTestJSON, "json", false, "Output as JSON")

	// audit commands
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditGenerateCmd)
	auditGenerateCmd.Flags().StringVar(&auditRunID, "run", "",
		"Solver run whose formalizer response seeds the checklist (default: latest)")
	auditGenerateCmd.Flags().StringVar(&auditLeanFile, "lean-file", "",
		"Explicit Lean file to extract declarations from")
	auditCmd.AddCommand(auditStatusCmd)

	// solver commands
	rootCmd.AddCommand(solverCmd)
	solverCmd.AddCommand(solverScaffoldCmd)
	solverScaffoldCmd.Flags().StringVar(&solverTitle, "title", "", "Human title for the problem")
	solverScaffoldCmd.Flags().BoolVar(&solverNewRun, "new-run", false,
		"Always create a fresh run instead of reusing an untouched one")
	solverCmd.AddCommand(solverValidateCmd)
	solverValidateCmd.Flags().StringVar(&solverRunID, "run", "", "Run id (default: latest)")
	solverValidateCmd.Flags().StringVar(&solverFile, "file", "", "Response file to validate (default: planner_response.md)")
	solverValidateCmd.Flags().IntVar(&solverMaxPlans, "max-plans", 0, "Maximum plans allowed (default: config solver.max_plans)")
	solverCmd.AddCommand(solverIngestCmd)
	solverIngestCmd.Flags().StringVar(&solverRunID, "run", "", "Run id (default: latest)")
	solverIngestCmd.Flags().StringVar(&solverSource, "source", "", "Provenance label stamped on ingested plans")
	solverIngestCmd.Flags().StringVar(&solverFile, "file", "", "Response file to ingest (default: planner_response.md)")
	solverCmd.AddCommand(solverAutoplanCmd)
	solverAutoplanCmd.Flags().StringVar(&solverRunID, "run", "", "Run id (default: latest)")

	// literature commands
	rootCmd.AddCommand(literatureCmd)
	literatureCmd.AddCommand(literaturePromptCmd)
	literatureCmd.AddCommand(literatureIngestCmd)
	literatureIngestCmd.Flags().StringVar(&literatureResponse, "response", "",
		"Response file to ingest (default: literature/scout_response.md)")
	literatureIngestCmd.Flags().StringVar(&literatureSource, "source", "",
		"Provenance label for ingested candidates")
	literatureCmd.AddCommand(literatureAskCmd)
	literatureAskCmd.Flags().StringVar(&literatureModels, "model", "",
		"Comma-separated models to query (default: config llm.models)")

	// formalize command
	rootCmd.AddCommand(formalizeCmd)
	formalizeCmd.Flags().StringVar(&formalizeRunID, "run", "", "Run id (default: latest)")
	formalizeCmd.Flags().BoolVar(&formalizeNewAttempt, "new-attempt", false, "Create the next numbered attempt file")
	formalizeCmd.Flags().StringVar(&formalizeAttempt, "attempt", "", "Attempt number or 'latest'")
	formalizeCmd.Flags().BoolVar(&formalizeCheck, "check", false, "Run `lake env lean` on the selected file")
	formalizeCmd.Flags().StringVar(&formalizeTarget, "target", "", "Explicit Lean file to check")

	// experiment commands
	rootCmd.AddCommand(experimentCmd)
	experimentCmd.AddCommand(experimentRunCmd)
	experimentRunCmd.Flags().StringVar(&experimentManifest, "manifest", "",
		"Manifest path (default: <problem>/compute/manifest.json)")
	experimentRunCmd.Flags().StringVar(&experimentOnly, "only", "", "Run only the named experiment")
	experimentRunCmd.Flags().StringVar(&experimentRunID, "run", "", "Solver run to attach results to (default: latest)")
	experimentRunCmd.Flags().BoolVar(&experimentDryRun, "dry-run", false, "Record what would run without executing")
	experimentRunCmd.Flags().BoolVar(&experimentJSON, "json", false, "Output the summary as JSON")

	// ci command
	rootCmd.AddCommand(ciCmd)
}
