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

	"github.com/erdoslab/erdoslab/cmd/erdoslab/config"
	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/services/literature"
	"github.com/erdoslab/erdoslab/services/llm"
	"github.com/erdoslab/erdoslab/services/problems"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	literatureResponse string
	literatureSource   string
	literatureModels   string
)

// askTimeout bounds one full literature fan-out.
const askTimeout = 10 * time.Minute

// =============================================================================
// LITERATURE PROMPT COMMAND
// =============================================================================

// runLiteraturePrompt renders the scout prompt and seeds response files.
func runLiteraturePrompt(cmd *cobra.Command, args []string) {
	ref, prompt, err := scoutPrompt(args[0])
	if err != nil {
		OutputError(false, "Failed to render scout prompt", err)
		os.Exit(CLIExitError)
	}

	literatureDir := filepath.Join(ref.Dir, "literature")
	if err := literature.WriteScoutFiles(literatureDir, prompt); err != nil {
		OutputError(false, "Failed to write scout files", err)
		os.Exit(CLIExitError)
	}
	if err := llm.WriteModelPrompts(
		filepath.Join(literatureDir, "llm"),
		prompt, ".md", literature.ResponsePlaceholder, configuredModels(literatureModels),
	); err != nil {
		OutputError(false, "Failed to write per-model prompts", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Wrote scout prompt for %s under %s", ref.ID, literatureDir)
	ux.Mutedf("Paste model output into scout_response.md, then run `erdoslab literature ingest %s`", ref.ID)
}

// =============================================================================
// LITERATURE INGEST COMMAND
// =============================================================================

// runLiteratureIngest merges pasted scout output into candidates.json.
func runLiteratureIngest(cmd *cobra.Command, args []string) {
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

	literatureDir := filepath.Join(ref.Dir, "literature")
	responsePath := literatureResponse
	if responsePath == "" {
		responsePath = filepath.Join(literatureDir, "scout_response.md")
	}

	result, err := literature.Ingest(literature.IngestParams{
		ProblemID:     ref.ID,
		LiteratureDir: literatureDir,
		ResponsePath:  responsePath,
		Source:        literatureSource,
	})
	if err != nil {
		OutputError(false, "Failed to ingest scout response", err)
		os.Exit(CLIExitError)
	}

	ux.Successf("Ingested %d candidate(s); %d total after merge", result.Ingested, result.Total)
	for _, warning := range result.Warnings {
		ux.Warnf("%s", warning)
	}
	ux.Mutedf("Candidates are UNVERIFIED until triage; see literature/triage.md")
}

// =============================================================================
// LITERATURE ASK COMMAND
// =============================================================================

// runLiteratureAsk sends the scout prompt to the configured models and
// writes each response where ingest can pick it up. A failed model is a
// warning, not an error, as long as at least one model answered.
func runLiteratureAsk(cmd *cobra.Command, args []string) {
	ref, prompt, err := scoutPrompt(args[0])
	if err != nil {
		OutputError(false, "Failed to render scout prompt", err)
		os.Exit(CLIExitError)
	}

	models := configuredModels(literatureModels)
	clients := make([]llm.LLMClient, 0, len(models))
	for _, model := range models {
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			Model:             model,
			BaseURL:           config.Global.LLM.BaseURL,
			RequestsPerSecond: config.Global.LLM.RequestsPerSecond,
		})
		if err != nil {
			OutputError(false, "Failed to create LLM client", err)
			os.Exit(CLIExitError)
		}
		clients = append(clients, client)
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	results, err := llm.FanOut(ctx, clients, prompt, llm.GenerationParams{})
	if err != nil {
		OutputError(false, "All models failed", err)
		os.Exit(CLIExitError)
	}

	llmDir := filepath.Join(ref.Dir, "literature", "llm")
	if err := os.MkdirAll(llmDir, 0o750); err != nil {
		OutputError(false, "Failed to create literature/llm", err)
		os.Exit(CLIExitError)
	}

	answered := 0
	for _, result := range results {
		if result.Err != nil {
			ux.Warnf("%s failed: %v", result.Model, result.Err)
			continue
		}
		responsePath := filepath.Join(llmDir, llm.SanitizeLabel(result.Model)+"_response.md")
		if err := os.WriteFile(responsePath, []byte(result.Text+"\n"), 0o644); err != nil {
			OutputError(false, "Failed to write model response", err)
			os.Exit(CLIExitError)
		}
		ux.Successf("%s answered; wrote %s", result.Model, responsePath)
		answered++
	}

	fmt.Println()
	ux.Mutedf("Ingest a response with `erdoslab literature ingest %s --response <path>`", ref.ID)
	if answered == 0 {
		os.Exit(CLIExitFindings)
	}
}

// scoutPrompt resolves a problem and renders its scout prompt.
func scoutPrompt(rawID string) (problemRef, string, error) {
	repo, err := openRepo()
	if err != nil {
		return problemRef{}, "", err
	}
	ref, err := resolveProblem(repo, rawID)
	if err != nil {
		return problemRef{}, "", err
	}

	statement, err := repo.FrozenStatementText(ref.ID)
	if err != nil {
		statement = ""
	}
	title := ""
	if statusPath, err := repo.StatusPath(ref.ID); err == nil {
		if status, err := problems.LoadStatus(statusPath); err == nil {
			title = status.Title
		}
	}

	prompt := literature.RenderScoutPrompt(literature.PromptParams{
		ProblemID:     ref.ID,
		ProblemNumber: ref.Number,
		Title:         title,
		ProblemURL:    fmt.Sprintf("https://www.erdosproblems.com/%d", ref.Number),
		ForumURL:      fmt.Sprintf("https://www.erdosproblems.com/forum/thread/%d", ref.Number),
		StatementText: statement,
	})
	return ref, prompt, nil
}
