// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erdoslab/erdoslab/services/llm"
	"github.com/erdoslab/erdoslab/services/problems"
)

// ScaffoldParams configures one planner scaffold pass.
type ScaffoldParams struct {
	ProblemDir    string
	ProblemID     string
	ProblemNumber int
	Title         string
	ProblemURL    string
	ForumURL      string
	// StatementText overrides the frozen statement when non-empty.
	StatementText string
	ForceNewRun   bool
	MaxPlans      int
	Models        []string
}

// Scaffold prepares a run for manual planning: input bundle, planner prompt
// (plain and with literature candidates appended), and per-model
// prompt/response pairs. Returns the run directory.
func Scaffold(p ScaffoldParams) (string, error) {
	if err := EnsureBestDir(p.ProblemDir); err != nil {
		return "", err
	}
	runDir, err := EnsureRun(p.ProblemDir, p.ForceNewRun)
	if err != nil {
		return "", err
	}

	statementText := p.StatementText
	if statementText == "" {
		frozen, err := os.ReadFile(filepath.Join(p.ProblemDir, "statement", "frozen_v1.md"))
		if err == nil {
			statementText = problems.ExtractStatement(string(frozen))
		}
	}

	bundle := BuildInputBundle(p.ProblemDir, p.ProblemID, p.Title, p.ProblemURL, p.ForumURL, statementText)
	if err := writeJSON(filepath.Join(runDir, "input_bundle.json"), bundle); err != nil {
		return "", err
	}

	prompt := PlannerPrompt(PromptParams{
		ProblemID:     p.ProblemID,
		ProblemNumber: p.ProblemNumber,
		Title:         p.Title,
		ProblemURL:    p.ProblemURL,
		ForumURL:      p.ForumURL,
		StatementText: statementText,
		MaxPlans:      p.MaxPlans,
	})
	promptPath := filepath.Join(runDir, "planner_prompt.md")
	if err := os.WriteFile(promptPath, []byte(strings.TrimRight(prompt, "\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write planner prompt: %w", err)
	}

	promptWithLit := strings.TrimRight(prompt, "\n") +
		"\n\nLiterature candidates (UNVERIFIED):\n" +
		RenderLiteratureCandidates(p.ProblemDir, DefaultMaxLiterature) + "\n"
	litPath := filepath.Join(runDir, "planner_prompt_with_literature.md")
	if err := os.WriteFile(litPath, []byte(promptWithLit), 0o644); err != nil {
		return "", fmt.Errorf("failed to write planner prompt: %w", err)
	}

	err = llm.WriteModelPrompts(
		filepath.Join(runDir, "llm", "planner"),
		promptWithLit, ".md", ResponsePlaceholder, p.Models,
	)
	if err != nil {
		return "", err
	}
	return runDir, nil
}
