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

	"github.com/erdoslab/erdoslab/services/literature"
	"github.com/erdoslab/erdoslab/services/problems"
)

// AutoplanPayload is the offline plan seed written without any model call.
type AutoplanPayload struct {
	ProblemID       string `json:"problem_id"`
	GeneratedAt     string `json:"generated_at"`
	SolverUsedScout bool   `json:"solver_used_scout"`
	Plans           []Plan `json:"plans"`
	Notes           string `json:"notes"`
}

func keywordLemmas(keywords []string) []KeyLemma {
	if len(keywords) == 0 {
		keywords = []string{"statement"}
	}
	if len(keywords) > 2 {
		keywords = keywords[:2]
	}
	var lemmas []KeyLemma
	for _, key := range keywords {
		lemmas = append(lemmas, KeyLemma{
			Statement:     fmt.Sprintf("Identify a known lemma or bound involving %s.", key),
			WhyNeeded:     "Provides a reusable structural component.",
			LikelySources: []string{"Mathlib", "literature candidates"},
			Checkability:  "medium",
		})
	}
	return lemmas
}

func planTemplates(keywords []string) []Plan {
	return []Plan{
		{
			StrategyName: "Literature-first mapping",
			HighLevelIdea: "Map the statement to known results; attempt to reduce the problem " +
				"to a cited lemma or standard theorem.",
			KeyLemmas:         keywordLemmas(keywords),
			DefinitionsNeeded: []string{"Restate statement with explicit quantifiers."},
			RiskFactors:       []string{"May rely on unavailable or misquoted references."},
			Experiments:       []string{"Check small cases to detect counterexamples."},
			FormalizationPath: []string{"Locate existing Mathlib results."},
			ExpectedPayoff:    0.45,
			Difficulty:        0.35,
			DependencyGraph:   []string{"Lemma A -> Main theorem"},
		},
		{
			StrategyName: "Small-case exploration",
			HighLevelIdea: "Search small values or finite configurations to find patterns or " +
				"candidate extremals.",
			KeyLemmas: []KeyLemma{{
				Statement:     "Classify minimal counterexamples up to small size.",
				WhyNeeded:     "Guides conjectures and identifies invariants.",
				LikelySources: []string{"compute/ experiments"},
				Checkability:  "easy",
			}},
			DefinitionsNeeded: []string{"Explicit parameter ranges for experiments."},
			RiskFactors:       []string{"Patterns may not generalize."},
			Experiments:       []string{"Enumerate n up to a small bound."},
			FormalizationPath: []string{"Translate patterns into inductive steps."},
			ExpectedPayoff:    0.35,
			Difficulty:        0.4,
			DependencyGraph:   []string{"Experiment result -> conjecture -> proof outline"},
		},
		{
			StrategyName: "Formalization-first",
			HighLevelIdea: "Formalize the statement and near-trivial lemmas in Lean to expose " +
				"missing definitions and constraints.",
			KeyLemmas: []KeyLemma{{
				Statement:     "Prove base cases and sanity checks in Lean.",
				WhyNeeded:     "Validates definitions and boundary conditions.",
				LikelySources: []string{"Mathlib"},
				Checkability:  "easy",
			}},
			DefinitionsNeeded: []string{"Lean-friendly statement with parameters."},
			RiskFactors:       []string{"May not reveal deep structure."},
			Experiments:       []string{"None (formalization focused)."},
			FormalizationPath: []string{"Create skeleton theorem in Lean."},
			ExpectedPayoff:    0.3,
			Difficulty:        0.25,
			DependencyGraph:   []string{"Lean skeleton -> lemma library -> main proof"},
		},
	}
}

// WriteAutoplan writes a template plan seed derived from statement keywords
// into the run. Returns the autoplan JSON path.
func WriteAutoplan(problemDir, problemID, runDir string, maxPlans int) (string, error) {
	statement := ""
	if data, err := os.ReadFile(filepath.Join(problemDir, "statement", "frozen_v1.md")); err == nil {
		statement = problems.ExtractStatement(string(data))
	}
	keywords := literature.ExtractKeywords(statement, 6)

	plans := planTemplates(keywords)
	if maxPlans < 1 {
		maxPlans = 1
	}
	if maxPlans < len(plans) {
		plans = plans[:maxPlans]
	}
	payload := AutoplanPayload{
		ProblemID:       problemID,
		GeneratedAt:     nowISO(),
		SolverUsedScout: false,
		Plans:           plans,
		Notes:           "AUTO-SEED only; replace with human or LLM plans.",
	}
	autoplanPath := filepath.Join(runDir, "planner_autoplan.json")
	if err := writeJSON(autoplanPath, payload); err != nil {
		return "", err
	}

	lines := []string{
		"# Auto plan seed",
		"",
		"This file is generated without LLMs. Treat as a placeholder.",
		"",
	}
	for idx, plan := range plans {
		lines = append(lines, fmt.Sprintf("%d. %s", idx+1, plan.StrategyName))
	}
	content := strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
	summaryPath := filepath.Join(runDir, "planner_autoplan.md")
	if err := os.WriteFile(summaryPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write autoplan summary: %w", err)
	}
	return autoplanPath, nil
}
