// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/erdoslab/erdoslab/services/literature"
)

// IngestParams configures one planner ingest.
type IngestParams struct {
	ProblemDir string
	RunDir     string
	// ResponsePath overrides RunDir/planner_response.md when non-empty.
	ResponsePath string
	// Source labels where the plans came from; derived from the response
	// file name when empty.
	Source string
}

// IngestResult reports what an ingest produced.
type IngestResult struct {
	Plans     int
	BestScore float64
	Warnings  []string
}

// Ingest parses pasted planner output leniently, normalizes each plan,
// writes ranked plans/plan_NNN.json files and promotes the top scorer to
// solver/best. Unlike validation, ingest repairs what it can and records
// every repair as a warning.
func Ingest(p IngestParams) (*IngestResult, error) {
	responsePath := p.ResponsePath
	if responsePath == "" {
		responsePath = filepath.Join(p.RunDir, "planner_response.md")
	}
	data, err := os.ReadFile(responsePath)
	if err != nil {
		return nil, fmt.Errorf("missing planner response at %s: %w", responsePath, err)
	}
	payload, err := ExtractPlannerJSON(string(data))
	if err != nil {
		return nil, err
	}
	plansRaw, ok := payload["plans"].([]any)
	if !ok || len(plansRaw) == 0 {
		return nil, fmt.Errorf("response JSON missing plans list")
	}

	source := p.Source
	if source == "" {
		if filepath.Base(responsePath) == "planner_response.md" {
			source = "planner_manual"
		} else {
			source = "manual_llm"
		}
	}

	var warnings []string
	var plans []map[string]any
	for idx, raw := range plansRaw {
		planMap, ok := raw.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("plan[%d] is not an object", idx))
			continue
		}
		plans = append(plans, NormalizePlan(planMap, idx, source, &warnings))
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("no usable plans in response")
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return PlanScore(plans[i]) > PlanScore(plans[j])
	})
	plansDir := filepath.Join(p.RunDir, "plans")
	if err := os.MkdirAll(plansDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create plans dir: %w", err)
	}
	for idx, plan := range plans {
		path := filepath.Join(plansDir, fmt.Sprintf("plan_%03d.json", idx+1))
		if err := writeJSON(path, plan); err != nil {
			return nil, err
		}
	}

	best := plans[0]
	score := PlanScore(best)
	if err := writeBest(p.ProblemDir, best, score); err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		if err := appendIngestWarnings(p.RunDir, warnings); err != nil {
			return nil, err
		}
	}
	slog.Info("Ingested planner output",
		"plans", len(plans), "best_score", score, "warnings", len(warnings))
	return &IngestResult{Plans: len(plans), BestScore: score, Warnings: warnings}, nil
}

// NormalizePlan fills in missing plan fields with defaults, clamps scores to
// [0,1] and stamps review metadata. Repairs are appended to warnings.
func NormalizePlan(raw map[string]any, index int, source string, warnings *[]string) map[string]any {
	plan := make(map[string]any, len(raw)+3)
	for k, v := range raw {
		plan[k] = v
	}
	if _, ok := plan["strategy_name"].(string); !ok {
		*warnings = append(*warnings, fmt.Sprintf("plan[%d] missing strategy_name", index))
		plan["strategy_name"] = fmt.Sprintf("Plan %d", index+1)
	}
	if _, ok := plan["high_level_idea"].(string); !ok {
		*warnings = append(*warnings, fmt.Sprintf("plan[%d] missing high_level_idea", index))
		plan["high_level_idea"] = ""
	}
	listFields := []string{
		"key_lemmas", "definitions_needed", "risk_factors",
		"experiments", "formalization_path", "dependency_graph",
	}
	for _, field := range listFields {
		if _, ok := plan[field].([]any); !ok {
			plan[field] = []any{}
		}
	}
	payoff, ok := plan["expected_payoff"].(float64)
	if !ok {
		*warnings = append(*warnings, fmt.Sprintf("plan[%d] missing expected_payoff", index))
		payoff = 0.5
	}
	difficulty, ok := plan["difficulty"].(float64)
	if !ok {
		*warnings = append(*warnings, fmt.Sprintf("plan[%d] missing difficulty", index))
		difficulty = 0.5
	}
	plan["expected_payoff"] = clampUnit(payoff)
	plan["difficulty"] = clampUnit(difficulty)
	plan["status"] = "NEEDS_REVIEW"
	plan["source"] = source
	plan["ingested_at"] = nowISO()
	return plan
}

func clampUnit(v float64) float64 {
	return max(0, min(1, v))
}

// PlanScore ranks a plan: payoff discounted by half its difficulty.
func PlanScore(plan map[string]any) float64 {
	payoff, ok := plan["expected_payoff"].(float64)
	if !ok {
		payoff = 0.5
	}
	difficulty, ok := plan["difficulty"].(float64)
	if !ok {
		difficulty = 0.5
	}
	return payoff - 0.5*difficulty
}

func writeBest(problemDir string, best map[string]any, score float64) error {
	bestDir := BestDir(problemDir)
	if err := os.MkdirAll(bestDir, 0o750); err != nil {
		return fmt.Errorf("failed to create best dir: %w", err)
	}
	payload := make(map[string]any, len(best)+1)
	for k, v := range best {
		payload[k] = v
	}
	payload["score"] = score
	if err := writeJSON(filepath.Join(bestDir, "plan.json"), payload); err != nil {
		return err
	}

	strategy, _ := best["strategy_name"].(string)
	if strategy == "" {
		strategy = "unknown"
	}
	idea, _ := best["high_level_idea"].(string)
	summary := strings.Join([]string{
		"# Solver Summary",
		"",
		fmt.Sprintf("Selected plan: %s", strategy),
		fmt.Sprintf("Score: %.3f", score),
		"",
		"High-level idea:",
		idea,
		"",
		"Status: UNVERIFIED (manual review required).",
	}, "\n")
	summaryPath := filepath.Join(bestDir, "summary.md")
	if err := os.WriteFile(summaryPath, []byte(strings.TrimRight(summary, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	lines := []string{"# Next Actions", "", "Suggested experiments:"}
	experiments, _ := best["experiments"].([]any)
	if len(experiments) == 0 {
		lines = append(lines, "- TODO: define experiments.")
	}
	for _, item := range experiments {
		lines = append(lines, "- "+literature.AsciiFold(fmt.Sprint(item)))
	}
	nextPath := filepath.Join(bestDir, "next_actions.md")
	content := strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
	if err := os.WriteFile(nextPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write next actions: %w", err)
	}
	return nil
}

func appendIngestWarnings(runDir string, warnings []string) error {
	notesPath := filepath.Join(runDir, "notes.md")
	notes := ""
	if data, err := os.ReadFile(notesPath); err == nil {
		notes = string(data)
	}
	var b strings.Builder
	b.WriteString(notes)
	b.WriteString("\n## Ingest warnings\n")
	for _, w := range warnings {
		b.WriteString("- " + w + "\n")
	}
	content := strings.TrimSpace(b.String()) + "\n"
	if err := os.WriteFile(notesPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return nil
}
