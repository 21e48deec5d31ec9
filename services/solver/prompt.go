// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erdoslab/erdoslab/services/literature"
)

// PromptParams carries the problem context a planner prompt needs.
type PromptParams struct {
	ProblemID     string
	ProblemNumber int
	Title         string
	ProblemURL    string
	ForumURL      string
	StatementText string
	MaxPlans      int
}

// DefaultProblemURL returns the canonical problem page for a problem number.
func DefaultProblemURL(number int) string {
	return fmt.Sprintf("https://www.erdosproblems.com/%d", number)
}

// DefaultForumURL returns the canonical forum thread for a problem number.
func DefaultForumURL(number int) string {
	return fmt.Sprintf("https://www.erdosproblems.com/forum/thread/%d", number)
}

// PlannerPrompt renders the manual planner prompt. The JSON schema block is
// part of the contract with the validator; changing it requires bumping the
// version line.
func PlannerPrompt(p PromptParams) string {
	title := p.Title
	if title == "" {
		title = fmt.Sprintf("Erdos Problem #%d", p.ProblemNumber)
	}
	maxPlans := p.MaxPlans
	if maxPlans <= 0 {
		maxPlans = DefaultMaxPlans
	}
	keywordLine := "none"
	if keywords := literature.ExtractKeywords(p.StatementText, 10); len(keywords) > 0 {
		keywordLine = strings.Join(keywords, ", ")
	}

	var b strings.Builder
	b.WriteString("# Solver Planner Prompt (manual)\n")
	b.WriteString("\nVersion: v1\n")
	b.WriteString("\nYou are generating structured research plans for an Erdos problem. ")
	b.WriteString("Do NOT claim the problem is solved. Do NOT mark anything as verified. ")
	b.WriteString("Output only plans and experiments that could lead to a proof.\n")
	b.WriteString("\nProblem context:\n")
	fmt.Fprintf(&b, "- problem_id: %s\n", p.ProblemID)
	fmt.Fprintf(&b, "- title: %s\n", title)
	fmt.Fprintf(&b, "- problem_url: %s\n", p.ProblemURL)
	fmt.Fprintf(&b, "- forum_url: %s\n", p.ForumURL)
	fmt.Fprintf(&b, "- keywords: %s\n", keywordLine)
	b.WriteString("\nFrozen statement:\n")
	b.WriteString(p.StatementText)
	b.WriteString("\n")
	b.WriteString("\nIf you used literature candidates from candidates.json, set solver_used_scout=true. ")
	b.WriteString("Otherwise keep solver_used_scout=false.\n")
	b.WriteString("\nOutput format (STRICT): return exactly one JSON object in a single ```json``` block. ")
	b.WriteString("Do not include extra prose outside the JSON.\n")
	b.WriteString("\nRequired JSON schema:\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"problem_id\": %q,\n", p.ProblemID)
	b.WriteString("  \"generated_at\": \"YYYY-MM-DD\",\n")
	b.WriteString("  \"solver_used_scout\": false,\n")
	b.WriteString("  \"plans\": [\n")
	b.WriteString("    {\n")
	b.WriteString("      \"strategy_name\": \"...\",\n")
	b.WriteString("      \"high_level_idea\": \"...\",\n")
	b.WriteString("      \"key_lemmas\": [\n")
	b.WriteString("        {\n")
	b.WriteString("          \"statement\": \"...\",\n")
	b.WriteString("          \"why_needed\": \"...\",\n")
	b.WriteString("          \"likely_sources\": [\"...\"],\n")
	b.WriteString("          \"checkability\": \"easy | medium | hard\"\n")
	b.WriteString("        }\n")
	b.WriteString("      ],\n")
	b.WriteString("      \"definitions_needed\": [\"...\"],\n")
	b.WriteString("      \"risk_factors\": [\"...\"],\n")
	b.WriteString("      \"experiments\": [\"...\"],\n")
	b.WriteString("      \"formalization_path\": [\"...\"],\n")
	b.WriteString("      \"expected_payoff\": 0.0,\n")
	b.WriteString("      \"difficulty\": 0.0,\n")
	b.WriteString("      \"dependency_graph\": [\"lemma1 -> lemma2\", \"lemma2 -> theorem\"]\n")
	b.WriteString("    }\n")
	b.WriteString("  ],\n")
	b.WriteString("  \"notes\": \"... optional ...\"\n")
	b.WriteString("}\n")
	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- Provide 3 to %d plans.\n", maxPlans)
	b.WriteString("- expected_payoff and difficulty must be numbers in [0,1].\n")
	b.WriteString("- Do not assert correctness; everything is speculative.\n")
	return b.String()
}

// RenderLiteratureCandidates renders candidates.json as prompt bullet
// lines. Any parse problem degrades to a "- none" line; the planner prompt
// must render even when the scout step was skipped entirely.
func RenderLiteratureCandidates(problemDir string, maxItems int) string {
	if maxItems <= 0 {
		maxItems = DefaultMaxLiterature
	}
	data, err := os.ReadFile(filepath.Join(problemDir, "literature", "candidates.json"))
	if err != nil {
		return "- none (missing candidates.json)"
	}
	var file literature.File
	if err := json.Unmarshal(data, &file); err != nil {
		return "- none (invalid candidates.json)"
	}
	if len(file.Candidates) == 0 {
		return "- none (no candidates listed)"
	}

	var lines []string
	for idx, c := range file.Candidates {
		if idx >= maxItems {
			break
		}
		title := strings.TrimSpace(literature.AsciiFold(c.Title))
		if title == "" {
			title = "untitled"
		}
		year := strings.TrimSpace(c.Year)
		if year == "" {
			year = "n.d."
		}
		var authors []string
		for _, author := range c.Authors {
			if a := strings.TrimSpace(literature.AsciiFold(author)); a != "" {
				authors = append(authors, a)
			}
		}
		authorsText := "unknown authors"
		if len(authors) > 0 {
			authorsText = strings.Join(authors, ", ")
		}
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = "unknown id"
		}
		idType := strings.TrimSpace(c.IDType)
		if idType == "" {
			idType = "id"
		}
		status := strings.TrimSpace(c.Status)
		if status == "" {
			status = "UNKNOWN"
		}
		line := fmt.Sprintf("- [%d] %s (%s), %s. %s: %s. confidence: %.2f. status: %s.",
			idx+1, title, year, authorsText, idType, id, c.Confidence, status)
		if url := strings.TrimSpace(c.URL); url != "" {
			line += fmt.Sprintf(" url: %s.", url)
		}
		var reasons []string
		for _, reason := range c.Reasons {
			if r := strings.TrimSpace(literature.AsciiFold(reason)); r != "" {
				reasons = append(reasons, r)
			}
			if len(reasons) == 3 {
				break
			}
		}
		if len(reasons) > 0 {
			line += fmt.Sprintf(" reasons: %s.", strings.Join(reasons, "; "))
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "- none (no usable candidates)"
	}
	return strings.Join(lines, "\n")
}
