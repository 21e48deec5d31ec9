// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package literature

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptVersion is stamped into rendered prompts so stale responses are
// recognizable.
const PromptVersion = "v1"

// ResponsePlaceholder seeds a response file awaiting pasted model output.
const ResponsePlaceholder = "# Paste model output below\n\n"

// PromptParams carries the problem context a scout prompt needs.
type PromptParams struct {
	ProblemID     string
	ProblemNumber int
	Title         string
	ProblemURL    string
	ForumURL      string
	StatementText string
}

// RenderScoutPrompt renders the literature scout prompt with the fixed
// response schema. The schema is part of the contract with the ingest
// path; changing a field name here breaks every saved response.
func RenderScoutPrompt(p PromptParams) string {
	keywords := ExtractKeywords(p.StatementText, 10)
	keywordLine := "none"
	if len(keywords) > 0 {
		keywordLine = strings.Join(keywords, ", ")
	}
	statement := p.StatementText
	if statement == "" {
		statement = "TBD (statement unavailable)."
	}
	titleLine := p.Title
	if titleLine == "" {
		titleLine = fmt.Sprintf("Erdos Problem #%d", p.ProblemNumber)
	}

	var b strings.Builder
	b.WriteString("# Literature Scout Prompt (manual)\n")
	fmt.Fprintf(&b, "\nVersion: %s\n", PromptVersion)
	b.WriteString("\nYou are assisting a literature scout for an Erdos problem. " +
		"Your task is to find candidate references in the mathematical literature. " +
		"Do NOT claim the problem is solved. Do NOT mark anything as verified. " +
		"Only output candidates with verifiable identifiers (DOI/arXiv/zbMATH/OpenAlex). " +
		"If you cannot find suitable candidates, return an empty list and include an error note.\n")
	b.WriteString("\nProblem context:\n")
	fmt.Fprintf(&b, "- problem_id: %s\n", p.ProblemID)
	fmt.Fprintf(&b, "- title: %s\n", titleLine)
	fmt.Fprintf(&b, "- problem_url: %s\n", p.ProblemURL)
	fmt.Fprintf(&b, "- forum_url: %s\n", p.ForumURL)
	fmt.Fprintf(&b, "- keywords: %s\n", keywordLine)
	b.WriteString("\nFrozen statement:\n")
	b.WriteString(statement + "\n")
	b.WriteString("\nOutput format (STRICT): return exactly one JSON object in a single ```json``` block.\n")
	b.WriteString("Do not include extra prose outside the JSON.\n")
	b.WriteString("\nRequired JSON schema:\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"problem_id\": %q,\n", p.ProblemID)
	b.WriteString("  \"generated_at\": \"YYYY-MM-DD\",\n")
	b.WriteString("  \"solver_used_scout\": false,\n")
	b.WriteString("  \"queries\": [\n")
	b.WriteString("    {\"query\": \"...\", \"notes\": \"...\"}\n")
	b.WriteString("  ],\n")
	b.WriteString("  \"candidates\": [\n")
	b.WriteString("    {\n")
	b.WriteString("      \"id\": \"10.1234/abcd\" | \"2101.01234\" | \"3138648\" | \"https://openalex.org/W...\",\n")
	b.WriteString("      \"id_type\": \"doi\" | \"arxiv\" | \"zbmath\" | \"openalex\",\n")
	b.WriteString("      \"title\": \"...\",\n")
	b.WriteString("      \"authors\": [\"...\"],\n")
	b.WriteString("      \"year\": \"YYYY\",\n")
	b.WriteString("      \"url\": \"https://...\",\n")
	b.WriteString("      \"confidence\": 0.0,\n")
	b.WriteString("      \"reasons\": [\"why this might be relevant\"],\n")
	b.WriteString("      \"status\": \"NEEDS_REVIEW\"\n")
	b.WriteString("    }\n")
	b.WriteString("  ],\n")
	b.WriteString("  \"errors\": [\"... optional ...\"]\n")
	b.WriteString("}\n")
	b.WriteString("\nRules:\n")
	b.WriteString("- Include ONLY candidates with verifiable identifiers.\n")
	b.WriteString("- Provide at least one explicit reason per candidate.\n")
	b.WriteString("- Keep status = NEEDS_REVIEW.\n")
	fmt.Fprintf(&b, "- Max %d candidates.\n", MaxCandidates)
	return b.String()
}

// WriteScoutFiles writes the prompt (always refreshed) and seeds the
// response file (never overwritten; it may hold pasted output).
func WriteScoutFiles(literatureDir, promptText string) error {
	if err := os.MkdirAll(literatureDir, 0o755); err != nil {
		return fmt.Errorf("failed to create literature directory: %w", err)
	}
	promptPath := filepath.Join(literatureDir, "scout_prompt.md")
	if err := os.WriteFile(promptPath, []byte(strings.TrimRight(promptText, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write scout prompt: %w", err)
	}
	responsePath := filepath.Join(literatureDir, "scout_response.md")
	if _, err := os.Stat(responsePath); os.IsNotExist(err) {
		if err := os.WriteFile(responsePath, []byte(ResponsePlaceholder), 0o644); err != nil {
			return fmt.Errorf("failed to seed scout response: %w", err)
		}
	}
	return nil
}
