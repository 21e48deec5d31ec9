// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package literature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// IngestParams configures one ingest of pasted model output.
type IngestParams struct {
	ProblemID     string
	LiteratureDir string
	ResponsePath  string
	// Source labels provenance entries. Default depends on whether the
	// response came from the standard scout_response.md location.
	Source string
}

// IngestResult reports what an ingest did.
type IngestResult struct {
	Ingested int
	Total    int
	Warnings []string
}

// manualQuery is the provenance record appended to queries.json for one
// manual ingest.
type manualQuery struct {
	Provider       string            `json:"provider"`
	Query          string            `json:"query"`
	URL            *string           `json:"url"`
	CacheHit       bool              `json:"cache_hit"`
	Status         string            `json:"status"`
	Error          *string           `json:"error"`
	Timestamp      string            `json:"timestamp"`
	PromptSHA256   string            `json:"prompt_sha256,omitempty"`
	ResponseSHA256 string            `json:"response_sha256"`
	Queries        []json.RawMessage `json:"queries,omitempty"`
}

// Ingest parses model output, normalizes its candidates, merges them
// with any existing candidates.json, and rewrites the four literature
// files (candidates.json, candidates.md, queries.json, triage.md).
func Ingest(p IngestParams) (*IngestResult, error) {
	rawResponse, err := os.ReadFile(p.ResponsePath)
	if err != nil {
		return nil, fmt.Errorf("response file not found: %w", err)
	}
	responseText := string(rawResponse)

	payload, err := ExtractJSON(responseText)
	if err != nil {
		return nil, err
	}

	var rawCandidates []map[string]json.RawMessage
	if v, ok := payload["candidates"]; !ok || json.Unmarshal(v, &rawCandidates) != nil {
		return nil, fmt.Errorf("response JSON missing candidates list")
	}

	source := p.Source
	if source == "" {
		if filepath.Base(p.ResponsePath) == "scout_response.md" {
			source = "scout_manual"
		} else {
			source = "manual_llm"
		}
	}

	var warnings []string
	var incoming []Candidate
	for _, raw := range rawCandidates {
		if c := NormalizeCandidate(raw, source, &warnings); c != nil {
			incoming = append(incoming, *c)
		}
	}

	existing := loadFile(filepath.Join(p.LiteratureDir, "candidates.json"))
	existingQueries := loadQueries(filepath.Join(p.LiteratureDir, "queries.json"))
	if len(existingQueries) == 0 {
		existingQueries = existing.Queries
	}

	merged := Dedupe(append(existing.Candidates, incoming...))
	SortByConfidence(merged)
	if len(merged) > MaxCandidates {
		merged = merged[:MaxCandidates]
	}

	query := manualQuery{
		Provider:       source,
		Query:          "manual",
		Status:         "ok",
		Timestamp:      nowISO(),
		ResponseSHA256: hashText(responseText),
	}
	promptPath := filepath.Join(p.LiteratureDir, "scout_prompt.md")
	if rawPrompt, err := os.ReadFile(promptPath); err == nil {
		query.PromptSHA256 = hashText(string(rawPrompt))
	}
	var queryNotes []json.RawMessage
	if v, ok := payload["queries"]; ok && json.Unmarshal(v, &queryNotes) == nil {
		query.Queries = queryNotes
	}
	queryRaw, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query record: %w", err)
	}
	mergedQueries := append(existingQueries, queryRaw)

	combinedErrors := existing.Errors
	var responseErrors []string
	if v, ok := payload["errors"]; ok && json.Unmarshal(v, &responseErrors) == nil {
		combinedErrors = append(combinedErrors, responseErrors...)
	}
	combinedErrors = append(combinedErrors, warnings...)

	solverUsed := existing.SolverUsedScout
	var flag bool
	if v, ok := payload["solver_used_scout"]; ok && json.Unmarshal(v, &flag) == nil {
		solverUsed = solverUsed || flag
	}

	out := File{
		ProblemID:       p.ProblemID,
		GeneratedAt:     nowISO(),
		SolverUsedScout: solverUsed,
		Queries:         mergedQueries,
		Candidates:      merged,
		Errors:          combinedErrors,
	}
	if out.Candidates == nil {
		out.Candidates = []Candidate{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}

	if err := os.MkdirAll(p.LiteratureDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create literature directory: %w", err)
	}
	if err := writeJSON(filepath.Join(p.LiteratureDir, "candidates.json"), out); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(p.LiteratureDir, "queries.json"), map[string]any{
		"generated_at": out.GeneratedAt,
		"queries":      mergedQueries,
	}); err != nil {
		return nil, err
	}
	if err := writeCandidatesMarkdown(filepath.Join(p.LiteratureDir, "candidates.md"), merged, out.GeneratedAt, combinedErrors); err != nil {
		return nil, err
	}
	if err := writeTriageMarkdown(filepath.Join(p.LiteratureDir, "triage.md"), merged, out.GeneratedAt); err != nil {
		return nil, err
	}

	return &IngestResult{Ingested: len(incoming), Total: len(merged), Warnings: warnings}, nil
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func loadFile(path string) File {
	var f File
	raw, err := os.ReadFile(path)
	if err != nil {
		return f
	}
	_ = json.Unmarshal(raw, &f)
	return f
}

func loadQueries(path string) []json.RawMessage {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var doc struct {
		Queries []json.RawMessage `json:"queries"`
	}
	if json.Unmarshal(raw, &doc) != nil {
		return nil
	}
	return doc.Queries
}

func writeJSON(path string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeCandidatesMarkdown(path string, candidates []Candidate, generatedAt string, errs []string) error {
	var b strings.Builder
	b.WriteString("# Literature Candidates (UNVERIFIED)\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt)
	b.WriteString("Status: discovery-only; NO results are verified.\n\n")
	if len(candidates) == 0 {
		b.WriteString("No verified candidates returned.\n")
	} else {
		b.WriteString("Candidates (ranked):\n")
		for i, c := range candidates {
			year := c.Year
			if year == "" {
				year = "unknown year"
			}
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, c.Title, year)
			if c.URL != "" {
				fmt.Fprintf(&b, "   url: %s\n", c.URL)
			}
			fmt.Fprintf(&b, "   id: %s:%s\n", c.IDType, c.ID)
			fmt.Fprintf(&b, "   confidence: %.2f\n", c.Confidence)
			if len(c.Reasons) > 0 {
				fmt.Fprintf(&b, "   reasons: %s\n", strings.Join(c.Reasons, ", "))
			}
			fmt.Fprintf(&b, "   status: %s\n", c.Status)
		}
	}
	if len(errs) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range errs {
			fmt.Fprintf(&b, "- %s\n", AsciiFold(e))
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeTriageMarkdown(path string, candidates []Candidate, generatedAt string) error {
	var b strings.Builder
	b.WriteString("# Literature Triage\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt)
	if len(candidates) == 0 {
		b.WriteString("No candidates to triage.\n")
	} else {
		for _, c := range candidates {
			year := c.Year
			if year == "" {
				year = "unknown year"
			}
			fmt.Fprintf(&b, "- [ ] %s:%s (%s) - %s [%s]\n", c.IDType, c.ID, year, c.Title, c.Status)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
