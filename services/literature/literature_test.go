// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package literature

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsciiFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "Erdos problems", "Erdos problems"},
		{"diacritics", "Erdős Pál", "Erdos Pal"},
		{"french", "théorème", "theoreme"},
		{"cjk dropped", "定理 theorem", " theorem"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AsciiFold(tc.input))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	statement := "Let $f(n)$ be the number of distinct prime divisors. " +
		"Prove that prime divisors of consecutive integers are distinct. " +
		"\\textbf{prime} divisors appear often."

	keywords := ExtractKeywords(statement, 5)
	require.NotEmpty(t, keywords)
	// "prime" and "divisors" occur three times each; frequency wins,
	// ties break alphabetically.
	assert.Equal(t, "divisors", keywords[0])
	assert.Equal(t, "prime", keywords[1])
	for _, kw := range keywords {
		assert.GreaterOrEqual(t, len(kw), 4)
	}

	assert.Nil(t, ExtractKeywords("", 5))
}

func TestBuildQueries(t *testing.T) {
	queries := BuildQueries(379, "Distinct sums", []string{"distinct", "sums"})
	require.Len(t, queries, 3)
	assert.Equal(t, "Distinct sums", queries[0])
	assert.Equal(t, "distinct sums", queries[1])
	assert.Equal(t, "Erdos problem 379", queries[2])

	// Duplicate-free even when title equals keyword join.
	queries = BuildQueries(7, "", nil)
	assert.Equal(t, []string{"Erdos problem 7"}, queries)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"json fence", "intro\n```json\n{\"candidates\": []}\n```\ntrailing", false},
		{"bare fence", "```\n{\"candidates\": []}\n```", false},
		{"no fence", "{\"candidates\": []}", false},
		{"case insensitive fence", "```JSON\n{\"a\": 1}\n```", false},
		{"not an object", "```json\n[1, 2]\n```", true},
		{"prose only", "I could not find anything.", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractJSON(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		idType string
		value  string
		want   string
	}{
		{"doi", "10.1234/ABCD", "10.1234/abcd"},
		{"doi", "https://doi.org/10.1234/AbCd", "10.1234/abcd"},
		{"arxiv", "2101.01234", "2101.01234"},
		{"arxiv", "no-digits-here", ""},
		{"zbmath", "3138648", "3138648"},
		{"zbmath", "31x8648", ""},
		{"openalex", "W2091234", "W2091234"},
		{"doi", "  ", ""},
		{"isbn", "123", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeID(tc.idType, tc.value),
			"NormalizeID(%q, %q)", tc.idType, tc.value)
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://doi.org/10.1/x", NormalizeURL("doi", "10.1/x", ""))
	assert.Equal(t, "https://arxiv.org/abs/2101.01234", NormalizeURL("arxiv", "2101.01234", ""))
	assert.Equal(t, "https://zbmath.org/3138648", NormalizeURL("zbmath", "3138648", ""))
	assert.Equal(t, "https://openalex.org/W1", NormalizeURL("openalex", "W1", ""))
	assert.Equal(t, "https://example.org/paper", NormalizeURL("doi", "10.1/x", " https://example.org/paper "))
}

func TestComputeConfidence(t *testing.T) {
	// Base 0.45 for doi plus 0.05 per matched keyword.
	score, reasons := ComputeConfidence("On distinct prime sums", []string{"distinct", "prime", "graphs"}, "doi")
	assert.InDelta(t, 0.55, score, 1e-9)
	require.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "keyword match: distinct, prime")

	// Non-doi/arxiv base is 0.40.
	score, reasons = ComputeConfidence("Unrelated title", nil, "zbmath")
	assert.InDelta(t, 0.40, score, 1e-9)
	assert.Contains(t, reasons[0], "no keyword match")

	// Capped at 0.95.
	var many []string
	for i := 0; i < 20; i++ {
		many = append(many, "prime")
	}
	score, _ = ComputeConfidence("prime", many, "doi")
	assert.InDelta(t, 0.95, score, 1e-9)
}

func TestDedupeMergesProvenanceAndConfidence(t *testing.T) {
	a := Candidate{
		ID: "10.1/x", IDType: "doi", Title: "A", Confidence: 0.5,
		Reasons:    []string{"first"},
		Provenance: []Provenance{{Provider: "scout_manual", Query: "manual"}},
	}
	b := Candidate{
		ID: "10.1/X", IDType: "doi", Title: "A", Confidence: 0.7,
		Reasons:    []string{"second"},
		Provenance: []Provenance{{Provider: "other", Query: "manual"}},
	}
	c := Candidate{
		Title: "Unique by title", Year: "1999", Authors: []string{"Erdos"},
		Confidence: 0.4,
	}

	out := Dedupe([]Candidate{a, b, c})
	require.Len(t, out, 2)
	assert.Equal(t, 0.7, out[0].Confidence)
	assert.Equal(t, []string{"second"}, out[0].Reasons)
	assert.Len(t, out[0].Provenance, 2)
}

func TestIngestMergesAndWritesFiles(t *testing.T) {
	dir := t.TempDir()
	response := filepath.Join(dir, "scout_response.md")
	body := "Here are candidates.\n```json\n" + `{
  "problem_id": "P0379",
  "solver_used_scout": false,
  "queries": [{"query": "distinct sums", "notes": "title search"}],
  "candidates": [
    {
      "id": "https://doi.org/10.1234/ABCD",
      "id_type": "doi",
      "title": "On distínct sums",
      "authors": ["P. Erdős"],
      "year": 1975,
      "confidence": 0.8,
      "reasons": ["matches statement"],
      "status": "NEEDS_REVIEW"
    },
    {
      "id_type": "isbn",
      "id": "x",
      "title": "bad",
      "confidence": 0.2,
      "reasons": ["r"]
    }
  ],
  "errors": []
}` + "\n```\n"
	require.NoError(t, os.WriteFile(response, []byte(body), 0o644))

	result, err := Ingest(IngestParams{
		ProblemID:     "P0379",
		LiteratureDir: dir,
		ResponsePath:  response,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingested)
	assert.Equal(t, 1, result.Total)
	assert.NotEmpty(t, result.Warnings)

	raw, err := os.ReadFile(filepath.Join(dir, "candidates.json"))
	require.NoError(t, err)
	var file File
	require.NoError(t, json.Unmarshal(raw, &file))
	require.Len(t, file.Candidates, 1)

	cand := file.Candidates[0]
	assert.Equal(t, "10.1234/abcd", cand.ID)
	assert.Equal(t, "On distinct sums", cand.Title)
	assert.Equal(t, []string{"P. Erdos"}, cand.Authors)
	assert.Equal(t, "1975", cand.Year)
	assert.Equal(t, "https://doi.org/10.1234/abcd", cand.URL)
	assert.Equal(t, StatusNeedsReview, cand.Status)
	require.Len(t, cand.Provenance, 1)
	assert.Equal(t, "scout_manual", cand.Provenance[0].Provider)

	for _, name := range []string{"candidates.md", "triage.md", "queries.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "expected %s to be written", name)
	}

	// Re-ingesting the same response merges rather than duplicates.
	result, err = Ingest(IngestParams{ProblemID: "P0379", LiteratureDir: dir, ResponsePath: response})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestIngestRejectsMissingCandidates(t *testing.T) {
	dir := t.TempDir()
	response := filepath.Join(dir, "r.md")
	require.NoError(t, os.WriteFile(response, []byte("```json\n{\"plans\": []}\n```"), 0o644))

	_, err := Ingest(IngestParams{ProblemID: "P0001", LiteratureDir: dir, ResponsePath: response})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidates")
}
