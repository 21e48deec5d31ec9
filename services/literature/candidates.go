// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package literature

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MaxCandidates bounds candidates.json after a merge.
const MaxCandidates = 20

// StatusNeedsReview is the only status a candidate ever carries. Nothing
// in this package verifies references; a human flips the triage box.
const StatusNeedsReview = "NEEDS_REVIEW"

// AllowedIDTypes are the verifiable identifier namespaces.
var AllowedIDTypes = map[string]bool{
	"doi":      true,
	"arxiv":    true,
	"zbmath":   true,
	"openalex": true,
}

// Provenance records where a candidate entry came from.
type Provenance struct {
	Provider  string `json:"provider"`
	Query     string `json:"query"`
	SourceURL string `json:"source_url"`
	FetchedAt string `json:"fetched_at"`
	CacheHit  bool   `json:"cache_hit"`
}

// Candidate is one literature reference awaiting review.
type Candidate struct {
	ID         string       `json:"id"`
	IDType     string       `json:"id_type"`
	Title      string       `json:"title"`
	Authors    []string     `json:"authors"`
	Year       string       `json:"year,omitempty"`
	URL        string       `json:"url,omitempty"`
	Confidence float64      `json:"confidence"`
	Reasons    []string     `json:"reasons"`
	Status     string       `json:"status"`
	Provenance []Provenance `json:"provenance"`
}

// File is the candidates.json document.
type File struct {
	ProblemID       string            `json:"problem_id"`
	GeneratedAt     string            `json:"generated_at"`
	Offline         bool              `json:"offline"`
	SolverUsedScout bool              `json:"solver_used_scout"`
	Queries         []json.RawMessage `json:"queries"`
	Candidates      []Candidate       `json:"candidates"`
	Errors          []string          `json:"errors"`
}

var fencedJSONPattern = regexp.MustCompile("(?is)```json(.*?)```")
var fencedAnyPattern = regexp.MustCompile("(?s)```(.*?)```")

// ExtractJSON pulls the JSON object out of pasted model output: a
// ```json fence first, any fence second, the whole text last. Returns an
// error when no candidate parses to an object.
func ExtractJSON(text string) (map[string]json.RawMessage, error) {
	blob := text
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		blob = m[1]
	} else if m := fencedAnyPattern.FindStringSubmatch(text); m != nil {
		blob = m[1]
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(blob)), &obj); err != nil {
		return nil, fmt.Errorf("could not parse JSON object from response: %w", err)
	}
	return obj, nil
}

var digitPattern = regexp.MustCompile(`\d`)

// NormalizeID canonicalizes an identifier for its type. Empty result
// means the identifier is unusable.
func NormalizeID(idType, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	switch idType {
	case "doi":
		if strings.HasPrefix(value, "http") {
			if idx := strings.LastIndex(value, "doi.org/"); idx >= 0 {
				value = value[idx+len("doi.org/"):]
			}
		}
		return strings.ToLower(value)
	case "arxiv":
		if digitPattern.MatchString(value) {
			return value
		}
		return ""
	case "zbmath":
		for _, r := range value {
			if r < '0' || r > '9' {
				return ""
			}
		}
		return value
	case "openalex":
		return value
	}
	return ""
}

// NormalizeURL fills in the canonical landing page when the model gave
// none.
func NormalizeURL(idType, id, url string) string {
	if strings.TrimSpace(url) != "" {
		return strings.TrimSpace(url)
	}
	switch idType {
	case "doi":
		return "https://doi.org/" + id
	case "arxiv":
		return "https://arxiv.org/abs/" + id
	case "zbmath":
		return "https://zbmath.org/" + id
	case "openalex":
		if strings.HasPrefix(id, "http") {
			return id
		}
		return "https://openalex.org/" + id
	}
	return ""
}

// ComputeConfidence scores a candidate from its identifier type and
// keyword overlap with the statement: base 0.35, +0.1 for doi/arxiv
// (+0.05 otherwise), +0.05 per matched keyword, capped at 0.95.
func ComputeConfidence(title string, keywords []string, idType string) (float64, []string) {
	titleLower := strings.ToLower(title)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(titleLower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	var reasons []string
	if len(matched) > 0 {
		shown := matched
		if len(shown) > 4 {
			shown = shown[:4]
		}
		reasons = append(reasons, "keyword match: "+strings.Join(shown, ", "))
	} else {
		reasons = append(reasons, "no keyword match in title")
	}
	reasons = append(reasons, "identifier: "+idType)

	base := 0.35 + 0.05
	if idType == "doi" || idType == "arxiv" {
		base = 0.35 + 0.1
	}
	score := base + 0.05*float64(len(matched))
	if score > 0.95 {
		score = 0.95
	}
	return score, reasons
}

// dedupeKey identifies a candidate across providers: identifier when
// available, otherwise a title/year/first-author fingerprint.
func dedupeKey(c Candidate) string {
	if c.ID != "" && c.IDType != "" {
		return c.IDType + ":" + strings.ToLower(c.ID)
	}
	author := ""
	if len(c.Authors) > 0 {
		author = c.Authors[0]
	}
	return "title:" + NormalizeTitle(c.Title) + ":" + c.Year + ":" + NormalizeTitle(author)
}

// mergeProvenance unions provenance entries and keeps the higher
// confidence (with its reasons).
func mergeProvenance(existing *Candidate, incoming Candidate) {
	for _, entry := range incoming.Provenance {
		dup := false
		for _, have := range existing.Provenance {
			if have == entry {
				dup = true
				break
			}
		}
		if !dup {
			existing.Provenance = append(existing.Provenance, entry)
		}
	}
	if incoming.Confidence > existing.Confidence {
		existing.Confidence = incoming.Confidence
		existing.Reasons = incoming.Reasons
	}
}

// Dedupe merges duplicate candidates, preserving first-seen order.
func Dedupe(candidates []Candidate) []Candidate {
	index := make(map[string]int)
	var out []Candidate
	for _, c := range candidates {
		key := dedupeKey(c)
		if at, ok := index[key]; ok {
			mergeProvenance(&out[at], c)
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

// SortByConfidence orders candidates best-first, ties broken by year.
func SortByConfidence(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Year < candidates[j].Year
	})
}

// NormalizeCandidate validates and canonicalizes one raw candidate from
// model output. Violations are appended to errs; nil return means the
// candidate is dropped.
func NormalizeCandidate(raw map[string]json.RawMessage, source string, errs *[]string) *Candidate {
	idType := stringField(raw, "id_type")
	if !AllowedIDTypes[idType] {
		*errs = append(*errs, fmt.Sprintf("candidate missing/invalid id_type: %s", idType))
		return nil
	}
	id := NormalizeID(idType, stringField(raw, "id"))
	if id == "" {
		*errs = append(*errs, fmt.Sprintf("candidate invalid id for type %s", idType))
		return nil
	}
	title := strings.TrimSpace(stringField(raw, "title"))
	if title == "" {
		*errs = append(*errs, fmt.Sprintf("candidate %s missing title", id))
		return nil
	}
	reasons := stringListField(raw, "reasons")
	if len(reasons) == 0 {
		*errs = append(*errs, fmt.Sprintf("candidate %s missing reasons", id))
		return nil
	}
	var confidence float64
	if rawConf, ok := raw["confidence"]; !ok || json.Unmarshal(rawConf, &confidence) != nil {
		*errs = append(*errs, fmt.Sprintf("candidate %s missing confidence", id))
		return nil
	}

	var authors []string
	for _, a := range stringListField(raw, "authors") {
		if s := strings.TrimSpace(AsciiFold(a)); s != "" {
			authors = append(authors, s)
		}
	}
	year := stringField(raw, "year")
	if year == "" {
		var n int
		if rawYear, ok := raw["year"]; ok && json.Unmarshal(rawYear, &n) == nil {
			year = fmt.Sprintf("%d", n)
		}
	}
	safeReasons := make([]string, 0, len(reasons))
	for _, r := range reasons {
		safeReasons = append(safeReasons, AsciiFold(r))
	}

	return &Candidate{
		ID:         id,
		IDType:     idType,
		Title:      AsciiFold(title),
		Authors:    authors,
		Year:       year,
		URL:        NormalizeURL(idType, id, stringField(raw, "url")),
		Confidence: confidence,
		Reasons:    safeReasons,
		Status:     StatusNeedsReview,
		Provenance: []Provenance{{
			Provider:  source,
			Query:     "manual",
			SourceURL: "manual:" + source,
			FetchedAt: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		}},
	}
}

func stringField(raw map[string]json.RawMessage, key string) string {
	var s string
	if v, ok := raw[key]; ok && json.Unmarshal(v, &s) == nil {
		return s
	}
	return ""
}

func stringListField(raw map[string]json.RawMessage, key string) []string {
	var list []string
	if v, ok := raw[key]; ok && json.Unmarshal(v, &list) == nil {
		return list
	}
	return nil
}
