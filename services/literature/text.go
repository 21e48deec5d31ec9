// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package literature handles candidate references for a problem: the
// scout prompt with its fixed JSON schema, ingestion of pasted model
// output, normalization, dedupe, and the rendered triage files. Web
// scraping is deliberately absent; candidates only enter through the
// manual ingest path.
package literature

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopwords excluded from keyword extraction. Short function words plus
// "true", which shows up constantly in formal statements.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "that": true, "the": true,
	"their": true, "this": true, "to": true, "was": true, "were": true,
	"with": true, "without": true, "true": true,
}

var (
	mathInlinePattern = regexp.MustCompile(`\$[^$]*\$`)
	texMacroPattern   = regexp.MustCompile(`\\[A-Za-z]+`)
	tokenPattern      = regexp.MustCompile(`[A-Za-z0-9]+`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9]+`)
)

var asciiFolder = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// AsciiFold strips diacritics and drops any remaining non-ASCII runes.
// Candidate titles and author names from LLM output routinely carry
// accented characters that break the plain-text triage files.
func AsciiFold(text string) string {
	folded, _, err := transform.String(asciiFolder, text)
	if err != nil {
		// Fall back to dropping non-ASCII bytes outright.
		var b strings.Builder
		for _, r := range text {
			if r <= unicode.MaxASCII {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return folded
}

// NormalizeTitle reduces a title to lowercase alphanumerics for dedupe
// keys.
func NormalizeTitle(text string) string {
	return nonAlnumPattern.ReplaceAllString(strings.ToLower(text), "")
}

func tokenize(text string) []string {
	var tokens []string
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if token != "" && !stopwords[token] {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// ExtractKeywords ranks the content words of a statement by frequency,
// ties broken alphabetically. TeX math and macros are stripped first;
// tokens shorter than four characters are ignored.
func ExtractKeywords(text string, limit int) []string {
	if text == "" {
		return nil
	}
	cleaned := mathInlinePattern.ReplaceAllString(text, " ")
	cleaned = texMacroPattern.ReplaceAllString(cleaned, " ")

	counts := make(map[string]int)
	for _, token := range tokenize(cleaned) {
		if len(token) < 4 {
			continue
		}
		counts[token]++
	}

	ranked := make([]string, 0, len(counts))
	for token := range counts {
		ranked = append(ranked, token)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// BuildQueries assembles deduplicated search queries for a problem:
// title, top keywords, and the canonical "Erdos problem N" form.
func BuildQueries(problemNumber int, title string, keywords []string) []string {
	var queries []string
	if title != "" {
		queries = append(queries, title)
	}
	if len(keywords) > 0 {
		top := keywords
		if len(top) > 6 {
			top = top[:6]
		}
		queries = append(queries, strings.Join(top, " "))
	}
	queries = append(queries, "Erdos problem "+strconv.Itoa(problemNumber))

	seen := make(map[string]bool)
	var unique []string
	for _, q := range queries {
		cleaned := strings.Join(strings.Fields(q), " ")
		if cleaned != "" && !seen[cleaned] {
			seen[cleaned] = true
			unique = append(unique, cleaned)
		}
	}
	return unique
}
