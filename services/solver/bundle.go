// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"path/filepath"

	"github.com/erdoslab/erdoslab/services/literature"
	"github.com/erdoslab/erdoslab/services/problems"
)

// InputBundle is the machine-readable context a planner run starts from. It
// is written next to the prompt so a response can always be traced back to
// the exact inputs it saw.
type InputBundle struct {
	ProblemID                string              `json:"problem_id"`
	Title                    string              `json:"title"`
	GeneratedAt              string              `json:"generated_at"`
	ProblemURL               string              `json:"problem_url"`
	ForumURL                 string              `json:"forum_url"`
	StatementText            string              `json:"statement_text"`
	Keywords                 []string            `json:"keywords"`
	LiteratureCandidatesPath string              `json:"literature_candidates_path"`
	ClaimState               string              `json:"claim_state"`
	Evidence                 []problems.Evidence `json:"evidence"`
	Notes                    string              `json:"notes"`
}

// BuildInputBundle snapshots the problem context for one run. A broken or
// missing status.json degrades to empty claim/evidence rather than failing:
// the planner loop must work on half-scaffolded problems too.
func BuildInputBundle(problemDir, problemID, title, problemURL, forumURL, statementText string) InputBundle {
	bundle := InputBundle{
		ProblemID:                problemID,
		Title:                    title,
		GeneratedAt:              nowISO(),
		ProblemURL:               problemURL,
		ForumURL:                 forumURL,
		StatementText:            statementText,
		Keywords:                 literature.ExtractKeywords(statementText, 10),
		LiteratureCandidatesPath: filepath.Join(problemDir, "literature", "candidates.json"),
		Evidence:                 []problems.Evidence{},
		Notes:                    "Do not treat candidates as verified.",
	}
	if status, err := problems.LoadStatus(filepath.Join(problemDir, "status.json")); err == nil {
		bundle.ClaimState = string(status.Claim.State)
		if status.Evidence != nil {
			bundle.Evidence = status.Evidence
		}
	}
	return bundle
}
