// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit generates and parses the semantic audit checklist: the
// human review record confirming a Lean formalization says what the
// frozen statement says. A solved or disproved claim is gated on this
// record being COMPLETE (or LEGACY for entries predating the tool).
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/erdoslab/erdoslab/services/problems"
)

type Status string

const (
	StatusComplete   Status = "COMPLETE"
	StatusLegacy     Status = "LEGACY"
	StatusIncomplete Status = "INCOMPLETE"
	StatusMissing    Status = "MISSING"
)

// Accepted reports whether the audit status satisfies the gate for a
// solved or disproved claim.
func (s Status) Accepted() bool {
	return s == StatusComplete || s == StatusLegacy
}

// AuditFileName is the checklist location relative to a problem directory.
const AuditFileName = "statement/semantic_audit.md"

var (
	statusLinePattern = regexp.MustCompile(`(?m)^Status:\s*(\S+)`)
	leanDeclPattern   = regexp.MustCompile(`^(theorem|lemma|def|structure|class|abbrev)\s+`)
)

// maxDeclarations caps how many Lean declarations the checklist quotes.
const maxDeclarations = 20

// ParseStatus reads the Status: line out of checklist content. Anything
// other than an explicit COMPLETE or LEGACY counts as INCOMPLETE.
func ParseStatus(content string) Status {
	m := statusLinePattern.FindStringSubmatch(content)
	if m == nil {
		return StatusIncomplete
	}
	switch Status(strings.ToUpper(m[1])) {
	case StatusComplete:
		return StatusComplete
	case StatusLegacy:
		return StatusLegacy
	default:
		return StatusIncomplete
	}
}

// ReadStatus loads the checklist for a problem directory and parses its
// status. A missing checklist is StatusMissing, not an error.
func ReadStatus(problemDir string) (Status, error) {
	raw, err := os.ReadFile(filepath.Join(problemDir, filepath.FromSlash(AuditFileName)))
	if err != nil {
		if os.IsNotExist(err) {
			return StatusMissing, nil
		}
		return StatusMissing, fmt.Errorf("failed to read audit checklist: %w", err)
	}
	return ParseStatus(string(raw)), nil
}

// ExtractLeanDeclarations lists top-level declaration lines from a Lean
// file so the reviewer sees what was actually formalized. Capped at
// maxDeclarations lines.
func ExtractLeanDeclarations(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lean file: %w", err)
	}
	var decls []string
	for _, line := range strings.Split(string(raw), "\n") {
		stripped := strings.TrimSpace(line)
		if leanDeclPattern.MatchString(stripped) {
			decls = append(decls, stripped)
			if len(decls) == maxDeclarations {
				break
			}
		}
	}
	return decls, nil
}

// Params configures checklist generation. RunDir may be empty when the
// caller has no solver run to fall back to.
type Params struct {
	Root       string
	ProblemID  string
	ProblemDir string
	RunDir     string
	LeanFile   string
}

// ResolveLeanFile picks the Lean source the checklist should quote:
// an explicit override first, then the gated proof file for the problem,
// then the formalizer response inside the given solver run.
func ResolveLeanFile(p Params) string {
	if p.LeanFile != "" {
		if filepath.IsAbs(p.LeanFile) {
			return p.LeanFile
		}
		return filepath.Join(p.Root, filepath.FromSlash(p.LeanFile))
	}
	gated := filepath.Join(p.Root, "ErdosLab", "Problems", p.ProblemID+".lean")
	if _, err := os.Stat(gated); err == nil {
		return gated
	}
	if p.RunDir != "" {
		candidate := filepath.Join(p.RunDir, "lean", "formalizer_response.lean")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Generate writes statement/semantic_audit.md for a problem and returns
// its path. The checklist always starts out INCOMPLETE; only a reviewer
// flips the status.
func Generate(p Params) (string, error) {
	frozenText := ""
	if raw, err := os.ReadFile(filepath.Join(p.ProblemDir, "statement", "frozen_v1.md")); err == nil {
		frozenText = string(raw)
	}
	statement := problems.ExtractStatement(frozenText)

	leanPath := ResolveLeanFile(p)
	var decls []string
	leanRel := "(none found)"
	if leanPath != "" {
		var err error
		decls, err = ExtractLeanDeclarations(leanPath)
		if err != nil {
			return "", err
		}
		if rel, err := filepath.Rel(p.Root, leanPath); err == nil {
			leanRel = rel
		} else {
			leanRel = leanPath
		}
	}

	var b strings.Builder
	b.WriteString("# Semantic Audit Checklist\n\n")
	b.WriteString("Status: INCOMPLETE\n")
	b.WriteString("Reviewer: TBD\n")
	b.WriteString("Notes: TBD\n\n")
	fmt.Fprintf(&b, "- problem_id: %s\n", p.ProblemID)
	fmt.Fprintf(&b, "- generated_at: %s\n", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "- lean_file: %s\n\n", leanRel)
	b.WriteString("Frozen statement (excerpt):\n```\n")
	b.WriteString(strings.TrimSpace(statement))
	b.WriteString("\n```\n\n")
	b.WriteString("Lean statement candidates:\n")
	if len(decls) > 0 {
		for _, d := range decls {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	} else {
		b.WriteString("- (none found)\n")
	}
	b.WriteString("\nChecklist:\n")
	b.WriteString("- [ ] Quantifiers and domains match the frozen statement.\n")
	b.WriteString("- [ ] All hypotheses and side conditions are present.\n")
	b.WriteString("- [ ] Edge cases (n=0/1, empty sets, etc.) are handled.\n")
	b.WriteString("- [ ] Definitions align with the informal statement.\n")
	b.WriteString("- [ ] The Lean theorem is not a weaker/stronger variant.\n")
	b.WriteString("\nReviewer notes:\n- \n")

	auditPath := filepath.Join(p.ProblemDir, filepath.FromSlash(AuditFileName))
	if err := os.MkdirAll(filepath.Dir(auditPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create statement directory: %w", err)
	}
	if err := os.WriteFile(auditPath, []byte(strings.TrimRight(b.String(), "\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write audit checklist: %w", err)
	}
	return auditPath, nil
}
