// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdoslab/erdoslab/services/policy_engine"
	"github.com/erdoslab/erdoslab/services/problems"
)

func newFixture(t *testing.T) (*problems.Repository, *Checker) {
	t.Helper()
	repo, err := problems.NewRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(repo.ProblemsDir(), 0o755))

	engine, err := policy_engine.NewPolicyEngine()
	require.NoError(t, err)

	checker := NewChecker(repo, engine, Options{})
	return repo, checker
}

func scaffold(t *testing.T, repo *problems.Repository, id string) string {
	t.Helper()
	dir, err := repo.Scaffold(id, "")
	require.NoError(t, err)
	return dir
}

func setState(t *testing.T, dir string, state problems.State, evidence []problems.Evidence) {
	t.Helper()
	statusPath := filepath.Join(dir, "status.json")
	status, err := problems.LoadStatus(statusPath)
	require.NoError(t, err)
	status.Claim.State = state
	if evidence != nil {
		status.Evidence = evidence
	}
	require.NoError(t, status.Save(statusPath))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func findRules(report *Report) []string {
	var rules []string
	for _, f := range report.Findings {
		rules = append(rules, f.Rule)
	}
	return rules
}

func TestEmptyTreePasses(t *testing.T) {
	_, checker := newFixture(t)

	report, err := checker.Run()
	require.NoError(t, err)
	assert.True(t, report.Pass())
	assert.Equal(t, 0, report.Problems)
}

func TestPartialProblemPasses(t *testing.T) {
	repo, checker := newFixture(t)
	scaffold(t, repo, "P0042")

	report, err := checker.Run()
	require.NoError(t, err)
	assert.True(t, report.Pass(), "findings: %v", report.Findings)
	assert.Equal(t, 1, report.Problems)
}

func TestUnknownStateIsFinding(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	setState(t, dir, problems.State("proved"), nil)

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleClaimState)
}

func TestProblemIDMismatchIsFinding(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")

	statusPath := filepath.Join(dir, "status.json")
	status, err := problems.LoadStatus(statusPath)
	require.NoError(t, err)
	status.ProblemID = "P0043"
	require.NoError(t, status.Save(statusPath))

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleStatusJSON)
}

func TestSolvedWithoutEvidenceOrAudit(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	setState(t, dir, problems.StateSolved, nil)

	report, err := checker.Run()
	require.NoError(t, err)

	rules := findRules(report)
	assert.Contains(t, rules, RuleEvidence)
	assert.Contains(t, rules, RuleAudit)
}

func solvedProblem(t *testing.T, repo *problems.Repository, leanContent string) string {
	t.Helper()
	dir := scaffold(t, repo, "P0042")
	writeFile(t, filepath.Join(dir, "proofs", "erdos_42.lean"), leanContent)
	writeFile(t, filepath.Join(dir, "statement", "semantic_audit.md"),
		"# Semantic Audit Checklist\n\nStatus: COMPLETE\nReviewer: R\n")
	setState(t, dir, problems.StateSolved, []problems.Evidence{
		{Type: problems.EvidenceLean, File: "proofs/erdos_42.lean", Theorem: "erdos_42"},
	})
	return dir
}

func TestSolvedWithCleanProofPasses(t *testing.T) {
	repo, checker := newFixture(t)
	solvedProblem(t, repo, "theorem erdos_42 : 1 + 1 = 2 := rfl\n")

	report, err := checker.Run()
	require.NoError(t, err)
	assert.True(t, report.Pass(), "findings: %v", report.Findings)
}

func TestSolvedWithSorryIsFinding(t *testing.T) {
	repo, checker := newFixture(t)
	solvedProblem(t, repo, "theorem erdos_42 : 1 + 1 = 2 := by\n  sorry\n")

	report, err := checker.Run()
	require.NoError(t, err)
	require.False(t, report.Pass())

	var hit *Finding
	for i := range report.Findings {
		if report.Findings[i].Rule == RulePlaceholder {
			hit = &report.Findings[i]
		}
	}
	require.NotNil(t, hit, "expected a placeholder finding, got %v", report.Findings)
	assert.Equal(t, 2, hit.Line)
}

func TestSolvedEvidenceMissingTheoremMention(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	writeFile(t, filepath.Join(dir, "proofs", "erdos_42.lean"),
		"theorem something_else : True := trivial\n")
	writeFile(t, filepath.Join(dir, "statement", "semantic_audit.md"), "Status: COMPLETE\n")
	setState(t, dir, problems.StateSolved, []problems.Evidence{
		{Type: problems.EvidenceLean, File: "proofs/erdos_42.lean", Theorem: "erdos_42"},
	})

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleEvidence)
}

func TestCitationEvidenceDoesNotSatisfySolved(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	writeFile(t, filepath.Join(dir, "statement", "semantic_audit.md"), "Status: COMPLETE\n")
	setState(t, dir, problems.StateSolved, []problems.Evidence{
		{Type: problems.EvidenceCitation, Ref: "doi:10.0000/x"},
	})

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleEvidence)
}

func TestEvidencePathEscapeIsFinding(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	writeFile(t, filepath.Join(dir, "statement", "semantic_audit.md"), "Status: COMPLETE\n")
	setState(t, dir, problems.StateSolved, []problems.Evidence{
		{Type: problems.EvidenceLean, File: "../../../etc/passwd", Theorem: "x"},
	})

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleEvidence)
}

func TestEvidenceSymlinkEscapeIsFinding(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	writeFile(t, filepath.Join(dir, "statement", "semantic_audit.md"), "Status: COMPLETE\n")

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.lean")
	writeFile(t, secret, "theorem hidden : True := trivial\n")
	link := filepath.Join(dir, "lean", "link.lean")
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0o755))
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	setState(t, dir, problems.StateSolved, []problems.Evidence{
		{Type: problems.EvidenceLean, File: "lean/link.lean", Theorem: "hidden"},
	})

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleEvidence)
}

func TestLiteratureSolvedRequiresSources(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	setState(t, dir, problems.StateLiteratureSolved, nil)

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleRequiredFile)

	writeFile(t, filepath.Join(dir, "literature", "primary_sources.md"), "# Sources\n")
	writeFile(t, filepath.Join(dir, "literature", "mapping.md"), "# Mapping\n")

	report, err = checker.Run()
	require.NoError(t, err)
	assert.True(t, report.Pass(), "findings: %v", report.Findings)
}

func TestAmbiguousRequiresVariants(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	setState(t, dir, problems.StateAmbiguous, nil)

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleRequiredFile)

	writeFile(t, filepath.Join(dir, "statement", "variants.md"), "# Variants\n")
	report, err = checker.Run()
	require.NoError(t, err)
	assert.True(t, report.Pass())
}

func TestFrozenHashDriftIsFinding(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")

	frozenPath := filepath.Join(dir, "statement", "frozen_v1.md")
	writeFile(t, frozenPath, "## Statement\n\noriginal text\n")
	_, err := repo.Freeze("P0042", "")
	require.NoError(t, err)

	report, err := checker.Run()
	require.NoError(t, err)
	require.True(t, report.Pass())

	writeFile(t, frozenPath, "## Statement\n\ntampered text\n")
	report, err = checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleFrozenHash)
}

func TestGatedProofDirectoryScan(t *testing.T) {
	repo, _ := newFixture(t)
	engine, err := policy_engine.NewPolicyEngine()
	require.NoError(t, err)

	gated := filepath.Join(repo.Root, "ErdosLab", "Problems")
	writeFile(t, filepath.Join(gated, "P0042.lean"),
		"axiom convenient_shortcut : False\n\ntheorem erdos_42 : True := trivial\n")

	checker := NewChecker(repo, engine, Options{})
	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleEscapeHatch)

	// The same axiom on the reviewed allowlist is accepted.
	allowing := NewChecker(repo, engine, Options{AxiomAllowlist: []string{"convenient_shortcut"}})
	report, err = allowing.Run()
	require.NoError(t, err)
	assert.True(t, report.Pass(), "findings: %v", report.Findings)
}

func TestActiveDanglingSymlinkIsFinding(t *testing.T) {
	repo, checker := newFixture(t)
	scaffold(t, repo, "P0042")
	_, err := repo.SetActive("P0042")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(repo.ProblemsDir(), "P0042")))

	report, err := checker.Run()
	require.NoError(t, err)
	assert.Contains(t, findRules(report), RuleActive)
}

func TestFailFastStopsAtFirstFinding(t *testing.T) {
	repo, _ := newFixture(t)
	engine, err := policy_engine.NewPolicyEngine()
	require.NoError(t, err)

	for _, id := range []string{"P0001", "P0002", "P0003"} {
		dir := scaffold(t, repo, id)
		setState(t, dir, problems.State("bogus"), nil)
	}

	checker := NewChecker(repo, engine, Options{FailFast: true})
	report, err := checker.Run()
	require.NoError(t, err)
	assert.Len(t, report.Findings, 1)
	assert.True(t, report.Truncated)

	full := NewChecker(repo, engine, Options{})
	report, err = full.Run()
	require.NoError(t, err)
	assert.Len(t, report.Findings, 3)
	assert.False(t, report.Truncated)
}

func TestRunIsDeterministicAndIdempotent(t *testing.T) {
	repo, checker := newFixture(t)
	dir := scaffold(t, repo, "P0042")
	setState(t, dir, problems.State("bogus"), nil)

	first, err := checker.Run()
	require.NoError(t, err)
	second, err := checker.Run()
	require.NoError(t, err)

	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, first.TreeDigest, second.TreeDigest)
	assert.NotEmpty(t, first.TreeDigest)

	// Changing checked content must change the digest.
	writeFile(t, filepath.Join(dir, "statement", "notes.md"), "edited\n")
	third, err := checker.Run()
	require.NoError(t, err)
	assert.NotEqual(t, first.TreeDigest, third.TreeDigest)
}
