// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package problems

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(repo.ProblemsDir(), 0o755))
	return repo
}

func TestScaffoldCreatesProblemTree(t *testing.T) {
	repo := newTestRepo(t)

	dir, err := repo.Scaffold("P0042", "Distinct distances")
	require.NoError(t, err)

	for _, rel := range []string{
		"status.json",
		"statement/frozen_v1.md",
		"statement/notes.md",
		"blueprint/outline.md",
		"report/writeup.md",
		"compute/manifest.json",
	} {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
		assert.NoError(t, err, "expected scaffolded file %s", rel)
	}

	status, err := LoadStatus(filepath.Join(dir, "status.json"))
	require.NoError(t, err)
	assert.Equal(t, "P0042", status.ProblemID)
	assert.Equal(t, "Distinct distances", status.Title)
	assert.Equal(t, StatePartial, status.Claim.State)
	assert.Equal(t, "statement/frozen_v1.md", status.FrozenStatement.File)
	assert.NotNil(t, status.Evidence)
	assert.Empty(t, status.Evidence)
}

func TestScaffoldRefusesExistingDirectory(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Scaffold("P0042", "")
	require.NoError(t, err)

	_, err = repo.Scaffold("P0042", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestScaffoldRejectsInvalidID(t *testing.T) {
	repo := newTestRepo(t)

	for _, bad := range []string{"", "42", "P42", "../escape", "PXXXX"} {
		_, err := repo.Scaffold(bad, "")
		assert.Error(t, err, "expected rejection for id %q", bad)
	}
}

func TestListSkipsReservedDirectories(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Scaffold("P0100", "")
	require.NoError(t, err)
	_, err = repo.Scaffold("P0007", "")
	require.NoError(t, err)

	// TEMPLATE and ACTIVE must never be listed as problems.
	require.NoError(t, os.MkdirAll(filepath.Join(repo.ProblemsDir(), TemplateDirName), 0o755))
	_, err = repo.SetActive("P0007")
	require.NoError(t, err)

	infos, err := repo.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "P0007", infos[0].ProblemID)
	assert.Equal(t, "P0100", infos[1].ProblemID)
}

func TestListMissingProblemsDir(t *testing.T) {
	repo, err := NewRepository(t.TempDir())
	require.NoError(t, err)

	infos, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSetActiveAndResolveTarget(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Scaffold("P0042", "")
	require.NoError(t, err)

	method, err := repo.SetActive("P0042")
	require.NoError(t, err)
	assert.Contains(t, []string{"symlink", "copy"}, method)

	target, ok, err := repo.ActiveTarget()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "P0042", target)
}

func TestSetActiveReplacesExisting(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Scaffold("P0001", "")
	require.NoError(t, err)
	_, err = repo.Scaffold("P0002", "")
	require.NoError(t, err)

	_, err = repo.SetActive("P0001")
	require.NoError(t, err)
	_, err = repo.SetActive("P0002")
	require.NoError(t, err)

	target, ok, err := repo.ActiveTarget()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "P0002", target)
}

func TestSetActiveMissingProblem(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.SetActive("P9999")
	require.Error(t, err)
}

func TestActiveTargetAbsent(t *testing.T) {
	repo := newTestRepo(t)
	_, ok, err := repo.ActiveTarget()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFreezeRecordsHashAndRefusesDrift(t *testing.T) {
	repo := newTestRepo(t)
	dir, err := repo.Scaffold("P0042", "")
	require.NoError(t, err)

	frozenPath := filepath.Join(dir, "statement", "frozen_v1.md")
	require.NoError(t, os.WriteFile(frozenPath,
		[]byte("# Frozen Statement (v1)\n\n## Statement\n\nIs every even n > 2 a sum of two primes?\n"), 0o644))

	status, err := repo.Freeze("P0042", "https://www.erdosproblems.com/42")
	require.NoError(t, err)
	assert.Len(t, status.FrozenStatement.SHA256, 64)
	assert.Equal(t, "https://www.erdosproblems.com/42", status.FrozenStatement.SourceURL)
	assert.NotEmpty(t, status.FrozenStatement.FrozenAt)

	// Re-freezing identical content is a no-op.
	again, err := repo.Freeze("P0042", "")
	require.NoError(t, err)
	assert.Equal(t, status.FrozenStatement.SHA256, again.FrozenStatement.SHA256)

	// Editing the statement after freezing must be refused.
	require.NoError(t, os.WriteFile(frozenPath, []byte("## Statement\n\ntampered\n"), 0o644))
	_, err = repo.Freeze("P0042", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already recorded")
}

func TestExtractStatement(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "statement between headings",
			input: "# Frozen\n\n## Statement\n\nLet n be even.\nThen something.\n\n## Conventions\n\nnotation\n",
			want:  "Let n be even.\nThen something.",
		},
		{
			name:  "statement at end of file",
			input: "intro\n\n## Statement\n\ntrailing text\n",
			want:  "trailing text",
		},
		{
			name:  "no marker returns whole text",
			input: "  just a plain file  \n",
			want:  "just a plain file",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractStatement(tc.input))
		})
	}
}

func TestStatusSaveFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.json")
	status := &Status{
		ProblemID:       "P0010",
		Claim:           Claim{State: StatePartial},
		FrozenStatement: FrozenStatement{File: "statement/frozen_v1.md"},
		Evidence:        []Evidence{},
	}
	require.NoError(t, status.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "\n"), "status.json should end with a newline")
	assert.Contains(t, string(raw), "\"problem_id\": \"P0010\"")

	loaded, err := LoadStatus(path)
	require.NoError(t, err)
	assert.Equal(t, status.ProblemID, loaded.ProblemID)
	assert.Equal(t, status.Claim.State, loaded.Claim.State)
}

func TestStateHelpers(t *testing.T) {
	assert.True(t, StateSolved.Proved())
	assert.True(t, StateDisproved.Proved())
	assert.False(t, StatePartial.Proved())
	assert.False(t, StateLiteratureSolved.Proved())

	assert.True(t, StateAmbiguous.Valid())
	assert.False(t, State("proved").Valid())
}
