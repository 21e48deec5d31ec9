// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"path/filepath"
	"testing"

	"github.com/erdoslab/erdoslab/cmd/erdoslab/config"
	"github.com/erdoslab/erdoslab/services/problems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguredModels(t *testing.T) {
	old := config.Global
	t.Cleanup(func() { config.Global = old })
	config.Global.LLM.Models = "model-a, model-b"

	assert.Equal(t, []string{"model-a", "model-b"}, configuredModels(""))
	assert.Equal(t, []string{"override"}, configuredModels("override"))
}

func TestConfiguredMaxPlans(t *testing.T) {
	old := config.Global
	t.Cleanup(func() { config.Global = old })

	config.Global.Solver.MaxPlans = 5
	assert.Equal(t, 5, configuredMaxPlans(0))
	assert.Equal(t, 3, configuredMaxPlans(3))

	config.Global.Solver.MaxPlans = 0
	assert.Equal(t, 8, configuredMaxPlans(0))
}

func TestResolveProblem(t *testing.T) {
	root := t.TempDir()
	repo, err := problems.NewRepository(root)
	require.NoError(t, err)
	_, err = repo.Scaffold("P0042", "Distinct prime divisors")
	require.NoError(t, err)

	ref, err := resolveProblem(repo, "42")
	require.NoError(t, err)
	assert.Equal(t, "P0042", ref.ID)
	assert.Equal(t, 42, ref.Number)
	assert.Equal(t, filepath.Join(root, "problems", "P0042"), ref.Dir)

	_, err = resolveProblem(repo, "99")
	assert.ErrorContains(t, err, "P0099 not found")

	_, err = resolveProblem(repo, "not-a-problem")
	assert.Error(t, err)
}

func TestStateDirOutsideProblems(t *testing.T) {
	dir := stateDir("/repo")
	assert.Equal(t, filepath.Join("/repo", ".erdoslab", "state"), dir)
}

func TestSetActiveMessageReportsPath(t *testing.T) {
	repo, err := problems.NewRepository(t.TempDir())
	require.NoError(t, err)
	_, err = repo.Scaffold("P0042", "Distinct prime divisors")
	require.NoError(t, err)

	method, err := repo.SetActive("P0042")
	require.NoError(t, err)
	assert.Contains(t, []string{"symlink", "copy"}, method)

	msg := setActiveMessage("P0042", repo.ActiveDir(), method)
	assert.Contains(t, msg, "active at "+repo.ActiveDir())
	assert.NotContains(t, msg, "active at "+method)
}
