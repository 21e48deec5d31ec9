// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfigRoundTrips(t *testing.T) {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var loaded ErdosLabConfig
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, cfg, loaded)
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.Repo.Root)
	assert.Equal(t, "ErdosLab/Problems", cfg.Repo.GatedProofDir)
	assert.Equal(t, 8, cfg.Solver.MaxPlans)
	assert.True(t, cfg.Gate.FailFast)
	assert.True(t, cfg.Gate.History)
}

func TestPathHonorsOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "erdoslab.yaml")
	t.Setenv("ERDOSLAB_CONFIG", override)

	path, err := Path()
	require.NoError(t, err)
	assert.Equal(t, override, path)
}
