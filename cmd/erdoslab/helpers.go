// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/erdoslab/erdoslab/cmd/erdoslab/config"
	"github.com/erdoslab/erdoslab/pkg/logging"
	"github.com/erdoslab/erdoslab/pkg/validation"
	"github.com/erdoslab/erdoslab/services/llm"
	"github.com/erdoslab/erdoslab/services/problems"
	"github.com/erdoslab/erdoslab/services/solver"
)

// repoRoot resolves the repository root: the --repo flag wins, then the
// config, then the working directory.
func repoRoot() (string, error) {
	root := repoRootFlag
	if root == "" {
		root = config.Global.Repo.Root
	}
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("could not resolve repo root %s: %w", root, err)
	}
	return abs, nil
}

func openRepo() (*problems.Repository, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, err
	}
	return problems.NewRepository(root)
}

// problemRef is a resolved user-supplied problem reference.
type problemRef struct {
	ID     string
	Number int
	Dir    string
}

// resolveProblem normalizes a user-supplied problem reference and
// requires its directory to exist.
func resolveProblem(repo *problems.Repository, raw string) (problemRef, error) {
	id, number, err := validation.NormalizeProblemID(raw)
	if err != nil {
		return problemRef{}, err
	}
	dir, err := repo.ProblemDir(id)
	if err != nil {
		return problemRef{}, err
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return problemRef{}, fmt.Errorf("problem %s not found (run `erdoslab problem new %s` first)", id, id)
	}
	return problemRef{ID: id, Number: number, Dir: dir}, nil
}

// resolveRun maps a --run flag value onto a run directory. An empty
// value means the latest run.
func resolveRun(ref problemRef, runID string) (string, error) {
	runDir, err := solver.ResolveRunDir(ref.Dir, runID)
	if err != nil {
		return "", fmt.Errorf("no solver run for %s (run `erdoslab solver scaffold %s` first): %w", ref.ID, ref.ID, err)
	}
	return runDir, nil
}

// configuredModels returns the fan-out model list, preferring a flag
// override over the config.
func configuredModels(override string) []string {
	if override != "" {
		return llm.ParseModels(override)
	}
	return llm.ParseModels(config.Global.LLM.Models)
}

func configuredMaxPlans(override int) int {
	if override > 0 {
		return override
	}
	if config.Global.Solver.MaxPlans > 0 {
		return config.Global.Solver.MaxPlans
	}
	return solver.DefaultMaxPlans
}

// stateDir is where the binary keeps its own state (checker history).
// It lives outside problems/ so the gate never walks it.
func stateDir(root string) string {
	return filepath.Join(root, ".erdoslab", "state")
}

// newLogger builds the CLI logger from the flag and config.
func newLogger(service string) *logging.Logger {
	level := logLevelFlag
	if level == "" {
		level = config.Global.Logging.Level
	}
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(level),
		LogDir:  config.Global.Logging.Dir,
		Service: service,
	})
}
