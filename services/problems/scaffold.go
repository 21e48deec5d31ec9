// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package problems

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// The template tree is embedded so a checked-out repository cannot drift
// from the expected problem layout. problems/TEMPLATE on disk is ignored.
//
//go:embed all:template/TEMPLATE
var templateFS embed.FS

const templateRoot = "template/TEMPLATE"

// Scaffold creates problems/<id> from the embedded template and seeds its
// status.json. It refuses to overwrite an existing directory. Returns the
// created directory.
func (r *Repository) Scaffold(problemID, title string) (string, error) {
	targetDir, err := r.ProblemDir(problemID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(targetDir); err == nil {
		return "", fmt.Errorf("%s already exists", targetDir)
	}

	if err := copyEmbeddedTree(targetDir); err != nil {
		// Partial trees are worse than no tree; clean up on failure.
		os.RemoveAll(targetDir)
		return "", err
	}

	statusPath := filepath.Join(targetDir, "status.json")
	status, err := LoadStatus(statusPath)
	if err != nil {
		os.RemoveAll(targetDir)
		return "", fmt.Errorf("template status.json is unreadable: %w", err)
	}

	status.ProblemID = problemID
	status.Title = title
	status.Claim.State = StatePartial
	status.FrozenStatement.File = "statement/frozen_v1.md"
	if status.Evidence == nil {
		status.Evidence = []Evidence{}
	}

	if err := status.Validate(); err != nil {
		os.RemoveAll(targetDir)
		return "", err
	}
	if err := status.Save(statusPath); err != nil {
		os.RemoveAll(targetDir)
		return "", err
	}
	return targetDir, nil
}

func copyEmbeddedTree(targetDir string) error {
	return fs.WalkDir(templateFS, templateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(templateRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(targetDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := templateFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded template file %s: %w", path, err)
		}
		return os.WriteFile(target, data, 0o644)
	})
}
