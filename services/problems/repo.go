// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package problems

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/erdoslab/erdoslab/pkg/validation"
)

// Reserved directory names under problems/ that are never problems
// themselves.
const (
	TemplateDirName = "TEMPLATE"
	ActiveDirName   = "ACTIVE"
)

// Repository locates problem directories under a repo root. All paths it
// hands out are absolute.
type Repository struct {
	Root string
}

func NewRepository(root string) (*Repository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo root %s: %w", root, err)
	}
	return &Repository{Root: abs}, nil
}

func (r *Repository) ProblemsDir() string {
	return filepath.Join(r.Root, "problems")
}

// ProblemDir validates the id and returns the directory it names. The
// directory is not required to exist.
func (r *Repository) ProblemDir(problemID string) (string, error) {
	if err := validation.ValidateProblemID(problemID); err != nil {
		return "", err
	}
	return filepath.Join(r.ProblemsDir(), problemID), nil
}

func (r *Repository) StatusPath(problemID string) (string, error) {
	dir, err := r.ProblemDir(problemID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "status.json"), nil
}

// Info is one problem as seen by a repository walk. LoadErr is non-nil
// when status.json exists but could not be parsed; callers decide whether
// that is fatal (the gate reports it as a finding).
type Info struct {
	ProblemID string
	Dir       string
	Status    *Status
	LoadErr   error
}

// List enumerates problem directories in lexical order. TEMPLATE and
// ACTIVE are skipped; only directories containing a status.json count.
func (r *Repository) List() ([]Info, error) {
	entries, err := os.ReadDir(r.ProblemsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read problems directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if name == TemplateDirName || name == ActiveDirName {
			continue
		}
		dir := filepath.Join(r.ProblemsDir(), name)
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			continue
		}
		statusPath := filepath.Join(dir, "status.json")
		if _, err := os.Stat(statusPath); err != nil {
			continue
		}
		info := Info{ProblemID: name, Dir: dir}
		info.Status, info.LoadErr = LoadStatus(statusPath)
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ProblemID < infos[j].ProblemID
	})
	return infos, nil
}

// ActiveDir returns the path of the active-work location.
func (r *Repository) ActiveDir() string {
	return filepath.Join(r.ProblemsDir(), ActiveDirName)
}

// ActiveTarget resolves which problem ACTIVE points at. Returns ok=false
// when no ACTIVE entry exists. A copied (non-symlink) ACTIVE is resolved
// through its status.json problem_id.
func (r *Repository) ActiveTarget() (string, bool, error) {
	active := r.ActiveDir()
	fi, err := os.Lstat(active)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to stat %s: %w", active, err)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(active)
		if err != nil {
			return "", false, fmt.Errorf("failed to read ACTIVE symlink: %w", err)
		}
		return filepath.Base(target), true, nil
	}

	status, err := LoadStatus(filepath.Join(active, "status.json"))
	if err != nil {
		return "", true, fmt.Errorf("ACTIVE copy has no readable status.json: %w", err)
	}
	return status.ProblemID, true, nil
}

// SetActive points problems/ACTIVE at the given problem. It prefers a
// relative symlink and falls back to a full copy on filesystems without
// symlink support. Returns the method used ("symlink" or "copy").
//
// Any existing ACTIVE entry is removed first; callers are expected to
// have confirmed the replacement with the user.
func (r *Repository) SetActive(problemID string) (string, error) {
	sourceDir, err := r.ProblemDir(problemID)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(sourceDir)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("problem directory does not exist: %s", sourceDir)
	}

	active := r.ActiveDir()
	if _, err := os.Lstat(active); err == nil {
		if err := removeActiveEntry(active); err != nil {
			return "", err
		}
	}

	if err := os.Symlink(problemID, active); err == nil {
		return "symlink", nil
	}
	if err := copyTree(sourceDir, active); err != nil {
		return "", fmt.Errorf("failed to copy %s to ACTIVE: %w", problemID, err)
	}
	return "copy", nil
}

func removeActiveEntry(active string) error {
	fi, err := os.Lstat(active)
	if err != nil {
		return fmt.Errorf("failed to stat ACTIVE: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 || !fi.IsDir() {
		if err := os.Remove(active); err != nil {
			return fmt.Errorf("failed to remove ACTIVE: %w", err)
		}
		return nil
	}
	if err := os.RemoveAll(active); err != nil {
		return fmt.Errorf("failed to remove ACTIVE copy: %w", err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}
