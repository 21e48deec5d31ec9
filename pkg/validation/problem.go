// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up in
// file paths or subprocess calls. Using these validators prevents path
// traversal and command injection via crafted problem or run identifiers.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// problemIDPattern matches a canonical problem id such as P0379.
// The numeric part is at least 4 digits, zero padded.
var problemIDPattern = regexp.MustCompile(`^P\d{4,}$`)

// looseProblemPattern matches user-supplied problem references: a bare
// number ("379") or a prefixed id ("P0379", "p379").
var looseProblemPattern = regexp.MustCompile(`^[Pp]?(\d+)$`)

// runIDPattern matches solver run ids (UTC compact timestamps, e.g.
// 20260115T093000Z) plus the reserved "latest" alias handled by callers.
var runIDPattern = regexp.MustCompile(`^\d{8}T\d{6}Z$`)

// NormalizeProblemID converts a user-supplied problem reference into its
// canonical form and numeric value.
//
// Accepted inputs: "379", "P0379", "p379". The canonical id is "P" followed
// by the number zero-padded to at least four digits; explicit wider padding
// is preserved ("P000379" stays seven digits wide).
//
// Returns an error for anything else, including ids with path separators.
func NormalizeProblemID(raw string) (string, int, error) {
	trimmed := strings.TrimSpace(raw)
	match := looseProblemPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return "", 0, fmt.Errorf("invalid problem id: %q", raw)
	}
	digits := match[1]
	number, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, fmt.Errorf("invalid problem number: %q", raw)
	}
	width := len(digits)
	if width < 4 {
		width = 4
	}
	return fmt.Sprintf("P%0*d", width, number), number, nil
}

// ValidateProblemID checks that an id is already canonical (P0379 form).
// Use this for ids read back from the repository rather than typed by users.
func ValidateProblemID(id string) error {
	if id == "" {
		return fmt.Errorf("problem id cannot be empty")
	}
	if !problemIDPattern.MatchString(id) {
		return fmt.Errorf("invalid problem id format: %q (expected P followed by at least 4 digits)", id)
	}
	return nil
}

// ValidateRunID checks a solver run id. The "latest" alias is accepted so
// callers can pass user input straight through before resolving it.
func ValidateRunID(id string) error {
	if id == "latest" {
		return nil
	}
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("invalid run id: %q (expected YYYYMMDDTHHMMSSZ or 'latest')", id)
	}
	return nil
}

// ResolveWithinRoot resolves a repository-relative or absolute path and
// verifies the result stays inside root. Evidence files in status.json are
// attacker-influencable, so every path read by the checker goes through
// this. Symlinks are followed before the containment check: an in-repo
// link pointing outside the repository is an escape, not evidence.
//
// Relative paths are tried against root first, then against baseDir (the
// problem directory), matching how evidence paths are written by hand;
// a candidate that exists on disk wins over one that does not.
func ResolveWithinRoot(root, baseDir, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	var candidates []string
	if filepath.IsAbs(path) {
		candidates = []string{path}
	} else {
		candidates = []string{filepath.Join(root, path), filepath.Join(baseDir, path)}
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("could not resolve repo root: %w", err)
	}
	realRoot := absRoot
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		realRoot = resolved
	}
	// Prefer a candidate that actually exists; fall back to the first
	// contained candidate so missing files are reported root-relative.
	fallback := ""
	for _, candidate := range candidates {
		resolved, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		resolved = resolveSymlinks(resolved)
		rel, err := filepath.Rel(realRoot, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if _, err := os.Stat(resolved); err == nil {
			return resolved, nil
		}
		if fallback == "" {
			fallback = resolved
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("path escapes repository root: %q", path)
}

// resolveSymlinks follows symlinks in path. When the full path does not
// exist yet, the deepest existing ancestor is resolved and the remaining
// suffix is joined back lexically, so not-yet-created evidence files still
// get a canonical location.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	suffix := filepath.Base(path)
	for dir := filepath.Dir(path); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, suffix)
		}
		suffix = filepath.Join(filepath.Base(dir), suffix)
	}
	return path
}
