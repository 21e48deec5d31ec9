// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package problems

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const statementMarker = "## Statement"

// ExtractStatement pulls the statement section out of a frozen_v1.md.
// Everything between the "## Statement" heading and the next "## "
// heading is the statement; a file without the marker is returned whole.
func ExtractStatement(frozenText string) string {
	idx := strings.Index(frozenText, statementMarker)
	if idx < 0 {
		return strings.TrimSpace(frozenText)
	}
	tail := strings.TrimSpace(frozenText[idx+len(statementMarker):])
	if next := strings.Index(tail, "## "); next >= 0 {
		return strings.TrimSpace(tail[:next])
	}
	return strings.TrimSpace(tail)
}

// FrozenStatementText reads the statement section of a problem's frozen
// statement file. Missing file yields an empty string, not an error; the
// gate reports the missing file separately.
func (r *Repository) FrozenStatementText(problemID string) (string, error) {
	dir, err := r.ProblemDir(problemID)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(filepath.Join(dir, "statement", "frozen_v1.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read frozen statement: %w", err)
	}
	return ExtractStatement(string(raw)), nil
}

// HashFile returns the lowercase hex sha256 of a file's content.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Freeze records the sha256 of the frozen statement file into status.json
// along with provenance. Once frozen, the gate treats any content change
// as a violation. Re-freezing an already frozen statement with different
// content is refused; fix the status deliberately instead.
func (r *Repository) Freeze(problemID, sourceURL string) (*Status, error) {
	dir, err := r.ProblemDir(problemID)
	if err != nil {
		return nil, err
	}
	statusPath := filepath.Join(dir, "status.json")
	status, err := LoadStatus(statusPath)
	if err != nil {
		return nil, err
	}
	if status.FrozenStatement.File == "" {
		status.FrozenStatement.File = "statement/frozen_v1.md"
	}

	frozenPath := filepath.Join(dir, filepath.FromSlash(status.FrozenStatement.File))
	digest, err := HashFile(frozenPath)
	if err != nil {
		return nil, err
	}

	if status.FrozenStatement.SHA256 != "" && status.FrozenStatement.SHA256 != digest {
		return nil, fmt.Errorf(
			"frozen statement already recorded with hash %s; current content hashes to %s",
			status.FrozenStatement.SHA256, digest)
	}

	status.FrozenStatement.SHA256 = digest
	status.FrozenStatement.FrozenAt = time.Now().UTC().Format(time.RFC3339)
	if sourceURL != "" {
		status.FrozenStatement.SourceURL = sourceURL
	}

	if err := status.Validate(); err != nil {
		return nil, err
	}
	if err := status.Save(statusPath); err != nil {
		return nil, err
	}
	return status, nil
}
