// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package problems models the per-problem directory tree: status.json,
// the frozen statement, scaffolding from the embedded template, and the
// ACTIVE working-copy convention.
package problems

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// State is the lifecycle state of a problem claim.
type State string

const (
	StatePartial          State = "partial"
	StateSolved           State = "solved"
	StateDisproved        State = "disproved"
	StateLiteratureSolved State = "literature_solved"
	StateAmbiguous        State = "ambiguous"
)

// AllowedStates lists every valid claim state in stable order. The gate
// reports this list verbatim when a status.json carries an unknown state.
var AllowedStates = []State{
	StateAmbiguous,
	StateDisproved,
	StateLiteratureSolved,
	StatePartial,
	StateSolved,
}

func (s State) Valid() bool {
	for _, allowed := range AllowedStates {
		if s == allowed {
			return true
		}
	}
	return false
}

// Proved reports whether the state claims a finished mathematical result
// and therefore requires proof evidence.
func (s State) Proved() bool {
	return s == StateSolved || s == StateDisproved
}

// Evidence types. Only lean and certificate satisfy a proved claim;
// citation records provenance but carries no gate weight.
const (
	EvidenceLean        = "lean"
	EvidenceCertificate = "certificate"
	EvidenceCitation    = "citation"
)

type Claim struct {
	State   State  `json:"state" validate:"required,oneof=partial solved disproved literature_solved ambiguous"`
	Summary string `json:"summary,omitempty"`
}

type FrozenStatement struct {
	File      string `json:"file" validate:"required"`
	SHA256    string `json:"sha256,omitempty" validate:"omitempty,len=64,hexadecimal"`
	SourceURL string `json:"source_url,omitempty" validate:"omitempty,url"`
	FrozenAt  string `json:"frozen_at,omitempty"`
}

type Evidence struct {
	Type    string `json:"type" validate:"required,oneof=lean certificate citation"`
	File    string `json:"file,omitempty"`
	Theorem string `json:"theorem,omitempty"`
	Ref     string `json:"ref,omitempty"`
	Note    string `json:"note,omitempty"`
}

// Status is the parsed form of a problem's status.json.
type Status struct {
	ProblemID       string          `json:"problem_id" validate:"required"`
	Title           string          `json:"title,omitempty"`
	Claim           Claim           `json:"claim"`
	FrozenStatement FrozenStatement `json:"frozen_statement"`
	Evidence        []Evidence      `json:"evidence" validate:"dive"`
}

// statusValidate is the validator instance for status documents.
var statusValidate *validator.Validate

func init() {
	statusValidate = validator.New()
}

// Validate checks the struct tags. The gate performs its own richer,
// per-finding checks; this is the fast sanity pass used by the write
// paths (scaffold, freeze) before anything touches disk.
func (s *Status) Validate() error {
	if err := statusValidate.Struct(s); err != nil {
		return fmt.Errorf("status validation failed: %w", err)
	}
	return nil
}

// LoadStatus reads and parses a status.json. A file whose root is not a
// JSON object is an error; the gate turns that error into a finding.
func LoadStatus(path string) (*Status, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return &status, nil
}

// Save writes the status atomically: temp file in the same directory,
// then rename. Output is two-space indented with a trailing newline so
// diffs against hand-edited files stay clean.
func (s *Status) Save(path string) error {
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	encoded = append(encoded, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".status-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp status file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp status file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
