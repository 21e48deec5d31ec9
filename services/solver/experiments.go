// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Experiment is one entry of compute/manifest.json. Command accepts either
// an argv list or a single shell-style string.
type Experiment struct {
	Name       string            `json:"name"`
	Command    json.RawMessage   `json:"command"`
	TimeoutSec float64           `json:"timeout_sec"`
	Env        map[string]string `json:"env"`
}

type experimentManifest struct {
	Experiments []Experiment `json:"experiments"`
}

// LoadManifest reads an experiments manifest.
func LoadManifest(path string) ([]Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest not found: %s", path)
	}
	var manifest experimentManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest JSON: %w", err)
	}
	if manifest.Experiments == nil {
		return nil, fmt.Errorf("manifest missing experiments list")
	}
	return manifest.Experiments, nil
}

// Argv resolves the command field into an argv list.
func (e Experiment) Argv() ([]string, error) {
	if len(e.Command) == 0 {
		return nil, errors.New("command must be a list or string")
	}
	var list []string
	if err := json.Unmarshal(e.Command, &list); err == nil {
		if len(list) == 0 {
			return nil, errors.New("command must not be empty")
		}
		return list, nil
	}
	var single string
	if err := json.Unmarshal(e.Command, &single); err == nil {
		return splitCommand(single)
	}
	return nil, errors.New("command must be a list or string")
}

// splitCommand splits a shell-style command line, honoring single and
// double quotes. No expansion or escapes beyond that.
func splitCommand(line string) ([]string, error) {
	var argv []string
	var current strings.Builder
	var quote rune
	inToken := false
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				argv = append(argv, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unbalanced quote in command: %s", line)
	}
	if inToken {
		argv = append(argv, current.String())
	}
	if len(argv) == 0 {
		return nil, errors.New("command must not be empty")
	}
	return argv, nil
}

// SafeName maps an experiment name onto a filesystem-safe directory name.
func SafeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '_' || r == '-':
			return r
		case r > unicode.MaxASCII:
			return '_'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return '_'
		}
	}, name)
}

// ExperimentRecord is the metadata.json written for each executed
// experiment. RecordID ties logs to the run across reshuffles.
type ExperimentRecord struct {
	RecordID   string   `json:"record_id"`
	Name       string   `json:"name"`
	Command    []string `json:"command,omitempty"`
	Status     string   `json:"status"`
	ExitCode   *int     `json:"exit_code"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// RunExperimentsParams configures one manifest execution.
type RunExperimentsParams struct {
	// Root is the working directory commands run in.
	Root       string
	ProblemDir string
	ProblemID  string
	// ManifestPath overrides ProblemDir/compute/manifest.json.
	ManifestPath string
	// Only restricts the run to a single named experiment.
	Only string
	// RunID overrides the timestamp result id.
	RunID  string
	DryRun bool
}

// ExperimentsSummary reports one manifest execution.
type ExperimentsSummary struct {
	RunID     string             `json:"run_id"`
	OutputDir string             `json:"output_dir"`
	Records   []ExperimentRecord `json:"records"`
	Failures  int                `json:"failures"`
}

// RunExperiments executes the manifest experiments sequentially, capturing
// stdout/stderr and a metadata record per experiment under
// compute/results/<run-id>/. Non-zero exits are counted, not fatal.
func RunExperiments(ctx context.Context, p RunExperimentsParams) (*ExperimentsSummary, error) {
	manifestPath := p.ManifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(p.ProblemDir, "compute", "manifest.json")
	}
	experiments, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if p.Only != "" {
		var filtered []Experiment
		for _, exp := range experiments {
			if exp.Name == p.Only {
				filtered = append(filtered, exp)
			}
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("no experiment named %q in %s", p.Only, manifestPath)
		}
		experiments = filtered
	}

	runID := p.RunID
	if runID == "" {
		runID = RunIDNow()
	}
	outputDir := filepath.Join(p.ProblemDir, "compute", "results", runID)
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create results dir: %w", err)
	}
	if err := writeJSON(filepath.Join(outputDir, "manifest.json"), experimentManifest{Experiments: experiments}); err != nil {
		return nil, err
	}

	summary := &ExperimentsSummary{RunID: runID, OutputDir: outputDir}
	for _, exp := range experiments {
		record := runOneExperiment(ctx, p.Root, exp, outputDir, p.DryRun)
		summary.Records = append(summary.Records, record)
		if record.Status != "ok" && record.Status != "dry-run" {
			summary.Failures++
		}
	}

	lines := []string{
		"# Experiment Summary",
		"",
		"- problem_id: " + p.ProblemID,
		"- run_id: " + runID,
		"- generated_at: " + nowISO(),
		"",
	}
	for _, record := range summary.Records {
		lines = append(lines, fmt.Sprintf("- %s: %s", record.Name, record.Status))
	}
	content := strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
	if err := os.WriteFile(filepath.Join(outputDir, "summary.md"), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	slog.Info("Ran experiments",
		"problem_id", p.ProblemID, "run_id", runID,
		"count", len(summary.Records), "failures", summary.Failures)
	return summary, nil
}

func runOneExperiment(ctx context.Context, root string, exp Experiment, outputDir string, dryRun bool) ExperimentRecord {
	name := exp.Name
	if name == "" {
		name = "experiment"
	}
	record := ExperimentRecord{
		RecordID:  uuid.New().String(),
		Name:      name,
		Status:    "pending",
		StartedAt: nowISO(),
	}
	expDir := filepath.Join(outputDir, SafeName(name))
	if err := os.MkdirAll(expDir, 0o750); err != nil {
		record.Status = "error"
		record.Error = err.Error()
		return record
	}

	argv, err := exp.Argv()
	if err != nil {
		record.Status = "invalid"
		record.Error = err.Error()
		record.FinishedAt = nowISO()
		_ = writeJSON(filepath.Join(expDir, "metadata.json"), record)
		return record
	}
	record.Command = argv

	if dryRun {
		record.Status = "dry-run"
		record.FinishedAt = nowISO()
		_ = writeJSON(filepath.Join(expDir, "metadata.json"), record)
		return record
	}

	runCtx := ctx
	if exp.TimeoutSec > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(exp.TimeoutSec*float64(time.Second)))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = root
	cmd.Env = os.Environ()
	for key, value := range exp.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	_ = os.WriteFile(filepath.Join(expDir, "stdout.log"), []byte(stdout.String()), 0o644)
	_ = os.WriteFile(filepath.Join(expDir, "stderr.log"), []byte(stderr.String()), 0o644)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		record.Status = "timeout"
	case runErr == nil:
		code := 0
		record.ExitCode = &code
		record.Status = "ok"
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code := exitErr.ExitCode()
			record.ExitCode = &code
		} else {
			record.Error = runErr.Error()
		}
		record.Status = "error"
	}
	record.FinishedAt = nowISO()
	_ = writeJSON(filepath.Join(expDir, "metadata.json"), record)
	return record
}
