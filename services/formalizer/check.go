// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package formalizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// lakeCommand is the external proof-check invocation; a var so tests can
// substitute a stub binary.
var lakeCommand = []string{"lake", "env", "lean"}

// CheckResult reports one lake invocation.
type CheckResult struct {
	Target       string
	ExitCode     int
	Output       string
	LogPath      string
	FeedbackPath string
}

// Passed reports whether the Lean file compiled.
func (r *CheckResult) Passed() bool { return r.ExitCode == 0 }

// Check runs the external Lean toolchain on target and records the output
// as a build log plus a feedback markdown next to the attempt (or under
// lean/ for out-of-attempts targets).
func Check(ctx context.Context, root, target, runDir string) (*CheckResult, error) {
	if _, err := os.Stat(target); err != nil {
		return nil, fmt.Errorf("missing Lean file: %s", target)
	}

	argv := append(append([]string(nil), lakeCommand...), target)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = root
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", argv[0], runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	leanDir := LeanDir(runDir)
	logPath := filepath.Join(leanDir, "formalizer_last_build.log")
	feedbackPath := filepath.Join(leanDir, "formalizer_feedback.md")
	if rel, err := filepath.Rel(AttemptsDir(runDir), target); err == nil && !strings.HasPrefix(rel, "..") {
		stem := strings.TrimSuffix(filepath.Base(target), ".lean")
		logPath = filepath.Join(AttemptsDir(runDir), stem+"_build.log")
		feedbackPath = filepath.Join(AttemptsDir(runDir), stem+"_feedback.md")
	}

	combined := stdout.String() + stderr.String()
	logContent := stdout.String() + "\n" + stderr.String()
	if err := os.WriteFile(logPath, []byte(logContent), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write build log: %w", err)
	}

	feedback := []string{
		"# Formalizer feedback",
		"",
		"- command: " + strings.Join(argv, " "),
		fmt.Sprintf("- exit_code: %d", exitCode),
		"- timestamp: " + time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		"",
		"Lean output:",
		"```",
		combined,
		"```",
	}
	content := strings.TrimRight(strings.Join(feedback, "\n"), "\n") + "\n"
	if err := os.WriteFile(feedbackPath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write feedback: %w", err)
	}

	slog.Info("Checked Lean file", "target", target, "exit_code", exitCode)
	return &CheckResult{
		Target:       target,
		ExitCode:     exitCode,
		Output:       combined,
		LogPath:      logPath,
		FeedbackPath: feedbackPath,
	}, nil
}
