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
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/erdoslab/erdoslab/cmd/erdoslab/config"
	"github.com/erdoslab/erdoslab/pkg/ux"
	"github.com/erdoslab/erdoslab/services/gate"
	"github.com/erdoslab/erdoslab/services/gate/history"
	"github.com/erdoslab/erdoslab/services/policy_engine"
	"github.com/erdoslab/erdoslab/services/problems"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	checkAll     bool
	checkJSON    bool
	checkQuiet   bool
	checkWatch   bool
	checkHistory bool
)

// =============================================================================
// CHECK COMMAND
// =============================================================================

// runCheck is the CLI handler for "erdoslab check", the CI gate.
//
// # Exit Codes
//
//   - 0: Every problem passes the gate
//   - 1: Findings
//   - 2: The checker itself failed
func runCheck(cmd *cobra.Command, args []string) {
	logger := newLogger("gate")
	defer logger.Close()

	repo, err := openRepo()
	if err != nil {
		OutputError(checkJSON, "Failed to open repository", err)
		os.Exit(CLIExitError)
	}

	var store *history.Store
	if config.Global.Gate.History {
		store, err = history.Open(stateDir(repo.Root), logger.Slog())
		if err != nil {
			// History is bookkeeping; the gate verdict must not depend on it.
			logger.Warn("history store unavailable", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	if checkHistory {
		os.Exit(listCheckHistory(store))
	}

	engine, err := policy_engine.NewPolicyEngine()
	if err != nil {
		OutputError(checkJSON, "Failed to load policy engine", err)
		os.Exit(CLIExitError)
	}

	checker := gate.NewChecker(repo, engine, gate.Options{
		FailFast:       config.Global.Gate.FailFast && !checkAll,
		GatedProofDir:  config.Global.Repo.GatedProofDir,
		AxiomAllowlist: config.Global.Gate.AxiomAllowlist,
	})

	if checkWatch {
		os.Exit(watchAndCheck(repo, checker, store))
	}
	os.Exit(runCheckOnce(checker, store))
}

// runCheckOnce executes one checker pass and reports it.
func runCheckOnce(checker *gate.Checker, store *history.Store) int {
	start := time.Now()
	report, err := checker.Run()
	cfg := OutputConfig{JSON: checkJSON, Quiet: checkQuiet}
	if err != nil {
		return OutputResult(cfg, "check", start, nil, false, err)
	}

	unchanged := false
	if store != nil {
		unchanged = previouslyRecorded(store, report.TreeDigest)
		record := history.Record{
			RunAt:      report.CheckedAt,
			TreeDigest: report.TreeDigest,
			Problems:   report.Problems,
			Findings:   len(report.Findings),
			Pass:       report.Pass(),
		}
		if err := store.Append(record); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record checker run: %v\n", err)
		}
	}

	if !checkJSON && !checkQuiet {
		printReport(report, unchanged)
	}

	data := CheckResultData{
		Pass:       report.Pass(),
		Problems:   report.Problems,
		Findings:   report.Findings,
		TreeDigest: report.TreeDigest,
		Truncated:  report.Truncated,
		CheckedAt:  report.CheckedAt,
	}
	return OutputResult(cfg, "check", start, data, !report.Pass(), nil)
}

// previouslyRecorded reports whether a run over the same tree digest is
// already in the history. A digest match alone decides it; the recorded
// outcome is necessarily identical for an identical tree.
func previouslyRecorded(store *history.Store, digest string) bool {
	_, ok, err := store.LastForDigest(digest)
	return err == nil && ok
}

func printReport(report *gate.Report, unchanged bool) {
	if report.Pass() {
		if report.Problems == 0 {
			ux.Mutedf("No problems to check; empty tree passes.")
		} else {
			ux.Successf("Gate passed: %d problem(s), no findings", report.Problems)
		}
	} else {
		for _, finding := range report.Findings {
			fmt.Println(finding.String())
		}
		suffix := ""
		if report.Truncated {
			suffix = " (stopped at first; use --all for the full report)"
		}
		ux.Errorf("Gate failed: %d finding(s)%s", len(report.Findings), suffix)
	}
	if unchanged {
		ux.Mutedf("Tree unchanged since last recorded run (digest %s)", shortDigest(report.TreeDigest))
	}
}

// listCheckHistory prints recorded runs, newest first.
func listCheckHistory(store *history.Store) int {
	if store == nil {
		OutputError(checkJSON, "Check history unavailable", fmt.Errorf("gate.history is disabled or the store could not be opened"))
		return CLIExitError
	}
	records, err := store.List(50)
	if err != nil {
		OutputError(checkJSON, "Failed to list check history", err)
		return CLIExitError
	}

	if checkJSON {
		if err := OutputJSON(records, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return CLIExitError
		}
		return CLIExitSuccess
	}

	if len(records) == 0 {
		ux.Mutedf("No recorded checker runs yet.")
		return CLIExitSuccess
	}
	ux.Titlef("Checker runs (%d)", len(records))
	for _, rec := range records {
		verdict := "PASS"
		if !rec.Pass {
			verdict = "FAIL"
		}
		fmt.Printf("%s  %s  problems=%d findings=%d digest=%s\n",
			rec.RunAt.UTC().Format(time.RFC3339), verdict, rec.Problems, rec.Findings, shortDigest(rec.TreeDigest))
	}
	return CLIExitSuccess
}

// watchAndCheck re-runs the checker whenever the problems tree changes.
// Runs until interrupted; the process exits with the last verdict.
func watchAndCheck(repo *problems.Repository, checker *gate.Checker, store *history.Store) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		OutputError(checkJSON, "Failed to start watcher", err)
		return CLIExitError
	}
	defer watcher.Close()

	if err := watchTree(watcher, repo.ProblemsDir()); err != nil {
		OutputError(checkJSON, "Failed to watch problems directory", err)
		return CLIExitError
	}

	last := runCheckOnce(checker, store)
	ux.Mutedf("Watching %s for changes (Ctrl-C to stop)...", repo.ProblemsDir())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Debounce: editors fire bursts of events per save.
	var pending *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return last
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					watchTree(watcher, event.Name)
				}
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(300*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case <-trigger:
			last = runCheckOnce(checker, store)
			ux.Mutedf("Watching for changes...")
		case err, ok := <-watcher.Errors:
			if !ok {
				return last
			}
			fmt.Fprintf(os.Stderr, "Warning: watch error: %v\n", err)
		case <-interrupt:
			return last
		}
	}
}

// watchTree adds dir and every directory below it to the watcher.
// fsnotify watches are not recursive.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
