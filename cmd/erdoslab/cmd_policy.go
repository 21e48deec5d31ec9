// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/erdoslab/erdoslab/services/policy_engine"
	"github.com/erdoslab/erdoslab/services/policy_engine/enforcement"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	policyVerifyJSON bool
	policyDumpJSON   bool
	policyTestJSON   bool
)

// =============================================================================
// POLICY VERIFY COMMAND
// =============================================================================

// verifyPolicies is the CLI handler for the "erdoslab policy verify" command.
//
// It retrieves the raw bytes of the embedded proof-gate patterns file and
// calculates a SHA256 checksum. This allows operators to cryptographically
// verify that the binary they are running contains the expected version of
// the governance rules, ensuring that the gate has not been quietly relaxed
// during a rebuild.
//
// # Exit Codes
//
//   - 0: Policy verified successfully
//   - 2: Error (malformed embedded rules)
func verifyPolicies(cmd *cobra.Command, args []string) {
	data := enforcement.ProofGatePatterns
	hash := sha256.Sum256(data)
	hashStr := fmt.Sprintf("sha256:%x", hash)

	engine, err := policy_engine.NewPolicyEngine()
	if err != nil {
		OutputError(policyVerifyJSON, "Embedded policy rules are invalid", err)
		os.Exit(CLIExitError)
	}
	ruleCount := 0
	categories := make([]string, 0, len(engine.Classifiers))
	for _, classifier := range engine.Classifiers {
		ruleCount += len(classifier.Patterns)
		categories = append(categories, classifier.Name)
	}

	if policyVerifyJSON {
		result := PolicyVerifyResult{
			Valid:      true,
			Hash:       hashStr,
			ByteSize:   len(data),
			RuleCount:  ruleCount,
			Categories: categories,
		}
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		os.Exit(CLIExitSuccess)
	}

	fmt.Println("--- Embedded Policy Verification ---")
	fmt.Printf("Policy byte size: %d bytes\n", len(data))
	fmt.Printf("Rules: %d across %d classifications\n", ruleCount, len(categories))
	fmt.Printf("SHA256 Fingerprint: %x\n", hash)
	fmt.Println("------------------------------------")
}

// =============================================================================
// POLICY DUMP COMMAND
// =============================================================================

// dumpPolicies outputs the embedded proof-gate rules.
//
// With --json, wraps the YAML in a JSON envelope instead.
func dumpPolicies(cmd *cobra.Command, args []string) {
	data := enforcement.ProofGatePatterns

	if policyDumpJSON {
		result := struct {
			APIVersion string `json:"api_version"`
			Format     string `json:"format"`
			Content    string `json:"content"`
		}{
			APIVersion: "1.0",
			Format:     "yaml",
			Content:    string(data),
		}
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		os.Exit(CLIExitSuccess)
	}

	fmt.Println(string(data))
}

// =============================================================================
// POLICY TEST COMMAND
// =============================================================================

// testPolicyString tests a string against the proof-gate patterns.
//
// # Exit Codes
//
//   - 0: No matches
//   - 1: The string would be flagged by the gate
//   - 2: Error
func testPolicyString(cmd *cobra.Command, args []string) {
	inputString := args[0]
	engine, err := policy_engine.NewPolicyEngine()
	if err != nil {
		OutputError(policyTestJSON, "Failed to create policy engine", err)
		os.Exit(CLIExitError)
	}

	findings := engine.ScanFileContent(inputString)
	hasFindings := len(findings) > 0

	if policyTestJSON {
		matches := make([]PolicyTestMatch, 0, len(findings))
		for _, f := range findings {
			matches = append(matches, PolicyTestMatch{
				Pattern:        f.PatternId,
				Match:          f.MatchedContent,
				Classification: f.ClassificationName,
				Confidence:     string(f.Confidence),
				LineNumber:     f.LineNumber,
			})
		}

		result := PolicyTestResult{
			Input:   inputString,
			Matches: matches,
			Matched: hasFindings,
		}
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
	} else {
		if hasFindings {
			fmt.Println("Policy findings:")
			for _, f := range findings {
				fmt.Printf("  [%s/%s] line %d: %s\n",
					f.ClassificationName, f.Confidence, f.LineNumber, f.PatternDescription)
				fmt.Printf("         Match: %s\n", f.MatchedContent)
			}
		} else {
			fmt.Println("No policy matches found.")
		}
	}

	if hasFindings {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}
