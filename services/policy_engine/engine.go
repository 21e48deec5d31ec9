// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package policy_engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/erdoslab/erdoslab/services/policy_engine/enforcement"
	"gopkg.in/yaml.v3"
)

// PolicyEngine is the entry point for proof-artifact scanning. It holds
// the compiled gate rules and provides methods to scan Lean sources and
// other evidence files against them.
type PolicyEngine struct {
	Classifiers []Classification
}

// NewPolicyEngine initializes a new instance of the PolicyEngine.
//
// It takes no arguments; the rule definitions are embedded in the binary
// via the enforcement package, so a checked-out repository cannot weaken
// the gate by editing a rules file.
//
// It performs the following operations:
// 1. Unmarshals the embedded YAML data.
// 2. Compiles all regex patterns.
// 3. Sorts classifications by priority.
//
// Returns an error if the embedded YAML is malformed or contains invalid regex.
func NewPolicyEngine() (*PolicyEngine, error) {
	var ruleFile ProofGateRuleFile
	if err := yaml.Unmarshal(enforcement.ProofGatePatterns, &ruleFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded policy file: %w", err)
	}

	// Compile the regex patterns for performance and sort by priority
	if err := ruleFile.CompileRegexes(); err != nil {
		return nil, fmt.Errorf("failed to compile a regex %w", err)
	}

	// Sort the classifications from highest to lowest priority
	ruleFile.SortByPriority()

	engine := &PolicyEngine{Classifiers: ruleFile.ClassificationPatterns}
	return engine, nil
}

// Classify performs a quick boolean check on a byte slice.
//
// It iterates through classifications by priority and returns the name of
// the *first* classification that matches. If no rule matches, it returns
// "clean". This is the fast path used when only a pass/fail verdict is
// needed, e.g. before promoting a solver attempt.
func (e *PolicyEngine) Classify(data []byte) string {
	for _, classifier := range e.Classifiers {
		for _, re := range classifier.CompiledPatterns {
			if re.Match(data) {
				return classifier.Name
			}
		}
	}
	return "clean"
}

// ScanFileContent performs a comprehensive audit of a string.
//
// It splits the content into lines and checks every line against every
// pattern in the engine, capturing line numbers and the exact text that
// triggered each match. This is the path used by the evidence gate, where
// actionable feedback matters more than throughput.
func (e *PolicyEngine) ScanFileContent(content string) []ScanFinding {
	var findings []ScanFinding
	lines := strings.Split(content, "\n")
	for lineNum, line := range lines {
		for _, classifier := range e.Classifiers {
			for _, pattern := range classifier.Patterns {
				match := pattern.compiledPattern.FindString(line)
				if match != "" {
					finding := ScanFinding{
						LineNumber:         lineNum + 1,
						MatchedContent:     strings.TrimSpace(match),
						ClassificationName: classifier.Name,
						PatternId:          pattern.Id,
						PatternDescription: pattern.Description,
						Confidence:         pattern.Confidence,
					}
					findings = append(findings, finding)
				}
			}
		}
	}
	return findings
}

var axiomNamePattern = regexp.MustCompile(`^\s*(?:noncomputable\s+)?axiom\s+([A-Za-z_][A-Za-z0-9_'.]*)`)

// AxiomName extracts the declared name from an axiom declaration line.
// Callers use it to exempt declarations that appear on a reviewed
// allowlist from escape-hatch findings.
func AxiomName(line string) (string, bool) {
	m := axiomNamePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
