// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

type ErdosLabConfig struct {
	// Repo: filesystem layout of the research repository
	Repo RepoConfig `yaml:"repo"`

	// Solver: planner run limits
	Solver SolverConfig `yaml:"solver"`

	// LLM: models and backend used by `literature ask`
	LLM LLMConfig `yaml:"llm"`

	// Logging: level and optional log directory
	Logging LoggingConfig `yaml:"logging"`

	// Gate: policy checker behavior
	Gate GateConfig `yaml:"gate"`
}

type RepoConfig struct {
	Root          string `yaml:"root"`            // e.g. "." (resolved against cwd)
	GatedProofDir string `yaml:"gated_proof_dir"` // relative to root, e.g. ErdosLab/Problems
}

type SolverConfig struct {
	MaxPlans      int `yaml:"max_plans"`      // e.g. 8
	MaxLiterature int `yaml:"max_literature"` // e.g. 8
}

type LLMConfig struct {
	// Models is the comma-separated prompt fan-out list.
	Models string `yaml:"models"`
	// Backend can be "openai" or any OpenAI-compatible endpoint.
	Backend           string  `yaml:"backend"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir,omitempty"`
}

type GateConfig struct {
	FailFast bool `yaml:"fail_fast"`
	// History enables the badger-backed run store under .erdoslab/state.
	History bool `yaml:"history"`
	// AxiomAllowlist names axiom declarations accepted after review.
	AxiomAllowlist []string `yaml:"axiom_allowlist,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ErdosLabConfig {
	return ErdosLabConfig{
		Repo: RepoConfig{
			Root:          ".",
			GatedProofDir: "ErdosLab/Problems",
		},
		Solver: SolverConfig{
			MaxPlans:      8,
			MaxLiterature: 8,
		},
		LLM: LLMConfig{
			Models:            "gpt-5.2-pro,gemini-deepthink",
			Backend:           "openai",
			RequestsPerSecond: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Gate: GateConfig{
			FailFast: true,
			History:  true,
		},
	}
}
