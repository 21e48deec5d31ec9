// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package solver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// KeyLemma is one intermediate result a plan leans on.
type KeyLemma struct {
	Statement     string   `json:"statement"`
	WhyNeeded     string   `json:"why_needed"`
	LikelySources []string `json:"likely_sources"`
	Checkability  string   `json:"checkability"`
}

// Plan is one research strategy in a planner payload.
type Plan struct {
	StrategyName      string     `json:"strategy_name"`
	HighLevelIdea     string     `json:"high_level_idea"`
	KeyLemmas         []KeyLemma `json:"key_lemmas"`
	DefinitionsNeeded []string   `json:"definitions_needed"`
	RiskFactors       []string   `json:"risk_factors"`
	Experiments       []string   `json:"experiments"`
	FormalizationPath []string   `json:"formalization_path"`
	ExpectedPayoff    float64    `json:"expected_payoff"`
	Difficulty        float64    `json:"difficulty"`
	DependencyGraph   []string   `json:"dependency_graph"`
}

// AllowedCheckability are the valid lemma checkability grades.
var AllowedCheckability = map[string]bool{"easy": true, "medium": true, "hard": true}

var plannerFencedJSON = regexp.MustCompile("(?is)```json(.*?)```")
var plannerFencedAny = regexp.MustCompile("(?s)```(.*?)```")

// ExtractPlannerJSON pulls the planner payload out of pasted model output:
// a ```json fence first, any fence second, the whole text last. The payload
// is kept loosely typed: strict and lenient consumers disagree about what a
// malformed plan means.
func ExtractPlannerJSON(text string) (map[string]any, error) {
	blob := text
	if m := plannerFencedJSON.FindStringSubmatch(text); m != nil {
		blob = m[1]
	} else if m := plannerFencedAny.FindStringSubmatch(text); m != nil {
		blob = m[1]
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(blob)), &payload); err != nil {
		return nil, fmt.Errorf("no JSON object found in planner response: %w", err)
	}
	return payload, nil
}

// ValidatePayload checks a planner payload against the strict schema the
// prompt promises. Returns every violation, empty when the payload is clean.
func ValidatePayload(payload map[string]any, expectedProblemID string, maxPlans int) []string {
	if maxPlans <= 0 {
		maxPlans = DefaultMaxPlans
	}
	var errs []string
	if got, _ := payload["problem_id"].(string); got != expectedProblemID {
		errs = append(errs, fmt.Sprintf("problem_id mismatch: expected %s, got %v", expectedProblemID, payload["problem_id"]))
	}
	if _, ok := payload["generated_at"].(string); !ok {
		errs = append(errs, "generated_at must be a string (YYYY-MM-DD)")
	}
	if _, ok := payload["solver_used_scout"].(bool); !ok {
		errs = append(errs, "solver_used_scout must be boolean")
	}

	plans, ok := payload["plans"].([]any)
	if !ok {
		errs = append(errs, "plans must be a list")
		return errs
	}
	if len(plans) < 3 {
		errs = append(errs, "plans must include at least 3 entries")
	}
	if len(plans) > maxPlans {
		errs = append(errs, fmt.Sprintf("plans must include at most %d entries", maxPlans))
	}
	for idx, plan := range plans {
		validatePlan(plan, idx, &errs)
	}
	return errs
}

func validatePlan(raw any, index int, errs *[]string) {
	plan, ok := raw.(map[string]any)
	if !ok {
		*errs = append(*errs, fmt.Sprintf("plan[%d] must be an object", index))
		return
	}
	for _, field := range []string{"strategy_name", "high_level_idea"} {
		if s, ok := plan[field].(string); !ok || s == "" {
			*errs = append(*errs, fmt.Sprintf("plan[%d] missing %s", index, field))
		}
	}

	for lemmaIdx, rawLemma := range requireList(plan, "key_lemmas", index, errs) {
		lemma, ok := rawLemma.(map[string]any)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("plan[%d] key_lemmas[%d] must be an object", index, lemmaIdx))
			continue
		}
		for _, field := range []string{"statement", "why_needed"} {
			if s, ok := lemma[field].(string); !ok || s == "" {
				*errs = append(*errs, fmt.Sprintf("plan[%d] key_lemmas[%d] missing %s", index, lemmaIdx, field))
			}
		}
		if sources, ok := lemma["likely_sources"].([]any); !ok || len(sources) == 0 {
			*errs = append(*errs, fmt.Sprintf("plan[%d] key_lemmas[%d] missing likely_sources", index, lemmaIdx))
		}
		if grade, _ := lemma["checkability"].(string); !AllowedCheckability[grade] {
			*errs = append(*errs, fmt.Sprintf("plan[%d] key_lemmas[%d] checkability must be easy|medium|hard", index, lemmaIdx))
		}
	}

	stringLists := []string{
		"definitions_needed", "risk_factors", "experiments",
		"formalization_path", "dependency_graph",
	}
	for _, field := range stringLists {
		items := requireList(plan, field, index, errs)
		for _, item := range items {
			if _, ok := item.(string); !ok {
				*errs = append(*errs, fmt.Sprintf("plan[%d] %s must contain strings", index, field))
				break
			}
		}
	}

	checkUnitRange(plan, "expected_payoff", index, errs)
	checkUnitRange(plan, "difficulty", index, errs)
}

func requireList(plan map[string]any, field string, index int, errs *[]string) []any {
	items, ok := plan[field].([]any)
	if !ok {
		*errs = append(*errs, fmt.Sprintf("plan[%d] %s must be a list", index, field))
		return nil
	}
	return items
}

func checkUnitRange(plan map[string]any, field string, index int, errs *[]string) {
	value, ok := plan[field].(float64)
	if !ok {
		*errs = append(*errs, fmt.Sprintf("plan[%d] %s must be a number", index, field))
		return
	}
	if value < 0 || value > 1 {
		*errs = append(*errs, fmt.Sprintf("plan[%d] %s must be in [0,1]", index, field))
	}
}
