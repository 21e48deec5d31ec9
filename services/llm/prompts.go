// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultModels are the models a prompt scaffold targets when the config
// does not name any.
var DefaultModels = []string{"gpt-5.2-pro", "gemini-deepthink"}

var labelPattern = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeLabel turns a model name into a filename-safe label.
func SanitizeLabel(model string) string {
	label := labelPattern.ReplaceAllString(strings.ToLower(model), "_")
	label = strings.Trim(label, "_")
	if label == "" {
		return "model"
	}
	return label
}

// ParseModels splits a comma-separated model list, falling back to
// DefaultModels when the input is empty.
func ParseModels(raw string) []string {
	var models []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			models = append(models, item)
		}
	}
	if len(models) == 0 {
		return append([]string(nil), DefaultModels...)
	}
	return models
}

// WriteModelPrompts lays out one prompt/response file pair per model under
// baseDir. Existing files are never overwritten, so pasted responses and
// hand-edited prompts survive re-scaffolding.
func WriteModelPrompts(baseDir, promptText, responseExtension, placeholder string, models []string) error {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create prompt dir: %w", err)
	}
	if len(models) == 0 {
		models = DefaultModels
	}
	for _, model := range models {
		label := SanitizeLabel(model)
		promptPath := filepath.Join(baseDir, label+"_prompt.md")
		responsePath := filepath.Join(baseDir, label+"_response"+responseExtension)
		if _, err := os.Stat(promptPath); os.IsNotExist(err) {
			content := fmt.Sprintf("# Model: %s\n\n%s\n", model, strings.TrimRight(promptText, "\n"))
			if err := os.WriteFile(promptPath, []byte(content), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", promptPath, err)
			}
		}
		if _, err := os.Stat(responsePath); os.IsNotExist(err) {
			if err := os.WriteFile(responsePath, []byte(placeholder), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", responsePath, err)
			}
		}
	}
	return nil
}
