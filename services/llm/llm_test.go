// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-5.2-pro", "gpt_5_2_pro"},
		{"gemini-deepthink", "gemini_deepthink"},
		{"GPT-4o", "gpt_4o"},
		{"__weird__", "weird"},
		{"***", "model"},
		{"", "model"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SanitizeLabel(tc.model), "model %q", tc.model)
	}
}

func TestParseModels(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseModels("a, b"))
	assert.Equal(t, []string{"solo"}, ParseModels("solo"))
	assert.Equal(t, DefaultModels, ParseModels(""))
	assert.Equal(t, DefaultModels, ParseModels(" , ,"))
}

func TestWriteModelPrompts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "planner")
	models := []string{"gpt-5.2-pro"}
	placeholder := "# Paste model output below\n\n"

	require.NoError(t, WriteModelPrompts(dir, "prompt body", ".md", placeholder, models))

	promptPath := filepath.Join(dir, "gpt_5_2_pro_prompt.md")
	content, err := os.ReadFile(promptPath)
	require.NoError(t, err)
	assert.Equal(t, "# Model: gpt-5.2-pro\n\nprompt body\n", string(content))

	response, err := os.ReadFile(filepath.Join(dir, "gpt_5_2_pro_response.md"))
	require.NoError(t, err)
	assert.Equal(t, placeholder, string(response))
}

func TestWriteModelPromptsPreservesExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "planner")
	models := []string{"m1"}

	require.NoError(t, WriteModelPrompts(dir, "first", ".md", "empty\n", models))
	responsePath := filepath.Join(dir, "m1_response.md")
	require.NoError(t, os.WriteFile(responsePath, []byte("pasted answer"), 0o644))

	require.NoError(t, WriteModelPrompts(dir, "second", ".md", "empty\n", models))

	content, err := os.ReadFile(responsePath)
	require.NoError(t, err)
	assert.Equal(t, "pasted answer", string(content), "existing response must survive re-scaffolding")

	prompt, err := os.ReadFile(filepath.Join(dir, "m1_prompt.md"))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "first", "existing prompt must not be rewritten")
}

func TestWriteModelPromptsResponseExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteModelPrompts(dir, "lean prompt", ".lean", "-- stub\n", []string{"m"}))
	_, err := os.Stat(filepath.Join(dir, "m_response.lean"))
	assert.NoError(t, err)
}

type fakeClient struct {
	model string
	text  string
	err   error
}

func (f *fakeClient) Model() string { return f.model }

func (f *fakeClient) Generate(_ context.Context, _ string, _ GenerationParams) (string, error) {
	return f.text, f.err
}

func TestFanOut(t *testing.T) {
	clients := []LLMClient{
		&fakeClient{model: "a", text: "answer a"},
		&fakeClient{model: "b", err: errors.New("boom")},
	}
	results, err := FanOut(context.Background(), clients, "q", GenerationParams{})
	require.NoError(t, err, "one success keeps the fan-out successful")
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Model)
	assert.Equal(t, "answer a", results[0].Text)
	assert.Error(t, results[1].Err)
}

func TestFanOutAllFailed(t *testing.T) {
	clients := []LLMClient{
		&fakeClient{model: "a", err: errors.New("down")},
		&fakeClient{model: "b", err: errors.New("also down")},
	}
	results, err := FanOut(context.Background(), clients, "q", GenerationParams{})
	assert.Error(t, err)
	assert.Len(t, results, 2)
}
