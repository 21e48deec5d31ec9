// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const systemPrompt = "You are a careful mathematical research assistant. " +
	"Never claim a result is proven or verified."

// OpenAIConfig selects the model and endpoint for an OpenAI-compatible
// backend. BaseURL covers self-hosted gateways; RequestsPerSecond bounds the
// outbound call rate across a fan-out.
type OpenAIConfig struct {
	Model             string
	BaseURL           string
	RequestsPerSecond float64
}

// OpenAIClient talks to an OpenAI-compatible chat completion endpoint. The
// API key is held in a memguard enclave and only opened per request.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAIClient reads ERDOSLAB_API_KEY (or OPENAI_API_KEY) and seals it
// before the plaintext copy is discarded.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	apiKey := os.Getenv("ERDOSLAB_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set ERDOSLAB_API_KEY or OPENAI_API_KEY")
	}
	enclave := memguard.NewEnclave([]byte(apiKey))
	key, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer key.Destroy()

	clientCfg := openai.DefaultConfig(key.String())
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModels[0]
		slog.Warn("No model configured, using default", "model", model)
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	slog.Info("Initializing model client", "model", model, "base_url", clientCfg.BaseURL)
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Model implements the LLMClient interface.
func (o *OpenAIClient) Model() string { return o.model }

// Generate implements the LLMClient interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	slog.Debug("Requesting completion", "model", o.model, "prompt_bytes", len(prompt))
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed for %s: %w", o.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", o.model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
