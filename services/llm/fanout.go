// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Result is one model's answer from a fan-out.
type Result struct {
	Model string
	Text  string
	Err   error
}

// FanOut sends the same prompt to every client concurrently and returns one
// Result per client, in client order. Per-model failures are recorded, not
// fatal; the aggregate error is non-nil only if every client failed.
func FanOut(ctx context.Context, clients []LLMClient, prompt string, params GenerationParams) ([]Result, error) {
	results := make([]Result, len(clients))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for i, client := range clients {
		g.Go(func() error {
			text, err := client.Generate(ctx, prompt, params)
			mu.Lock()
			results[i] = Result{Model: client.Model(), Text: text, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	var lastErr error
	for _, r := range results {
		if r.Err == nil {
			return results, nil
		}
		lastErr = r.Err
	}
	return results, lastErr
}
