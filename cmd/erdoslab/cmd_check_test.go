// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdoslab/erdoslab/services/gate/history"
)

func TestPreviouslyRecorded(t *testing.T) {
	store, err := history.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	assert.False(t, previouslyRecorded(store, "digest-a"))

	// The digest alone decides: a recorded failing run over the same
	// tree still counts as unchanged.
	require.NoError(t, store.Append(history.Record{
		RunAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TreeDigest: "digest-a",
		Problems:   1,
		Findings:   2,
		Pass:       false,
	}))

	assert.True(t, previouslyRecorded(store, "digest-a"))
	assert.False(t, previouslyRecorded(store, "digest-b"))
}
