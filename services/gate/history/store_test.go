// Copyright (C) 2026 ErdosLab (maintainers@erdoslab.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(Record{
			RunAt:      base.Add(time.Duration(i) * time.Minute),
			TreeDigest: "digest-a",
			Problems:   2,
			Findings:   i,
			Pass:       i == 0,
		}))
	}

	records, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, 2, records[0].Findings)
	assert.Equal(t, 0, records[2].Findings)
	assert.True(t, records[2].Pass)
}

func TestListLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(Record{
			RunAt:      base.Add(time.Duration(i) * time.Second),
			TreeDigest: "d",
		}))
	}

	records, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLastForDigest(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(Record{RunAt: base, TreeDigest: "old", Findings: 4}))
	require.NoError(t, store.Append(Record{RunAt: base.Add(time.Minute), TreeDigest: "current", Findings: 0, Pass: true}))
	require.NoError(t, store.Append(Record{RunAt: base.Add(2 * time.Minute), TreeDigest: "current", Findings: 0, Pass: true}))

	rec, ok, err := store.LastForDigest("current")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Pass)
	assert.Equal(t, base.Add(2*time.Minute), rec.RunAt)

	_, ok, err = store.LastForDigest("never-seen")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", nil)
	require.Error(t, err)
}
