// AquaNode Core
// Copyright (c) 2026 The AquaNode Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of AquaNode Core.
//
// AquaNode Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AquaNode Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with AquaNode Core.  If not, see <http://www.gnu.org/licenses/>.

package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, now func() uint32) *Store {
	t.Helper()

	s, err := OpenStore(filepath.Join(t.TempDir(), "events.db"), now)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestStore_RecordAndList(t *testing.T) {
	t.Parallel()

	ts := uint32(0)
	s := openTestStore(t, func() uint32 { return ts })

	ts = 1700000000
	s.Record(CodeBoot, 42)
	ts = 1700000060
	s.Record(CodeDriftDetected, 15, 1135)

	evts, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, evts, 2)

	assert.Equal(t, CodeBoot, evts[0].Code)
	assert.Equal(t, int64(42), evts[0].Meta1)
	assert.Equal(t, uint32(1700000000), evts[0].Timestamp)
	assert.Equal(t, uint64(1), evts[0].Seq)

	assert.Equal(t, CodeDriftDetected, evts[1].Code)
	assert.Equal(t, int64(15), evts[1].Meta1)
	assert.Equal(t, int64(1135), evts[1].Meta2)
	assert.Equal(t, uint64(2), evts[1].Seq)
}

func TestStore_RecordBeforeClockValid(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, func() uint32 { return 0 })
	s.Record(CodeBoot)

	evts, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Zero(t, evts[0].Timestamp)
}

func TestStore_ListLimit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, nil)
	for i := 0; i < 5; i++ {
		s.Record(CodeSyncCompleted)
	}

	evts, err := s.List(3)
	require.NoError(t, err)
	assert.Len(t, evts, 3)
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, nil)
	for i := 0; i < 5; i++ {
		s.Record(CodeSyncCompleted, int64(i))
	}

	require.NoError(t, s.Prune(3))

	evts, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, uint64(4), evts[0].Seq)
	assert.Equal(t, uint64(5), evts[1].Seq)

	// Sequence numbers keep counting after a prune so acknowledgements
	// stay unambiguous.
	s.Record(CodeSyncCompleted)
	evts, err = s.List(0)
	require.NoError(t, err)
	require.Len(t, evts, 3)
	assert.Equal(t, uint64(6), evts[2].Seq)
}
