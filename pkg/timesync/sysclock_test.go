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

package timesync

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClock_ZeroUntilSet(t *testing.T) {
	t.Parallel()

	fake := clockwork.NewFakeClock()
	c := NewMemoryClock(fake)

	assert.Equal(t, Timestamp(0), c.Now())
	fake.Advance(time.Hour)
	assert.Equal(t, Timestamp(0), c.Now())
}

func TestMemoryClock_TickAdvancesIndependently(t *testing.T) {
	t.Parallel()

	fake := clockwork.NewFakeClock()
	c := NewMemoryClock(fake)

	assert.Equal(t, int64(0), c.Tick())
	fake.Advance(1500 * time.Millisecond)
	assert.Equal(t, int64(1500), c.Tick())

	// Setting wall time must not disturb the tick counter.
	require.NoError(t, c.Set(1700000000))
	assert.Equal(t, int64(1500), c.Tick())
}

func TestMemoryClock_WallFollowsTicks(t *testing.T) {
	t.Parallel()

	fake := clockwork.NewFakeClock()
	c := NewMemoryClock(fake)

	require.NoError(t, c.Set(1700000000))
	fake.Advance(90 * time.Second)
	assert.Equal(t, Timestamp(1700000090), c.Now())

	// A new set rebases the wall clock from the current tick.
	require.NoError(t, c.Set(1600000000))
	fake.Advance(10 * time.Second)
	assert.Equal(t, Timestamp(1600000010), c.Now())
}
