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
	"sync"

	"github.com/jonboulle/clockwork"
)

// SystemClock is the device's in-memory monotonic/wall clock pair: a
// free-running tick counter that is never adjusted, and a settable wall
// clock that everything else on the node reads.
type SystemClock interface {
	// Tick returns milliseconds since boot. Monotonic, unaffected by
	// wall clock adjustments.
	Tick() int64
	// Now returns the current wall clock timestamp. Zero until the
	// first successful Set.
	Now() Timestamp
	// Set adjusts the wall clock without touching the tick counter.
	Set(t Timestamp) error
}

// MemoryClock implements SystemClock over a clockwork monotonic base. The
// wall clock is kept as a reference pair (timestamp, tick at set time) so
// setting time never disturbs tick arithmetic. Until the first Set it
// reports timestamp zero, which fails every plausibility check and forces
// a sync.
type MemoryClock struct {
	clock   clockwork.Clock
	mu      sync.RWMutex
	refTS   Timestamp
	refTick int64
	started int64
	set     bool
}

// NewMemoryClock creates a MemoryClock. A nil clock means the real clock.
func NewMemoryClock(clock clockwork.Clock) *MemoryClock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryClock{
		clock:   clock,
		started: clock.Now().UnixMilli(),
	}
}

func (c *MemoryClock) Tick() int64 {
	return c.clock.Now().UnixMilli() - c.started
}

func (c *MemoryClock) Now() Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.set {
		return 0
	}
	elapsedSec := (c.Tick() - c.refTick) / 1000
	return c.refTS + Timestamp(elapsedSec) //nolint:gosec // elapsed is non-negative
}

func (c *MemoryClock) Set(t Timestamp) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refTS = t
	c.refTick = c.Tick()
	c.set = true
	return nil
}
