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
	"github.com/rs/zerolog/log"

	"github.com/AquaNodeProject/aquanode-core/pkg/telemetry"
)

// Checkpoint records the current tick and wall timestamp as the drift
// baseline. Called once at init and after every successful sync.
func (e *Engine) Checkpoint() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkpointLocked()
}

func (e *Engine) checkpointLocked() {
	e.checkTick = e.sys.Tick()
	e.checkTS = e.sys.Now()
}

// DetectDrift compares elapsed tick time against elapsed external RTC time
// since the last checkpoint and returns the signed drift in seconds when it
// exceeds the tolerance band, else 0. The tick counter is assumed accurate
// over short intervals, so a divergence exposes RTC crystal drift or an
// unexpected jump without needing network access.
//
// Returns 0 when the external RTC is disabled, when no checkpoint has been
// taken since the clock became valid, or when the RTC cannot be read.
func (e *Engine) DetectDrift() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.rtcEnabled || e.rtc == nil {
		return 0
	}
	// A zero baseline timestamp means the clock was never synced; there
	// is nothing meaningful to compare against.
	if e.checkTS == 0 {
		return 0
	}

	rtcNow, err := e.rtc.ReadTime()
	if err != nil {
		log.Warn().Err(err).Msg("drift check skipped, rtc unreadable")
		return 0
	}

	tickSec := (e.sys.Tick() - e.checkTick) / 1000
	rtcSec := int64(rtcNow) - int64(e.checkTS)
	if rtcSec < 0 {
		rtcSec = -rtcSec
	}

	tol := tolerance(tickSec)
	if rtcSec < tickSec-tol || rtcSec > tickSec+tol {
		drift := int(rtcSec - tickSec)
		log.Warn().
			Int("drift_secs", drift).
			Int64("tick_elapsed", tickSec).
			Int64("rtc_elapsed", rtcSec).
			Msg("rtc drift detected")
		e.events.Record(telemetry.CodeDriftDetected, int64(drift), int64(rtcNow))
		return drift
	}

	return 0
}
