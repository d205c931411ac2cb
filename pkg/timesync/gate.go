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

// PlausibleTimestamp reports whether t lies strictly inside the configured
// plausibility window. Timestamps outside it are never acted upon no matter
// which source produced them.
func (e *Engine) PlausibleTimestamp(t Timestamp) bool {
	return e.window.Contains(t)
}

// gate is the single chokepoint every candidate timestamp passes before it
// may be committed. It rejects implausible values outright and, when the
// timechange safety is enabled, values outside a tolerance band around the
// current clock scaled by time since the last sync attempt. The band check
// needs the external RTC subsystem as a reference anchor; without one a
// device would be time-jump-blocked forever at boot, so it is skipped.
//
// Callers must hold the engine mutex.
func (e *Engine) gate(t Timestamp) error {
	if !e.window.Contains(t) {
		return ErrImplausibleValue
	}

	if !e.safetyEnabled {
		return nil
	}
	if !e.rtcEnabled {
		return nil
	}

	cur := int64(e.sys.Now())
	elapsedSec := (e.sys.Tick() - e.lastSyncTick) / 1000
	tol := tolerance(elapsedSec)

	if int64(t) < cur-tol || int64(t) > cur+tol {
		log.Error().
			Int64("from", cur).
			Uint32("to", uint32(t)).
			Int64("tolerance", tol).
			Msg("timechange not safe")
		e.events.Record(telemetry.CodeUnsafeTimechange, int64(t), cur)
		return ErrUnsafeTimechange
	}

	return nil
}
