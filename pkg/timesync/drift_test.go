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

package timesync_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AquaNodeProject/aquanode-core/pkg/telemetry"
	. "github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

func TestDetectDrift_ReportsExcessDivergence(t *testing.T) {
	t.Parallel()

	e, sys, _, rtc, rec, fake := newTestEngine(t, Options{ExternalRTCEnabled: true})

	// Baseline: tick 0, timestamp 1000.
	require.NoError(t, sys.Set(1000))
	e.Checkpoint()

	// 120s of ticks pass but the RTC claims 135s elapsed. Tolerance is
	// max(10, ceil(0.05*120)) = 10, so the 15s divergence is reported.
	fake.Advance(120 * time.Second)
	rtc.On("ReadTime").Return(Timestamp(1135), nil)

	assert.Equal(t, 15, e.DetectDrift())

	events := rec.byCode(telemetry.CodeDriftDetected)
	require.Len(t, events, 1)
	assert.Equal(t, int64(15), events[0].meta[0])
	assert.Equal(t, int64(1135), events[0].meta[1])
}

func TestDetectDrift_NegativeDrift(t *testing.T) {
	t.Parallel()

	e, sys, _, rtc, _, fake := newTestEngine(t, Options{ExternalRTCEnabled: true})

	require.NoError(t, sys.Set(1000))
	e.Checkpoint()

	// RTC ran slow: only 100s elapsed against 120s of ticks.
	fake.Advance(120 * time.Second)
	rtc.On("ReadTime").Return(Timestamp(1100), nil)

	assert.Equal(t, -20, e.DetectDrift())
}

func TestDetectDrift_WithinTolerance(t *testing.T) {
	t.Parallel()

	e, sys, _, rtc, rec, fake := newTestEngine(t, Options{ExternalRTCEnabled: true})

	require.NoError(t, sys.Set(1000))
	e.Checkpoint()

	fake.Advance(120 * time.Second)
	rtc.On("ReadTime").Return(Timestamp(1128), nil)

	assert.Equal(t, 0, e.DetectDrift())
	assert.Empty(t, rec.byCode(telemetry.CodeDriftDetected))
}

func TestDetectDrift_NoCheckpoint(t *testing.T) {
	t.Parallel()

	e, _, _, rtc, _, fake := newTestEngine(t, Options{ExternalRTCEnabled: true})

	fake.Advance(time.Hour)
	assert.Equal(t, 0, e.DetectDrift())
	rtc.AssertNotCalled(t, "ReadTime")
}

func TestDetectDrift_RTCDisabled(t *testing.T) {
	t.Parallel()

	e, sys, _, rtc, _, fake := newTestEngine(t, Options{ExternalRTCEnabled: false})

	require.NoError(t, sys.Set(1000))
	e.Checkpoint()
	fake.Advance(time.Hour)

	assert.Equal(t, 0, e.DetectDrift())
	rtc.AssertNotCalled(t, "ReadTime")
}

func TestDetectDrift_RTCUnreadable(t *testing.T) {
	t.Parallel()

	e, sys, _, rtc, _, fake := newTestEngine(t, Options{ExternalRTCEnabled: true})

	require.NoError(t, sys.Set(1000))
	e.Checkpoint()
	fake.Advance(120 * time.Second)
	rtc.On("ReadTime").Return(Timestamp(0), assert.AnError)

	assert.Equal(t, 0, e.DetectDrift())
}
