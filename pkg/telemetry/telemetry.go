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

// Package telemetry is the node's coded event log. Events are small
// fixed-shape records (code plus up to two numeric fields) appended locally
// and uplinked in bulk on the next transmission window.
package telemetry

import "github.com/rs/zerolog/log"

// Code identifies an event type. Values are part of the uplink contract
// with the backend and must not be renumbered.
type Code int

const (
	CodeBoot             Code = 1
	CodeSyncCompleted    Code = 10
	CodeUnsafeTimechange Code = 11
	CodeDriftDetected    Code = 12
	CodeSelfTestFailed   Code = 13
	CodeRTCTemperature   Code = 14
)

func (c Code) String() string {
	switch c {
	case CodeBoot:
		return "boot"
	case CodeSyncCompleted:
		return "sync_completed"
	case CodeUnsafeTimechange:
		return "unsafe_timechange"
	case CodeDriftDetected:
		return "drift_detected"
	case CodeSelfTestFailed:
		return "self_test_failed"
	case CodeRTCTemperature:
		return "rtc_temperature"
	default:
		return "unknown"
	}
}

// Recorder accepts coded events. Implementations must tolerate being called
// before the system clock is valid.
type Recorder interface {
	Record(code Code, meta ...int64)
}

// LogRecorder writes events to the process log only. Used as a fallback when
// the event store is unavailable and as the default in tests.
type LogRecorder struct{}

func (LogRecorder) Record(code Code, meta ...int64) {
	log.Info().
		Str("event", code.String()).
		Ints64("meta", meta).
		Msg("telemetry event")
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) Record(Code, ...int64) {}
