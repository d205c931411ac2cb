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

// Package timesync keeps the node's wall clock trustworthy on a device with
// no continuous network access. It walks an ordered chain of heterogeneous
// time sources (HTTP timestamp fetch, modem NTP, battery-backed external RTC,
// raw modem clock), gates every candidate through a plausibility and
// tolerance check, and watches for slow divergence between the monotonic
// tick counter and the external RTC.
package timesync

import (
	"context"
	"errors"
	"math"
)

// Timestamp is seconds since the Unix epoch. The node never deals in
// sub-second wall time and all timestamps are UTC.
type Timestamp uint32

// Source identifies which time source produced a committed timestamp.
// Recorded for diagnostics only; it never influences control flow.
type Source uint8

const (
	SourceNone Source = iota
	SourceNTP
	SourceHTTP
	SourceExternalRTC
	SourceModemClock
)

func (s Source) String() string {
	switch s {
	case SourceNTP:
		return "ntp"
	case SourceHTTP:
		return "http"
	case SourceExternalRTC:
		return "external_rtc"
	case SourceModemClock:
		return "modem_clock"
	case SourceNone:
		return "none"
	default:
		return "unknown"
	}
}

// Window bounds the timestamps the engine will ever act on. Any candidate
// outside (After, Before) is rejected regardless of which source produced it.
type Window struct {
	After  Timestamp
	Before Timestamp
}

// Contains reports whether t lies strictly inside the window.
func (w Window) Contains(t Timestamp) bool {
	return t > w.After && t < w.Before
}

// Outcome records the result of one sync pass for audit logging.
type Outcome struct {
	OK     bool
	Source Source
	// Before is the system timestamp as it was when the pass started.
	Before Timestamp
}

var (
	// ErrHardware is a bus or chip communication failure. The failing
	// source is treated as unavailable and the chain continues.
	ErrHardware = errors.New("hardware failure")
	// ErrTransport is a modem or HTTP failure after per-source retries.
	ErrTransport = errors.New("transport failure")
	// ErrImplausibleValue means a candidate fell outside the plausibility
	// window. The source is abandoned without retry since the data itself
	// is wrong, not the channel.
	ErrImplausibleValue = errors.New("implausible timestamp")
	// ErrUnsafeTimechange means a candidate failed the tolerance band
	// check against the current clock.
	ErrUnsafeTimechange = errors.New("unsafe timechange")
	// ErrAllSourcesExhausted is the terminal failure for one sync pass.
	// The system clock is left unchanged and the caller decides what to
	// do next, usually sleep and retry on the next scheduled wake.
	ErrAllSourcesExhausted = errors.New("all time sources exhausted")
)

// Modem is the narrow port to the cellular modem layer. ReadClock returns
// whatever the modem currently believes the time is, which is true NTP time
// only if TriggerNTP succeeded beforehand, and raw network time otherwise.
type Modem interface {
	IsConnected() bool
	Connect(ctx context.Context) error
	TriggerNTP(ctx context.Context) error
	ReadClock(ctx context.Context) (Timestamp, error)
}

// RTCDevice is the narrow port to the battery-backed external RTC.
type RTCDevice interface {
	ReadTime() (Timestamp, error)
	WriteTime(t Timestamp) error
}

// tolerance is the shared drift/timechange tolerance band: 5% of the elapsed
// seconds with a floor of 10.
func tolerance(elapsedSec int64) int64 {
	tol := int64(math.Ceil(float64(elapsedSec) * 0.05))
	if tol < 10 {
		tol = 10
	}
	return tol
}
