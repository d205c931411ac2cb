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
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/AquaNodeProject/aquanode-core/pkg/shared/httpclient"
)

// Test-only bridges exposing internals to the external timesync_test
// package, which cannot live in-package because it depends on
// pkg/testing/mocks (importing it here would create an import cycle).

var (
	ParseTimeBody       = parseTimeBody
	CompensationSeconds = compensationSeconds
	Tolerance           = tolerance
)

func (e *Engine) Gate(t Timestamp) error { return e.gate(t) }

func (e *Engine) SetSafetyEnabled(v bool) { e.safetyEnabled = v }

func (e *Engine) SafetyEnabled() bool { return e.safetyEnabled }

func (e *Engine) LastSyncTick() int64 { return e.lastSyncTick }

func (e *Engine) CheckTick() int64 { return e.checkTick }

func (e *Engine) CheckTS() Timestamp { return e.checkTS }

func NewHTTPTimeSource(client *httpclient.Client, sys SystemClock, url string) *httpTimeSource {
	return &httpTimeSource{client: client, sys: sys, url: url}
}

func NewNTPTimeSource(modem Modem, clock clockwork.Clock, attempts int, delay time.Duration) *ntpTimeSource {
	return &ntpTimeSource{modem: modem, clock: clock, attempts: attempts, delay: delay}
}

func NewModemClockSource(modem Modem, clock clockwork.Clock, attempts int, delay time.Duration) *modemClockSource {
	return &modemClockSource{modem: modem, clock: clock, attempts: attempts, delay: delay}
}

func (s *httpTimeSource) Attempt(ctx context.Context) (Timestamp, error) { return s.attempt(ctx) }

func (s *ntpTimeSource) Attempt(ctx context.Context) (Timestamp, error) { return s.attempt(ctx) }

func (s *modemClockSource) Attempt(ctx context.Context) (Timestamp, error) {
	return s.attempt(ctx)
}
