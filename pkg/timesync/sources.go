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
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/AquaNodeProject/aquanode-core/pkg/helpers"
	"github.com/AquaNodeProject/aquanode-core/pkg/shared/httpclient"
)

// timeBodyLen is the exact length of a valid HTTP time response body: a
// 10-digit decimal epoch timestamp and nothing else.
const timeBodyLen = 10

// timeSource is one strategy for obtaining a wall clock candidate. The
// engine walks sources in priority order; the returned candidate still has
// to pass the safety gate before it is committed.
type timeSource interface {
	source() Source
	attempt(ctx context.Context) (Timestamp, error)
}

// httpTimeSource fetches the current epoch from a plain HTTP endpoint with
// a single GET. The request round trip is measured on the tick counter and
// subtracted from the result to compensate for link latency.
type httpTimeSource struct {
	client *httpclient.Client
	sys    SystemClock
	url    string
}

func (*httpTimeSource) source() Source { return SourceHTTP }

func (s *httpTimeSource) attempt(ctx context.Context) (Timestamp, error) {
	if s.url == "" {
		return 0, fmt.Errorf("%w: no time url configured", ErrTransport)
	}
	u, err := url.Parse(s.url)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return 0, fmt.Errorf("%w: invalid time url %q", ErrTransport, s.url)
	}

	start := s.sys.Tick()
	body, err := s.client.GetString(ctx, s.url, timeBodyLen+1)
	if err != nil {
		return 0, fmt.Errorf("%w: time request: %w", ErrTransport, err)
	}
	elapsedMS := s.sys.Tick() - start

	ts, err := parseTimeBody(body)
	if err != nil {
		return 0, err
	}

	comp := compensationSeconds(elapsedMS)
	if comp >= int64(ts) {
		return 0, fmt.Errorf("%w: compensation exceeds timestamp", ErrImplausibleValue)
	}
	return ts - Timestamp(comp), nil //nolint:gosec // comp is bounded by ts
}

// parseTimeBody accepts exactly ten ASCII digits. Anything else fails
// without retry since the data itself is wrong, not the channel.
func parseTimeBody(body string) (Timestamp, error) {
	if len(body) != timeBodyLen {
		return 0, fmt.Errorf("%w: body is not a timestamp: %q", ErrImplausibleValue, body)
	}
	v, err := strconv.ParseUint(body, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: body is not a timestamp: %q", ErrImplausibleValue, body)
	}
	return Timestamp(v), nil
}

// compensationSeconds converts a request round trip in milliseconds to the
// whole seconds subtracted from a fetched timestamp. Rounds to the nearest
// second with the half-second tie rounding down, so 2500ms compensates 2s
// and 2501ms compensates 3s.
func compensationSeconds(elapsedMS int64) int64 {
	if elapsedMS <= 0 {
		return 0
	}
	return (elapsedMS + 499) / 1000
}

// ntpTimeSource drives the modem's built-in NTP client and reads back the
// module clock. Both steps get the bounded retry policy.
type ntpTimeSource struct {
	modem    Modem
	clock    clockwork.Clock
	delay    time.Duration
	attempts int
}

func (*ntpTimeSource) source() Source { return SourceNTP }

func (s *ntpTimeSource) attempt(ctx context.Context) (Timestamp, error) {
	err := helpers.Retry(ctx, s.clock, s.attempts, s.delay, func() error {
		return s.modem.TriggerNTP(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: ntp trigger: %w", ErrTransport, err)
	}

	return readModemClock(ctx, s.modem, s.clock, s.attempts, s.delay)
}

// modemClockSource reads the module clock without running NTP first. The
// value may be raw cellular network time with a wrong timezone, which is
// exactly what the safety gate exists to catch.
type modemClockSource struct {
	modem    Modem
	clock    clockwork.Clock
	delay    time.Duration
	attempts int
}

func (*modemClockSource) source() Source { return SourceModemClock }

func (s *modemClockSource) attempt(ctx context.Context) (Timestamp, error) {
	return readModemClock(ctx, s.modem, s.clock, s.attempts, s.delay)
}

func readModemClock(ctx context.Context, m Modem, clock clockwork.Clock, attempts int, delay time.Duration) (Timestamp, error) {
	var ts Timestamp
	err := helpers.Retry(ctx, clock, attempts, delay, func() error {
		var err error
		ts, err = m.ReadClock(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: modem clock read: %w", ErrTransport, err)
	}
	return ts, nil
}

// rtcTimeSource reads the battery-backed external RTC. Possibly drifted but
// locally anchored, it is preferred over an untrusted network clock when
// network setup fails outright.
type rtcTimeSource struct {
	rtc RTCDevice
}

func (*rtcTimeSource) source() Source { return SourceExternalRTC }

func (s *rtcTimeSource) attempt(_ context.Context) (Timestamp, error) {
	ts, err := s.rtc.ReadTime()
	if err != nil {
		return 0, fmt.Errorf("%w: external rtc read: %w", ErrHardware, err)
	}
	return ts, nil
}
