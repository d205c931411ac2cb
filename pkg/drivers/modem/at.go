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

package modem

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

// command sends one AT command and collects the response until the module
// answers OK or ERROR, or the deadline passes. Must be called with the
// driver mutex held.
func (d *Driver) command(cmd string, timeout time.Duration) (string, error) {
	if _, err := d.port.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("write %q: %w", cmd, err)
	}

	var resp strings.Builder
	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		n, err := d.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read response to %q: %w", cmd, err)
		}
		if n == 0 {
			// Read timeout chunk, keep waiting until the deadline.
			continue
		}
		resp.Write(buf[:n])

		s := resp.String()
		if strings.Contains(s, "\r\nOK\r\n") {
			log.Trace().Str("cmd", cmd).Str("resp", s).Msg("at command ok")
			return s, nil
		}
		if strings.Contains(s, "\r\nERROR\r\n") || strings.Contains(s, "+CME ERROR") {
			return "", fmt.Errorf("module error for %q: %s", cmd, strings.TrimSpace(s))
		}
	}

	return "", fmt.Errorf("timeout waiting for response to %q", cmd)
}

// cclkRe matches the CCLK response payload: "yy/MM/dd,hh:mm:ss±zz" where zz
// is the timezone offset in quarter hours.
var cclkRe = regexp.MustCompile(`\+CCLK: "(\d{2})/(\d{2})/(\d{2}),(\d{2}):(\d{2}):(\d{2})([+-]\d{2})"`)

// parseClock extracts a UTC timestamp from an AT+CCLK? response. The module
// reports local network time with a quarter-hour timezone suffix which is
// subtracted out.
func parseClock(resp string) (timesync.Timestamp, error) {
	m := cclkRe.FindStringSubmatch(resp)
	if m == nil {
		return 0, fmt.Errorf("unparseable clock response: %s", strings.TrimSpace(resp))
	}

	var f [6]int
	for i := 0; i < 6; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("unparseable clock field %q: %w", m[i+1], err)
		}
		f[i] = v
	}

	quarters, err := strconv.Atoi(m[7])
	if err != nil {
		return 0, fmt.Errorf("unparseable timezone %q: %w", m[7], err)
	}

	local := time.Date(2000+f[0], time.Month(f[1]), f[2], f[3], f[4], f[5], 0, time.UTC)
	utc := local.Add(-time.Duration(quarters) * 15 * time.Minute)

	unix := utc.Unix()
	if unix < 0 {
		return 0, fmt.Errorf("clock before epoch: %s", utc)
	}
	return timesync.Timestamp(unix), nil //nolint:gosec // two digit year caps the range
}
