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

package ds3231

import (
	"fmt"
	"time"

	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

// chipEpochOffset converts between Unix epoch and the chip's native base of
// 2000-01-01T00:00:00Z.
const chipEpochOffset = 946684800

// toChipEpoch converts a Unix timestamp to seconds since 2000. Timestamps
// before 2000 saturate to zero, the chip cannot represent them.
func toChipEpoch(t timesync.Timestamp) uint32 {
	if uint32(t) < chipEpochOffset {
		return 0
	}
	return uint32(t) - chipEpochOffset
}

// fromChipEpoch converts seconds since 2000 to a Unix timestamp.
func fromChipEpoch(secs uint32) timesync.Timestamp {
	return timesync.Timestamp(secs + chipEpochOffset)
}

func toBCD(v int) byte {
	return byte(v/10<<4 | v%10) //nolint:gosec // callers pass 0..99
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// encodeTime renders chip-epoch seconds into the seven DS3231 time
// registers. Only years 2000 through 2099 are representable.
func encodeTime(chipSecs uint32) ([7]byte, error) {
	var regs [7]byte

	t := time.Unix(int64(chipSecs)+chipEpochOffset, 0).UTC()
	if t.Year() < 2000 || t.Year() > 2099 {
		return regs, fmt.Errorf("year %d not representable by rtc", t.Year())
	}

	regs[0] = toBCD(t.Second())
	regs[1] = toBCD(t.Minute())
	regs[2] = toBCD(t.Hour()) // 24h mode, bit 6 clear
	regs[3] = byte(t.Weekday()) + 1
	regs[4] = toBCD(t.Day())
	regs[5] = toBCD(int(t.Month()))
	regs[6] = toBCD(t.Year() - 2000)

	return regs, nil
}

// decodeTime parses the seven DS3231 time registers into chip-epoch
// seconds.
func decodeTime(regs [7]byte) (uint32, error) {
	sec := fromBCD(regs[0] & 0x7F)
	minute := fromBCD(regs[1] & 0x7F)
	hour := fromBCD(regs[2] & 0x3F) // assume 24h mode
	day := fromBCD(regs[4] & 0x3F)
	month := fromBCD(regs[5] & 0x1F)
	year := 2000 + fromBCD(regs[6])

	if month < 1 || month > 12 || day < 1 || day > 31 ||
		hour > 23 || minute > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid rtc register contents: % x", regs)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	unix := t.Unix()
	if unix < chipEpochOffset {
		return 0, fmt.Errorf("rtc time before chip epoch: %s", t)
	}

	return uint32(unix - chipEpochOffset), nil //nolint:gosec // bounded by year 2099
}
