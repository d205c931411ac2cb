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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

func TestChipEpochConversion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), toChipEpoch(946684800))
	assert.Equal(t, uint32(753315200), toChipEpoch(1700000000))
	assert.Equal(t, timesync.Timestamp(1700000000), fromChipEpoch(753315200))

	// Times before the chip epoch saturate rather than wrap.
	assert.Equal(t, uint32(0), toChipEpoch(1000))
}

func TestBCD(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x00), toBCD(0))
	assert.Equal(t, byte(0x59), toBCD(59))
	assert.Equal(t, byte(0x23), toBCD(23))
	assert.Equal(t, 59, fromBCD(0x59))
	assert.Equal(t, 7, fromBCD(0x07))
}

func TestEncodeTime_KnownVector(t *testing.T) {
	t.Parallel()

	// 2023-11-14 22:13:20 UTC, a Tuesday.
	regs, err := encodeTime(toChipEpoch(1700000000))
	require.NoError(t, err)

	assert.Equal(t, [7]byte{0x20, 0x13, 0x22, 0x03, 0x14, 0x11, 0x23}, regs)
}

func TestEncodeTime_YearOutOfRange(t *testing.T) {
	t.Parallel()

	// 2100-01-01 is one second past the last representable year.
	_, err := encodeTime(uint32(4102444800 - chipEpochOffset))
	assert.Error(t, err)
}

func TestDecodeTime_KnownVector(t *testing.T) {
	t.Parallel()

	secs, err := decodeTime([7]byte{0x20, 0x13, 0x22, 0x03, 0x14, 0x11, 0x23})
	require.NoError(t, err)
	assert.Equal(t, timesync.Timestamp(1700000000), fromChipEpoch(secs))
}

func TestDecodeTime_RejectsGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		regs [7]byte
	}{
		{name: "month zero", regs: [7]byte{0x00, 0x00, 0x00, 0x01, 0x01, 0x00, 0x23}},
		{name: "month thirteen", regs: [7]byte{0x00, 0x00, 0x00, 0x01, 0x01, 0x13, 0x23}},
		{name: "day zero", regs: [7]byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x23}},
		{name: "seconds overflow", regs: [7]byte{0x75, 0x00, 0x00, 0x01, 0x01, 0x01, 0x23}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := decodeTime(tt.regs)
			assert.Error(t, err)
		})
	}
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, ts := range []timesync.Timestamp{946684800, 1577836800, 1700000000, 2524607999} {
		regs, err := encodeTime(toChipEpoch(ts))
		require.NoError(t, err)

		secs, err := decodeTime(regs)
		require.NoError(t, err)
		assert.Equal(t, ts, fromChipEpoch(secs))
	}
}
