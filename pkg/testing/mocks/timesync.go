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

package mocks

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

// MockModem is a mock implementation of the timesync.Modem port using
// testify/mock.
type MockModem struct {
	mock.Mock
}

func (m *MockModem) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockModem) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockModem) TriggerNTP(ctx context.Context) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockModem) ReadClock(ctx context.Context) (timesync.Timestamp, error) {
	args := m.Called(ctx)
	ts, _ := args.Get(0).(timesync.Timestamp)
	if err := args.Error(1); err != nil {
		return ts, fmt.Errorf("mock operation failed: %w", err)
	}
	return ts, nil
}

// MockRTC is a mock implementation of the timesync.RTCDevice port using
// testify/mock.
type MockRTC struct {
	mock.Mock
}

func (m *MockRTC) ReadTime() (timesync.Timestamp, error) {
	args := m.Called()
	ts, _ := args.Get(0).(timesync.Timestamp)
	if err := args.Error(1); err != nil {
		return ts, fmt.Errorf("mock operation failed: %w", err)
	}
	return ts, nil
}

func (m *MockRTC) WriteTime(t timesync.Timestamp) error {
	args := m.Called(t)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

// MockTemperatureReader mocks the RTC die temperature probe.
type MockTemperatureReader struct {
	mock.Mock
}

func (m *MockTemperatureReader) ReadTemperature() (float32, error) {
	args := m.Called()
	temp, _ := args.Get(0).(float32)
	if err := args.Error(1); err != nil {
		return temp, fmt.Errorf("mock operation failed: %w", err)
	}
	return temp, nil
}
