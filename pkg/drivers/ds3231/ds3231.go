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

// Package ds3231 drives the battery-backed DS3231 real time clock over I2C.
// The chip is the node's only time anchor while the modem is off, so reads
// are strict: a detected oscillator stop makes the stored time untrusted and
// ReadTime refuses to return it.
package ds3231

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

const (
	// DefaultAddr is the fixed I2C address of the DS3231.
	DefaultAddr = 0x68

	regTime    = 0x00
	regControl = 0x0E
	regStatus  = 0x0F
	regTempMSB = 0x11

	ctlEOSC  = 1 << 7 // oscillator stopped on battery when set
	ctlCONV  = 1 << 5 // force temperature compensation conversion
	ctlINTCN = 1 << 2 // interrupt mode instead of square wave
	stsOSF   = 1 << 7 // oscillator stop flag, time not trustworthy
	stsEN32K = 1 << 3

	// tempSettleDelay is the worst-case conversion latency after a forced
	// temperature compensation update. ReadTemperature blocks for this long.
	tempSettleDelay = 200 * time.Millisecond
)

// ErrOscillatorStopped means the chip lost power at some point and its time
// can no longer be trusted.
var ErrOscillatorStopped = errors.New("rtc oscillator stop detected")

// Bus is the subset of I2C bus operations the driver needs (for mocking in
// tests).
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Device is a DS3231 on an I2C bus. The device owns the bus address
// exclusively; callers must not access it concurrently.
type Device struct {
	bus   Bus
	clock clockwork.Clock
	addr  uint16
}

// New creates a Device on the given bus. A nil clock means the real clock.
func New(bus Bus, clock clockwork.Clock) *Device {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Device{
		bus:   bus,
		clock: clock,
		addr:  DefaultAddr,
	}
}

// Open initialises the host I2C subsystem and opens the named bus. An empty
// name selects the first available bus.
func Open(busName string, clock clockwork.Clock) (*Device, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to init host drivers: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open i2c bus %q: %w", busName, err)
	}

	return New(bus, clock), bus, nil
}

func (d *Device) readReg(reg byte, buf []byte) error {
	if err := d.bus.Tx(d.addr, []byte{reg}, buf); err != nil {
		return fmt.Errorf("rtc read reg 0x%02x: %w", reg, err)
	}
	return nil
}

func (d *Device) writeReg(reg byte, vals ...byte) error {
	w := append([]byte{reg}, vals...)
	if err := d.bus.Tx(d.addr, w, nil); err != nil {
		return fmt.Errorf("rtc write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// Init prepares the chip at system start: starts the oscillator if it is
// stopped, switches the square wave pin to interrupt mode and disables the
// 32kHz output. It does not clear the oscillator stop flag, that only
// happens when a trusted time is written.
func (d *Device) Init() error {
	var status [1]byte
	if err := d.readReg(regStatus, status[:]); err != nil {
		return err
	}
	if status[0]&stsOSF != 0 {
		log.Warn().Msg("rtc oscillator stop detected, stored time is untrusted")
	}

	if !d.IsRunning() {
		log.Info().Msg("rtc was not running, starting")
		if err := d.Start(); err != nil {
			return err
		}
	}

	var ctl [1]byte
	if err := d.readReg(regControl, ctl[:]); err != nil {
		return err
	}
	if err := d.writeReg(regControl, ctl[0]|ctlINTCN); err != nil {
		return err
	}
	if err := d.writeReg(regStatus, status[0]&^byte(stsEN32K)); err != nil {
		return err
	}

	return nil
}

// IsRunning reports whether the oscillator runs on battery power. Bus
// failures report false.
func (d *Device) IsRunning() bool {
	var ctl [1]byte
	if err := d.readReg(regControl, ctl[:]); err != nil {
		log.Error().Err(err).Msg("rtc running check failed")
		return false
	}
	return ctl[0]&ctlEOSC == 0
}

// Start enables the oscillator on battery power.
func (d *Device) Start() error {
	var ctl [1]byte
	if err := d.readReg(regControl, ctl[:]); err != nil {
		return err
	}
	return d.writeReg(regControl, ctl[0]&^byte(ctlEOSC))
}

// ReadTime returns the chip's current time. It fails with
// ErrOscillatorStopped when the chip reports a past power loss, in which
// case the stored value must not be used as a time source.
func (d *Device) ReadTime() (timesync.Timestamp, error) {
	var status [1]byte
	if err := d.readReg(regStatus, status[:]); err != nil {
		return 0, err
	}
	if status[0]&stsOSF != 0 {
		return 0, ErrOscillatorStopped
	}

	var regs [7]byte
	if err := d.readReg(regTime, regs[:]); err != nil {
		return 0, err
	}

	chipSecs, err := decodeTime(regs)
	if err != nil {
		return 0, err
	}
	return fromChipEpoch(chipSecs), nil
}

// WriteTime sets the chip's time and clears the oscillator stop flag, which
// marks the stored time as trusted again.
func (d *Device) WriteTime(t timesync.Timestamp) error {
	regs, err := encodeTime(toChipEpoch(t))
	if err != nil {
		return err
	}
	if err := d.writeReg(regTime, regs[:]...); err != nil {
		return err
	}

	var status [1]byte
	if err := d.readReg(regStatus, status[:]); err != nil {
		return err
	}
	return d.writeReg(regStatus, status[0]&^byte(stsOSF))
}

// ReadTemperature forces a temperature compensation update, waits out the
// conversion latency and returns the die temperature in °C. This call blocks
// the caller for the settle delay.
func (d *Device) ReadTemperature() (float32, error) {
	var ctl [1]byte
	if err := d.readReg(regControl, ctl[:]); err != nil {
		return 0, err
	}
	if err := d.writeReg(regControl, ctl[0]|ctlCONV); err != nil {
		return 0, err
	}

	d.clock.Sleep(tempSettleDelay)

	var raw [2]byte
	if err := d.readReg(regTempMSB, raw[:]); err != nil {
		return 0, err
	}

	// MSB is a signed integer °C, top two bits of LSB are 0.25°C steps.
	whole := int8(raw[0])
	frac := float32(raw[1]>>6) * 0.25
	if whole < 0 {
		return float32(whole) - frac, nil
	}
	return float32(whole) + frac, nil
}
