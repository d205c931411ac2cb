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

// Package modem drives a SIM7000-class cellular module over an AT command
// serial link. It exposes only what the sync engine needs: session state,
// the built-in NTP client and the module clock.
package modem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

const (
	defaultNTPServer = "pool.ntp.org"
	cmdTimeout       = 10 * time.Second
	ntpTimeout       = 30 * time.Second
	readChunkTimeout = 500 * time.Millisecond
)

// ErrModemClosed is returned for operations on a driver whose port is not
// open.
var ErrModemClosed = errors.New("modem port not open")

// Port defines the serial port operations the driver needs (for mocking in
// tests).
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory creates a serial port connection.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory is the default factory that opens real serial ports.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Driver talks to the modem over a serial AT link. The modem session is
// exclusively owned by whichever call is in flight; the driver serialises
// access with a mutex.
type Driver struct {
	port        Port
	portFactory PortFactory
	path        string
	ntpServer   string
	baud        int
	connected   bool
	mu          sync.Mutex
}

// NewDriver creates a Driver for the modem on the given serial device.
func NewDriver(path string, baud int) *Driver {
	return &Driver{
		portFactory: DefaultPortFactory,
		path:        path,
		baud:        baud,
		ntpServer:   defaultNTPServer,
	}
}

// Open establishes the serial link and checks the module responds to AT.
func (d *Driver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		return nil
	}

	port, err := d.portFactory(d.path, &serial.Mode{BaudRate: d.baud})
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(readChunkTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	d.port = port

	if _, err := d.command("AT", cmdTimeout); err != nil {
		_ = port.Close()
		d.port = nil
		return fmt.Errorf("modem not responding: %w", err)
	}

	return nil
}

// Close shuts down the serial link.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.connected = false
	if err != nil {
		return fmt.Errorf("failed to close modem port: %w", err)
	}
	return nil
}

// IsConnected reports whether a data session is up. It trusts the module
// over cached state.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return false
	}

	resp, err := d.command("AT+CGATT?", cmdTimeout)
	if err != nil {
		log.Debug().Err(err).Msg("modem attach query failed")
		d.connected = false
		return false
	}
	d.connected = strings.Contains(resp, "+CGATT: 1")
	return d.connected
}

// Connect attaches the module to the packet network.
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return ErrModemClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("modem connect cancelled: %w", err)
	}

	if _, err := d.command("AT+CGATT=1", ntpTimeout); err != nil {
		d.connected = false
		return fmt.Errorf("network attach failed: %w", err)
	}

	d.connected = true
	return nil
}

// TriggerNTP runs the module's built-in NTP client once. On success the
// module clock holds NTP time; on failure it may still hold raw network
// time with an arbitrary timezone.
func (d *Driver) TriggerNTP(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return ErrModemClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ntp trigger cancelled: %w", err)
	}

	// UTC mode: offset 0 so CCLK reads back without a timezone skew.
	cfg := fmt.Sprintf("AT+CNTP=%q,0", d.ntpServer)
	if _, err := d.command(cfg, cmdTimeout); err != nil {
		return fmt.Errorf("ntp config failed: %w", err)
	}

	resp, err := d.command("AT+CNTP", ntpTimeout)
	if err != nil {
		return fmt.Errorf("ntp sync failed: %w", err)
	}
	if !strings.Contains(resp, "+CNTP: 1") {
		return fmt.Errorf("ntp sync rejected by module: %s", strings.TrimSpace(resp))
	}

	return nil
}

// ReadClock reads the module's current clock. The value is NTP time only if
// TriggerNTP succeeded beforehand, otherwise it is whatever the cellular
// network reported and must be treated as untrusted.
func (d *Driver) ReadClock(ctx context.Context) (timesync.Timestamp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return 0, ErrModemClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("clock read cancelled: %w", err)
	}

	resp, err := d.command("AT+CCLK?", cmdTimeout)
	if err != nil {
		return 0, fmt.Errorf("clock read failed: %w", err)
	}

	return parseClock(resp)
}
