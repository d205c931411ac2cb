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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "AQUANODE_CFG"
	CfgFile       = "config.toml"
	LogDir        = "logs"
	EventsFile    = "events.db"
)

type Values struct {
	Service      Service  `toml:"service,omitempty"`
	TimeSync     TimeSync `toml:"timesync,omitempty"`
	Modem        Modem    `toml:"modem,omitempty"`
	RTC          RTC      `toml:"rtc,omitempty"`
	ConfigSchema int      `toml:"config_schema"`
	DebugLogging bool     `toml:"debug_logging"`
}

type Service struct {
	DeviceID         string `toml:"device_id,omitempty"`
	DataDir          string `toml:"data_dir,omitempty"`
	WakeIntervalMins int    `toml:"wake_interval_mins" validate:"gte=1"`
}

type TimeSync struct {
	// HTTPTimeURL is a plain endpoint whose response body is exactly a
	// 10-digit decimal epoch timestamp. Empty disables the HTTP source.
	HTTPTimeURL string `toml:"http_time_url" validate:"omitempty,url"`
	// PlausibleAfter and PlausibleBefore bound the timestamps the sync
	// engine will ever act on, exclusive on both ends.
	PlausibleAfter      uint32 `toml:"plausible_after" validate:"gt=0"`
	PlausibleBefore     uint32 `toml:"plausible_before" validate:"gtfield=PlausibleAfter"`
	ModemAttempts       int    `toml:"modem_attempts" validate:"gte=1"`
	ModemRetryDelaySecs int    `toml:"modem_retry_delay_secs" validate:"gte=0"`
	HTTPTimeoutSecs     int    `toml:"http_timeout_secs" validate:"gte=1"`
	ExternalRTCEnabled  bool   `toml:"external_rtc_enabled"`
}

type Modem struct {
	Device string `toml:"device,omitempty"`
	Baud   int    `toml:"baud" validate:"gte=0"`
}

type RTC struct {
	// Bus is the I2C bus reference passed to the host driver, for example
	// "/dev/i2c-1" or "1". Empty selects the first available bus.
	Bus string `toml:"bus,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Service: Service{
		WakeIntervalMins: 10,
	},
	TimeSync: TimeSync{
		ExternalRTCEnabled:  true,
		PlausibleAfter:      1577836800, // 2020-01-01T00:00:00Z
		PlausibleBefore:     2524608000, // 2050-01-01T00:00:00Z
		ModemAttempts:       3,
		ModemRetryDelaySecs: 5,
		HTTPTimeoutSecs:     30,
	},
	Modem: Modem{
		Baud: 115200,
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       sync.RWMutex
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewInstance loads the config file under dataDir, creating it with defaults
// on first run. The AQUANODE_CFG environment variable overrides the path.
func NewInstance(dataDir string, defaults Values) (*Instance, error) {
	cfgPath := filepath.Join(dataDir, CfgFile)
	if env, ok := os.LookupEnv(CfgEnv); ok && env != "" {
		cfgPath = env
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); err != nil {
		log.Info().Msgf("creating default config file: %s", cfgPath)

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	if err := validate.Struct(&newVals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	// generate a device id if one doesn't exist
	if c.vals.Service.DeviceID == "" {
		newID := uuid.New().String()
		c.vals.Service.DeviceID = newID
		log.Info().Msgf("generated new device id: %s", newID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Service() Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service
}

func (c *Instance) TimeSync() TimeSync {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.TimeSync
}

func (c *Instance) Modem() Modem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Modem
}

func (c *Instance) RTC() RTC {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.RTC
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = v
}
