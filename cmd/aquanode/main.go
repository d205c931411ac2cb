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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AquaNodeProject/aquanode-core/pkg/config"
	"github.com/AquaNodeProject/aquanode-core/pkg/drivers/ds3231"
	"github.com/AquaNodeProject/aquanode-core/pkg/drivers/modem"
	"github.com/AquaNodeProject/aquanode-core/pkg/helpers"
	"github.com/AquaNodeProject/aquanode-core/pkg/service"
	"github.com/AquaNodeProject/aquanode-core/pkg/telemetry"
	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

const appVersion = 1

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir := flag.String(
		"data",
		"/var/lib/aquanode",
		"data directory for config, logs and the event store",
	)
	console := flag.Bool(
		"console",
		false,
		"mirror logs to stderr",
	)
	flag.Parse()

	if *console {
		if err := helpers.InitLogging(filepath.Join(*dataDir, config.LogDir), false,
			zerolog.ConsoleWriter{Out: os.Stderr}); err != nil {
			return fmt.Errorf("failed to init logging: %w", err)
		}
	} else {
		if err := helpers.InitLogging(filepath.Join(*dataDir, config.LogDir), false); err != nil {
			return fmt.Errorf("failed to init logging: %w", err)
		}
	}

	cfg, err := config.NewInstance(*dataDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	sysClock := timesync.NewMemoryClock(nil)

	store, err := telemetry.OpenStore(
		filepath.Join(*dataDir, config.EventsFile),
		func() uint32 { return uint32(sysClock.Now()) },
	)
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event store")
		}
	}()

	ts := cfg.TimeSync()

	var rtcDev *ds3231.Device
	if ts.ExternalRTCEnabled {
		dev, closer, err := ds3231.Open(cfg.RTC().Bus, nil)
		if err != nil {
			// Degraded but not fatal: the node keeps running on
			// network time sources only.
			log.Error().Err(err).Msg("external rtc unavailable")
		} else {
			defer func() {
				if err := closer.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close i2c bus")
				}
			}()
			if err := dev.Init(); err != nil {
				log.Error().Err(err).Msg("external rtc init failed")
			} else {
				rtcDev = dev
			}
		}
	}

	mdm := modem.NewDriver(cfg.Modem().Device, cfg.Modem().Baud)
	if err := mdm.Open(); err != nil {
		log.Error().Err(err).Msg("modem unavailable")
	} else {
		defer func() {
			if err := mdm.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close modem")
			}
		}()
	}

	var modemPort timesync.Modem
	var rtcPort timesync.RTCDevice
	var tempPort service.TemperatureReader
	modemPort = mdm
	if rtcDev != nil {
		rtcPort = rtcDev
		tempPort = rtcDev
	}

	engine := timesync.NewEngine(sysClock, modemPort, rtcPort, store, nil, timesync.Options{
		Window: timesync.Window{
			After:  timesync.Timestamp(ts.PlausibleAfter),
			Before: timesync.Timestamp(ts.PlausibleBefore),
		},
		HTTPTimeURL:        ts.HTTPTimeURL,
		HTTPTimeout:        time.Duration(ts.HTTPTimeoutSecs) * time.Second,
		ModemAttempts:      ts.ModemAttempts,
		ModemRetryDelay:    time.Duration(ts.ModemRetryDelaySecs) * time.Second,
		ExternalRTCEnabled: ts.ExternalRTCEnabled && rtcPort != nil,
	})

	// Boot order matters: seed a rough time from the battery-backed RTC
	// first so early log entries carry sane timestamps, then do a full
	// forced sync once the modem is reachable.
	if err := engine.SeedFromRTC(); err != nil {
		log.Warn().Err(err).Msg("rtc time seed failed")
	}
	engine.Checkpoint()

	store.Record(telemetry.CodeBoot, appVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Sync(ctx, false); err != nil {
		log.Error().Err(err).Msg("boot time sync failed, no valid time source")
	}

	interval := time.Duration(cfg.Service().WakeIntervalMins) * time.Minute
	svc := service.New(engine, store, tempPort, nil, interval)

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
