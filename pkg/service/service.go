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

// Package service runs the node's wake cycle. Each wake starts with a self
// test that decides whether the clock can be trusted before any scheduled
// measurement or transmission work is allowed to run.
package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/AquaNodeProject/aquanode-core/pkg/telemetry"
	"github.com/AquaNodeProject/aquanode-core/pkg/timesync"
)

// TemperatureReader is the optional RTC die temperature probe sampled each
// wake cycle. The read blocks for the chip's conversion latency.
type TemperatureReader interface {
	ReadTemperature() (float32, error)
}

// Service drives the periodic wake cycle.
type Service struct {
	engine   *timesync.Engine
	events   telemetry.Recorder
	temp     TemperatureReader
	clock    clockwork.Clock
	interval time.Duration
}

// New creates the wake cycle service. temp may be nil on variants without
// an external RTC; a nil clock means the real clock.
func New(engine *timesync.Engine, events telemetry.Recorder, temp TemperatureReader, clock clockwork.Clock, interval time.Duration) *Service {
	if events == nil {
		events = telemetry.LogRecorder{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		engine:   engine,
		events:   events,
		temp:     temp,
		clock:    clock,
		interval: interval,
	}
}

// Run executes the wake cycle until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.interval).Msg("wake cycle started")

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wake cycle stopped: %w", ctx.Err())
		case <-ticker.Chan():
			if err := s.SelfTest(ctx); err != nil {
				log.Warn().Err(err).Msg("skipping wake cycle work")
				continue
			}
			s.sampleTemperature()
		}
	}
}

// SelfTest checks the clock before scheduled work runs. An implausible
// system time or a detected RTC drift forces a resync; if that fails too
// the cycle's work is skipped and the node waits for the next wake.
func (s *Service) SelfTest(ctx context.Context) error {
	drift := s.engine.DetectDrift()
	valid := s.engine.PlausibleTimestamp(s.engine.CurrentTimestamp())

	if valid && drift == 0 {
		return nil
	}

	if drift != 0 {
		log.Warn().Int("drift_secs", drift).Msg("rtc drift detected, resyncing")
	}
	if !valid {
		log.Error().Msg("system time implausible, resyncing")
	}

	// An implausible clock gives the tolerance band nothing to anchor on,
	// so the forced resync suppresses it. Drift-only resyncs keep it.
	if err := s.engine.Sync(ctx, valid); err != nil {
		s.events.Record(telemetry.CodeSelfTestFailed)
		return fmt.Errorf("wakeup self test: %w", err)
	}

	return nil
}

func (s *Service) sampleTemperature() {
	if s.temp == nil {
		return
	}
	t, err := s.temp.ReadTemperature()
	if err != nil {
		log.Warn().Err(err).Msg("rtc temperature read failed")
		return
	}
	s.events.Record(telemetry.CodeRTCTemperature, int64(math.Round(float64(t)*100)))
}
