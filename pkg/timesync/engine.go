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
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/AquaNodeProject/aquanode-core/pkg/shared/httpclient"
	"github.com/AquaNodeProject/aquanode-core/pkg/telemetry"
)

// Options configures the sync engine.
type Options struct {
	// Window bounds every timestamp the engine will act on.
	Window Window
	// HTTPTimeURL is the plain time endpoint. Empty disables the HTTP
	// source.
	HTTPTimeURL string
	// HTTPTimeout bounds the single time request.
	HTTPTimeout time.Duration
	// ModemAttempts and ModemRetryDelay set the bounded retry policy for
	// NTP triggering and modem clock reads.
	ModemAttempts   int
	ModemRetryDelay time.Duration
	// ExternalRTCEnabled gates every use of the external RTC: as a time
	// source, as the write-back target and as the drift reference.
	ExternalRTCEnabled bool
}

// Engine is the sync orchestrator. It owns the safety state and drift
// checkpoint; callers obtain it through dependency injection, there are no
// package globals.
//
// The engine assumes the single-task execution model of the node: one sync
// pass at a time, with the modem session and RTC bus exclusively owned by
// the call in flight. The mutex only guards against accidental concurrent
// use, it is not a throughput mechanism.
type Engine struct {
	sys    SystemClock
	modem  Modem
	rtc    RTCDevice
	events telemetry.Recorder
	clock  clockwork.Clock

	httpSrc *httpTimeSource
	ntpSrc  *ntpTimeSource
	clkSrc  *modemClockSource
	rtcSrc  *rtcTimeSource

	window     Window
	rtcEnabled bool

	mu            sync.Mutex
	safetyEnabled bool
	lastSyncTick  int64
	checkTick     int64
	checkTS       Timestamp
	lastOutcome   Outcome
}

// NewEngine creates the sync engine. modem and rtc may be nil on hardware
// variants lacking them; the corresponding sources are then skipped. A nil
// events recorder logs events without storing them, a nil clock means the
// real clock.
func NewEngine(sys SystemClock, modem Modem, rtc RTCDevice, events telemetry.Recorder, clock clockwork.Clock, opts Options) *Engine {
	if events == nil {
		events = telemetry.LogRecorder{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.ModemAttempts < 1 {
		opts.ModemAttempts = 1
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = httpclient.DefaultTimeoutSeconds * time.Second
	}

	e := &Engine{
		sys:           sys,
		modem:         modem,
		rtc:           rtc,
		events:        events,
		clock:         clock,
		window:        opts.Window,
		rtcEnabled:    opts.ExternalRTCEnabled && rtc != nil,
		safetyEnabled: true,
	}

	e.httpSrc = &httpTimeSource{
		client: httpclient.NewClientWithTimeout(opts.HTTPTimeout),
		sys:    sys,
		url:    opts.HTTPTimeURL,
	}
	if modem != nil {
		e.ntpSrc = &ntpTimeSource{
			modem:    modem,
			clock:    clock,
			attempts: opts.ModemAttempts,
			delay:    opts.ModemRetryDelay,
		}
		e.clkSrc = &modemClockSource{
			modem:    modem,
			clock:    clock,
			attempts: opts.ModemAttempts,
			delay:    opts.ModemRetryDelay,
		}
	}
	if rtc != nil {
		e.rtcSrc = &rtcTimeSource{rtc: rtc}
	}

	return e
}

// CurrentTimestamp returns the system wall clock. Zero means the clock was
// never set.
func (e *Engine) CurrentTimestamp() Timestamp {
	return e.sys.Now()
}

// LastOutcome returns the result of the most recent sync pass.
func (e *Engine) LastOutcome() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOutcome
}

// SeedFromRTC loads system time from the external RTC with only the
// plausibility check applied. Used once at boot before any network source
// is available, when there is no current time to band-check against.
func (e *Engine) SeedFromRTC() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.rtcEnabled {
		return ErrHardware
	}

	ts, err := e.rtcSrc.attempt(context.Background())
	if err != nil {
		return err
	}
	if !e.window.Contains(ts) {
		return ErrImplausibleValue
	}
	if err := e.sys.Set(ts); err != nil {
		return err
	}

	log.Info().Uint32("timestamp", uint32(ts)).Msg("system time seeded from external rtc")
	return nil
}

// Sync walks the time sources in priority order and commits the first
// candidate that passes the safety gate.
//
// With a network session up (already connected or connect succeeds) the
// order is: HTTP fetch, NTP trigger plus modem clock read, external RTC,
// modem clock alone. HTTP goes first because one short request is cheaper
// than driving the modem's NTP client. The external RTC outranks the bare
// modem clock: a battery-backed local clock beats an untrusted network
// clock with no plausibility anchor. Without a network session only the
// external RTC is tried.
//
// enableSafety=false skips the tolerance band for this pass, for forced
// resyncs at boot; safety is always re-enabled before returning. Whatever
// the outcome, the last sync tick is updated so repeated failures keep
// widening the tolerance band instead of resetting it.
func (e *Engine) Sync(ctx context.Context, enableSafety bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.safetyEnabled = enableSafety
	defer func() { e.safetyEnabled = true }()

	before := e.sys.Now()
	log.Info().Bool("safety", enableSafety).Msg("syncing system time")

	online := false
	if e.modem != nil {
		online = e.modem.IsConnected()
		if online {
			log.Debug().Msg("modem already connected")
		} else if err := e.modem.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("modem connect failed")
		} else {
			online = true
		}
	}

	var chain []timeSource
	if online {
		chain = append(chain, e.httpSrc, e.ntpSrc)
		if e.rtcEnabled {
			chain = append(chain, e.rtcSrc)
		}
		// If NTP never ran the module clock still carries raw network
		// time, worth gating as a last resort.
		chain = append(chain, e.clkSrc)
	} else if e.rtcEnabled {
		chain = append(chain, e.rtcSrc)
	}

	committed := SourceNone
	for _, src := range chain {
		ts, err := src.attempt(ctx)
		if err != nil {
			log.Debug().Err(err).Stringer("source", src.source()).Msg("time source failed")
			continue
		}
		if err := e.gate(ts); err != nil {
			log.Warn().Err(err).Stringer("source", src.source()).Uint32("candidate", uint32(ts)).
				Msg("time source rejected")
			continue
		}
		if err := e.sys.Set(ts); err != nil {
			log.Error().Err(err).Msg("failed to set system time")
			continue
		}

		committed = src.source()
		log.Info().Stringer("source", committed).Uint32("timestamp", uint32(ts)).
			Msg("system time synced")
		break
	}

	// The backup clock is only rewritten when time came from elsewhere.
	// Best effort: a failed write does not undo the sync.
	if committed != SourceNone && committed != SourceExternalRTC && e.rtcEnabled {
		if err := e.rtc.WriteTime(e.sys.Now()); err != nil {
			log.Warn().Err(err).Msg("failed to update external rtc")
		}
	}

	// Record after committing so the event carries the corrected time.
	e.events.Record(telemetry.CodeSyncCompleted, int64(before), int64(committed))

	e.lastSyncTick = e.sys.Tick()
	e.lastOutcome = Outcome{
		OK:     committed != SourceNone,
		Source: committed,
		Before: before,
	}

	if committed == SourceNone {
		return ErrAllSourcesExhausted
	}

	e.checkpointLocked()
	return nil
}
