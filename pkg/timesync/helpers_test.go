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

package timesync_test

import (
	"sync"

	"github.com/AquaNodeProject/aquanode-core/pkg/telemetry"
)

type capturedEvent struct {
	code telemetry.Code
	meta []int64
}

// captureRecorder collects telemetry events for assertions.
type captureRecorder struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (r *captureRecorder) Record(code telemetry.Code, meta ...int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, capturedEvent{code: code, meta: meta})
}

func (r *captureRecorder) byCode(code telemetry.Code) []capturedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []capturedEvent
	for _, evt := range r.events {
		if evt.code == code {
			out = append(out, evt)
		}
	}
	return out
}
