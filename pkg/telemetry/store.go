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

package telemetry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

const bucketEvents = "events"

// Event is one stored telemetry record. Timestamp is whatever the system
// clock reported at record time and may be zero if the node had no valid
// time yet; the backend reorders by sequence in that case.
type Event struct {
	Code      Code   `json:"code"`
	Meta1     int64  `json:"meta1"`
	Meta2     int64  `json:"meta2"`
	Timestamp uint32 `json:"timestamp"`
	Seq       uint64 `json:"-"`
}

// Store is a bbolt-backed event log. Events are keyed by an insertion
// sequence so ordering survives clock corrections between wake cycles.
type Store struct {
	bdb *bolt.DB
	now func() uint32
}

// OpenStore opens or creates the event database. now supplies the current
// system timestamp for new records.
func OpenStore(path string, now func() uint32) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}

	err = db.Update(func(txn *bolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists([]byte(bucketEvents))
		if err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", bucketEvents, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare event database: %w", err)
	}

	return &Store{bdb: db, now: now}, nil
}

func (s *Store) Close() error {
	if err := s.bdb.Close(); err != nil {
		return fmt.Errorf("failed to close event database: %w", err)
	}
	return nil
}

// Record implements Recorder. Storage failures are logged and dropped, a
// full or broken flash log must never block the sync path.
func (s *Store) Record(code Code, meta ...int64) {
	evt := Event{Code: code}
	if len(meta) > 0 {
		evt.Meta1 = meta[0]
	}
	if len(meta) > 1 {
		evt.Meta2 = meta[1]
	}
	if s.now != nil {
		evt.Timestamp = s.now()
	}

	err := s.bdb.Update(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(bucketEvents))
		if b == nil {
			return fmt.Errorf("bucket %q does not exist", bucketEvents)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}

		data, err := json.Marshal(&evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("failed to put event: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("event", code.String()).Msg("failed to store telemetry event")
	}

	log.Info().
		Str("event", code.String()).
		Ints64("meta", meta).
		Uint32("timestamp", evt.Timestamp).
		Msg("telemetry event")
}

// List returns up to limit events in insertion order. A limit of 0 returns
// everything.
func (s *Store) List(limit int) ([]Event, error) {
	evts := make([]Event, 0)

	err := s.bdb.View(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(bucketEvents))
		if b == nil {
			return fmt.Errorf("bucket %q does not exist", bucketEvents)
		}

		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var evt Event
			if err := json.Unmarshal(v, &evt); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			evt.Seq = binary.BigEndian.Uint64(k)
			evts = append(evts, evt)
			if limit > 0 && len(evts) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read event database: %w", err)
	}

	return evts, nil
}

// Prune deletes events with sequence numbers up to and including seq. Called
// by the uplink path after a batch is acknowledged.
func (s *Store) Prune(seq uint64) error {
	err := s.bdb.Update(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(bucketEvents))
		if b == nil {
			return fmt.Errorf("bucket %q does not exist", bucketEvents)
		}

		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if binary.BigEndian.Uint64(k) > seq {
				break
			}
			if err := c.Delete(); err != nil {
				return fmt.Errorf("failed to delete event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to prune event database: %w", err)
	}
	return nil
}
