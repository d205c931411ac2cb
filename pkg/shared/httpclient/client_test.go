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

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("1700000000"))
	}))
	defer srv.Close()

	body, err := NewClient().GetString(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", body)
}

func TestGetString_OverlongBodyRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("17000000001"))
	}))
	defer srv.Close()

	_, err := NewClient().GetString(context.Background(), srv.URL, 10)
	assert.ErrorContains(t, err, "exceeds 10 bytes")
}

func TestGetString_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient().GetString(context.Background(), srv.URL, 10)
	assert.ErrorContains(t, err, "invalid status code")
}

func TestGetString_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient().GetString(context.Background(), "::not-a-url", 10)
	assert.Error(t, err)
}
