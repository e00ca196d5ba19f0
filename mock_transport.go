// go-spinand
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-spinand.
//
// go-spinand is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-spinand is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-spinand; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package spinand

import (
	"context"
	"sync"
	"time"
)

// MockTransport is a scripted Transport for tests. Responses and errors
// are keyed on a frame's opcode (its first byte), and every transmitted
// frame is recorded so tests can assert exact wire bytes and command
// order.
//
// Unlike Device, MockTransport is safe for concurrent use.
type MockTransport struct {
	responses map[byte][]byte
	queues    map[byte][][]byte
	errors    map[byte]error
	calls     map[byte]int
	frames    [][]byte
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewMockTransport creates a MockTransport with no scripted responses.
// Unscripted frames succeed and return rxLen zero bytes, which reads as a
// ready, unprotected chip on status polls.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[byte][]byte),
		queues:    make(map[byte][][]byte),
		errors:    make(map[byte]error),
		calls:     make(map[byte]int),
	}
}

// SetResponse sets the sticky response for frames starting with opcode.
// The response is truncated or zero-padded to each request's rxLen.
func (m *MockTransport) SetResponse(opcode byte, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[opcode] = append([]byte(nil), resp...)
}

// QueueResponse appends a one-shot response for frames starting with
// opcode. Queued responses are consumed in order before the sticky
// response applies; status polls script busy-then-ready this way.
func (m *MockTransport) QueueResponse(opcode byte, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[opcode] = append(m.queues[opcode], append([]byte(nil), resp...))
}

// SetError makes frames starting with opcode fail with err
func (m *MockTransport) SetError(opcode byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[opcode] = err
}

// GetCallCount returns how many frames starting with opcode were
// transmitted.
func (m *MockTransport) GetCallCount(opcode byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[opcode]
}

// Frames returns copies of all transmitted frames in transmission order
func (m *MockTransport) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	for i, f := range m.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Reset clears recorded frames and call counts, keeping scripted
// responses and errors.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
	m.calls = make(map[byte]int)
}

// Transmit implements Transport
func (m *MockTransport) Transmit(tx []byte, rxLen int) ([]byte, error) {
	return m.TransmitWithContext(context.Background(), tx, rxLen)
}

// TransmitWithContext implements Transport
func (m *MockTransport) TransmitWithContext(ctx context.Context, tx []byte, rxLen int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, NewTransportError("transmit", "mock", ErrDeviceNotFound, ErrorTypePermanent)
	}
	if len(tx) == 0 {
		return nil, NewTransportError("transmit", "mock", ErrInvalidParameter, ErrorTypePermanent)
	}

	opcode := tx[0]
	m.calls[opcode]++
	m.frames = append(m.frames, append([]byte(nil), tx...))

	if err := m.errors[opcode]; err != nil {
		return nil, err
	}

	var resp []byte
	if q := m.queues[opcode]; len(q) > 0 {
		resp = q[0]
		m.queues[opcode] = q[1:]
	} else {
		resp = m.responses[opcode]
	}

	out := make([]byte, rxLen)
	copy(out, resp)
	return out, nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetTimeout implements Transport
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type implements Transport
func (m *MockTransport) Type() TransportType {
	return TransportMock
}
