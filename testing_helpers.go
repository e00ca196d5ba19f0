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
	"fmt"
	"sync"
)

// BlockingMockTransport is a MockTransport whose transfers block until
// Release is called. Concurrency tests park a goroutine inside a bus
// transaction with it and verify that cancellation paths neither leak the
// goroutine nor deadlock.
type BlockingMockTransport struct {
	*MockTransport
	gate        chan struct{}
	releaseOnce sync.Once
}

// NewBlockingMockTransport creates a BlockingMockTransport whose gate is
// closed: every Transmit blocks until Release.
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		MockTransport: NewMockTransport(),
		gate:          make(chan struct{}),
	}
}

// Release unblocks all pending and future transfers. Safe to call more
// than once.
func (b *BlockingMockTransport) Release() {
	b.releaseOnce.Do(func() {
		close(b.gate)
	})
}

// Transmit implements Transport, blocking until Release
func (b *BlockingMockTransport) Transmit(tx []byte, rxLen int) ([]byte, error) {
	return b.TransmitWithContext(context.Background(), tx, rxLen)
}

// TransmitWithContext implements Transport, blocking until Release or
// context cancellation.
func (b *BlockingMockTransport) TransmitWithContext(ctx context.Context, tx []byte, rxLen int) ([]byte, error) {
	select {
	case <-b.gate:
	case <-ctx.Done():
		return nil, fmt.Errorf("transmit: %w", ctx.Err())
	}
	return b.MockTransport.TransmitWithContext(ctx, tx, rxLen)
}
