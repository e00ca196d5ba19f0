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
	"time"
)

// TransportType identifies the bus a transport drives
type TransportType string

const (
	// TransportSPI is a native SPI controller driven through periph.io
	TransportSPI TransportType = "spi"
	// TransportSerprog is a serprog protocol programmer on a serial port
	TransportSerprog TransportType = "serprog"
	// TransportRPiO is the Raspberry Pi SPI controller via go-rpio
	TransportRPiO TransportType = "rpio"
	// TransportMock is the in-memory transport used in tests
	TransportMock TransportType = "mock"
)

// Transport moves raw command frames between the driver and the flash chip.
// A transport owns exactly one chip-select line: each call is one select
// cycle on the bus.
//
// Implementations handle the physical transfer only. They do not interpret
// opcodes, poll status or retry; that is the device's job.
type Transport interface {
	// Transmit performs one bus transaction: it asserts chip select,
	// clocks out all of tx, clocks rxLen further bytes while the chip
	// drives the data line, and deasserts chip select. It returns exactly
	// rxLen bytes on success. rxLen may be zero for command-only frames.
	//
	// A short or failed transfer must surface as a non-nil error, never as
	// a short byte slice.
	Transmit(tx []byte, rxLen int) ([]byte, error)

	// TransmitWithContext performs one bus transaction with cancellation
	// support. The transaction itself is not interruptible on most buses;
	// the context is checked before the transfer starts.
	TransmitWithContext(ctx context.Context, tx []byte, rxLen int) ([]byte, error)

	// Close releases the underlying bus resources
	Close() error

	// SetTimeout sets the timeout for subsequent transactions
	SetTimeout(timeout time.Duration) error

	// IsConnected returns true if the transport is ready for transactions
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}
