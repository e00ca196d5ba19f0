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

//go:build linux

// Package rpio implements the Transport interface on the Raspberry Pi's
// SPI0 controller through direct register access. It needs no kernel SPI
// driver, only /dev/gpiomem or root.
//
// The controller is process-global, so open at most one Transport at a
// time.
package rpio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-spinand"
	"github.com/stianeikeland/go-rpio/v4"
)

const defaultSpeedHz = 10000000

// Transport drives the chip through the Pi's SPI0 controller
type Transport struct {
	portName  string
	timeout   time.Duration
	mu        sync.Mutex
	connected bool
}

// New claims the SPI0 pins and configures the bus at the default 10MHz.
// chipSelect picks the CE line the chip hangs off (0 or 1).
func New(chipSelect uint8) (*Transport, error) {
	portName := fmt.Sprintf("spi0-ce%d", chipSelect)

	if err := rpio.Open(); err != nil {
		return nil, spinand.NewTransportError("connect", portName,
			fmt.Errorf("failed to map gpio registers: %w", err), spinand.ErrorTypePermanent)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		_ = rpio.Close()
		return nil, spinand.NewTransportError("connect", portName,
			fmt.Errorf("failed to claim spi pins: %w", err), spinand.ErrorTypePermanent)
	}
	rpio.SpiChipSelect(chipSelect)
	rpio.SpiSpeed(defaultSpeedHz)

	return &Transport{
		portName:  portName,
		connected: true,
	}, nil
}

// SetSpeed changes the SPI clock, in hertz
func (t *Transport) SetSpeed(hz int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rpio.SpiSpeed(hz)
}

// Transmit implements Transport
func (t *Transport) Transmit(tx []byte, rxLen int) ([]byte, error) {
	return t.TransmitWithContext(context.Background(), tx, rxLen)
}

// TransmitWithContext implements Transport. The exchange is full duplex
// in one chip-select cycle; response bytes follow the frame bytes.
func (t *Transport) TransmitWithContext(ctx context.Context, tx []byte, rxLen int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil, spinand.NewTransportError("transmit", t.portName,
			spinand.ErrDeviceNotFound, spinand.ErrorTypePermanent)
	}

	buf := make([]byte, len(tx)+rxLen)
	copy(buf, tx)
	rpio.SpiExchange(buf)
	return buf[len(tx):], nil
}

// Close implements Transport, releasing the SPI pins back to inputs
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false

	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		return spinand.NewTransportError("close", t.portName, err, spinand.ErrorTypePermanent)
	}
	return nil
}

// SetTimeout implements Transport. Register-level transfers have no
// deadline, so the value is stored for interface symmetry only.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// IsConnected implements Transport
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Type implements Transport
func (*Transport) Type() spinand.TransportType {
	return spinand.TransportRPiO
}
