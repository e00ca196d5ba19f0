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

// Package spi implements the Transport interface on a native SPI
// controller through the periph.io host drivers.
package spi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-spinand"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// defaultSpeed keeps well inside every W25N speed grade; the chips
// themselves clock past 100MHz.
const defaultSpeed = 10 * physic.MegaHertz

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost loads the periph.io host drivers once per process
func initHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

// Transport drives the chip through a host SPI controller
type Transport struct {
	port      spi.PortCloser
	conn      spi.Conn
	portName  string
	timeout   time.Duration
	maxTx     int
	mu        sync.Mutex
	connected bool
}

// New opens an SPI port by registry name and connects at the default
// speed in mode 0. An empty name selects the first available port.
func New(portName string) (*Transport, error) {
	return NewWithSpeed(portName, defaultSpeed)
}

// NewWithSpeed opens an SPI port by registry name and connects at the
// given clock speed in mode 0.
func NewWithSpeed(portName string, speed physic.Frequency) (*Transport, error) {
	if err := initHost(); err != nil {
		return nil, spinand.NewTransportError("connect", portName,
			fmt.Errorf("failed to initialize host drivers: %w", err), spinand.ErrorTypePermanent)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, spinand.NewTransportError("connect", portName,
			fmt.Errorf("failed to open spi port: %w", err), spinand.ErrorTypePermanent)
	}

	c, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, spinand.NewTransportError("connect", portName,
			fmt.Errorf("failed to configure spi port: %w", err), spinand.ErrorTypePermanent)
	}

	t := &Transport{
		port:      port,
		conn:      c,
		portName:  portName,
		connected: true,
	}
	if limits, ok := c.(conn.Limits); ok {
		t.maxTx = limits.MaxTxSize()
	}
	return t, nil
}

// Transmit implements Transport
func (t *Transport) Transmit(tx []byte, rxLen int) ([]byte, error) {
	return t.TransmitWithContext(context.Background(), tx, rxLen)
}

// TransmitWithContext implements Transport. The bus is full duplex: the
// frame and the response ride one chip-select cycle, with the response
// bytes clocked immediately after the last frame byte.
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

	total := len(tx) + rxLen
	if t.maxTx > 0 && total > t.maxTx {
		return nil, spinand.NewDataTooLargeError("transmit", t.portName)
	}

	w := make([]byte, total)
	copy(w, tx)
	r := make([]byte, total)
	if err := t.conn.Tx(w, r); err != nil {
		return nil, spinand.NewTransportError("transmit", t.portName,
			fmt.Errorf("spi transfer failed: %w", err), spinand.ErrorTypeTransient)
	}
	return r[len(tx):], nil
}

// Close implements Transport
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false

	if err := t.port.Close(); err != nil {
		return spinand.NewTransportError("close", t.portName, err, spinand.ErrorTypePermanent)
	}
	return nil
}

// SetTimeout implements Transport. The kernel performs SPI transfers
// synchronously without a deadline, so the value is stored for interface
// symmetry only.
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
	return spinand.TransportSPI
}
