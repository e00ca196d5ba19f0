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

// Package serprog implements the Transport interface on flashrom serprog
// programmers attached over a serial port. Any microcontroller flashed
// with a serprog firmware (frser-duino, pico-serprog, stm32-vserprog and
// friends) turns into a NAND bridge this way.
package serprog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/go-spinand"
	"go.bug.st/serial"
)

// serprog protocol bytes
const (
	respACK = 0x06
	respNAK = 0x15

	cmdNop      = 0x00
	cmdQIface   = 0x01
	cmdQCmdMap  = 0x02
	cmdQPgmName = 0x03
	cmdSyncNop  = 0x10
	cmdSBusType = 0x12
	cmdOSpiOp   = 0x13

	busSPI = 0x08

	// ifaceVersion is the only protocol version ever published
	ifaceVersion = 1

	// maxOpLen is the largest transfer length encodable in the SPI
	// operation's 24-bit length fields.
	maxOpLen = 1<<24 - 1

	syncAttempts = 8
)

const (
	defaultBaudRate = 115200
	defaultTimeout  = 1 * time.Second
)

// Transport drives the chip through a serprog programmer
type Transport struct {
	port      serial.Port
	portName  string
	name      string
	timeout   time.Duration
	mu        sync.Mutex
	connected bool
}

// Option configures the transport before the port opens
type Option func(*settings)

type settings struct {
	baudRate int
	timeout  time.Duration
}

// WithBaudRate sets the serial baud rate. USB-CDC programmers ignore it;
// programmers on a real UART need it matching their firmware.
func WithBaudRate(rate int) Option {
	return func(s *settings) { s.baudRate = rate }
}

// WithTimeout sets the serial read timeout applied to the handshake and
// to command responses.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) { s.timeout = timeout }
}

// New opens the serial port and brings the programmer up: protocol sync,
// interface version check, command map check, then SPI bus selection.
func New(portName string, opts ...Option) (*Transport, error) {
	s := settings{baudRate: defaultBaudRate, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	mode := &serial.Mode{BaudRate: s.baudRate}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, spinand.NewTransportError("connect", portName,
			fmt.Errorf("failed to open serial port: %w", err), spinand.ErrorTypePermanent)
	}

	t := &Transport{
		port:      port,
		portName:  portName,
		timeout:   s.timeout,
		connected: true,
	}
	if err := port.SetReadTimeout(t.timeout); err != nil {
		_ = port.Close()
		return nil, spinand.NewTransportError("connect", portName,
			fmt.Errorf("failed to set read timeout: %w", err), spinand.ErrorTypePermanent)
	}

	if err := t.handshake(); err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// handshake syncs with the programmer and verifies it can run SPI
// operations, the way flashrom brings a serprog device up.
func (t *Transport) handshake() error {
	if err := t.port.ResetInputBuffer(); err != nil {
		return spinand.NewTransportError("connect", t.portName,
			fmt.Errorf("failed to flush port: %w", err), spinand.ErrorTypePermanent)
	}

	if err := t.syncNop(); err != nil {
		return err
	}

	iface, err := t.command("connect", []byte{cmdQIface}, 2)
	if err != nil {
		return err
	}
	if version := uint16(iface[0]) | uint16(iface[1])<<8; version != ifaceVersion {
		return spinand.NewTransportError("connect", t.portName,
			fmt.Errorf("unsupported serprog interface version %d", version), spinand.ErrorTypePermanent)
	}

	cmdmap, err := t.command("connect", []byte{cmdQCmdMap}, 32)
	if err != nil {
		return err
	}
	if !cmdmapHas(cmdmap, cmdOSpiOp) {
		return spinand.NewTransportError("connect", t.portName,
			errors.New("programmer does not support SPI operations"), spinand.ErrorTypePermanent)
	}

	if cmdmapHas(cmdmap, cmdSBusType) {
		if _, err := t.command("connect", []byte{cmdSBusType, busSPI}, 0); err != nil {
			return err
		}
	}

	if cmdmapHas(cmdmap, cmdQPgmName) {
		name, err := t.command("connect", []byte{cmdQPgmName}, 16)
		if err != nil {
			return err
		}
		t.name = strings.TrimRight(string(name), "\x00 ")
	}
	return nil
}

// syncNop resynchronizes the command stream. SYNCNOP is the one command
// answered NAK-then-ACK, so finding that pair proves both sides agree on
// where commands start.
func (t *Transport) syncNop() error {
	lastErr := errors.New("no response from programmer")
	for attempt := 0; attempt < syncAttempts; attempt++ {
		if _, err := t.port.Write([]byte{cmdSyncNop}); err != nil {
			lastErr = fmt.Errorf("failed to write sync: %w", err)
			continue
		}

		buf := make([]byte, 2)
		if err := t.readFull(buf); err != nil {
			lastErr = err
			_ = t.port.ResetInputBuffer()
			continue
		}
		if buf[0] == respNAK && buf[1] == respACK {
			return nil
		}
		lastErr = fmt.Errorf("unexpected sync response % x", buf)
		_ = t.port.ResetInputBuffer()
	}
	return spinand.NewTransportError("connect", t.portName,
		fmt.Errorf("failed to sync with programmer: %w", lastErr), spinand.ErrorTypePermanent)
}

// ProgrammerName returns the name the programmer reported during the
// handshake, if it supports the query.
func (t *Transport) ProgrammerName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// Transmit implements Transport
func (t *Transport) Transmit(tx []byte, rxLen int) ([]byte, error) {
	return t.TransmitWithContext(context.Background(), tx, rxLen)
}

// TransmitWithContext implements Transport. The frame maps to one serprog
// SPI operation: the programmer holds chip select for the whole
// write-then-read exchange.
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
	if len(tx) > maxOpLen || rxLen > maxOpLen {
		return nil, spinand.NewDataTooLargeError("transmit", t.portName)
	}

	return t.command("transmit", spiOpFrame(tx, rxLen), rxLen)
}

// spiOpFrame encodes one SPI operation: the opcode, the 24-bit
// little-endian write and read lengths, then the write bytes.
func spiOpFrame(tx []byte, rxLen int) []byte {
	frame := make([]byte, 0, 7+len(tx))
	frame = append(frame, cmdOSpiOp,
		byte(len(tx)), byte(len(tx)>>8), byte(len(tx)>>16),
		byte(rxLen), byte(rxLen>>8), byte(rxLen>>16))
	return append(frame, tx...)
}

// command sends one serprog command and reads the ACK plus respLen
// response bytes. Callers hold the mutex.
func (t *Transport) command(op string, cmd []byte, respLen int) ([]byte, error) {
	if _, err := t.port.Write(cmd); err != nil {
		return nil, spinand.NewTransportError(op, t.portName,
			fmt.Errorf("serial write failed: %w", err), spinand.ErrorTypeTransient)
	}

	status := make([]byte, 1)
	if err := t.readFull(status); err != nil {
		return nil, t.wrapReadErr(op, err)
	}
	switch status[0] {
	case respACK:
	case respNAK:
		return nil, spinand.NewTransportError(op, t.portName,
			errors.New("programmer rejected command"), spinand.ErrorTypePermanent)
	default:
		return nil, spinand.NewTransportError(op, t.portName,
			fmt.Errorf("%w: unexpected status byte %#02x", spinand.ErrCommunicationFailed, status[0]),
			spinand.ErrorTypeTransient)
	}

	if respLen == 0 {
		return nil, nil
	}
	resp := make([]byte, respLen)
	if err := t.readFull(resp); err != nil {
		return nil, t.wrapReadErr(op, err)
	}
	return resp, nil
}

// readFull fills p from the port. The serial library signals a read
// timeout as a zero-length read, which surfaces here as
// ErrTransportTimeout.
func (t *Transport) readFull(p []byte) error {
	for off := 0; off < len(p); {
		n, err := t.port.Read(p[off:])
		if err != nil {
			return fmt.Errorf("serial read failed: %w", err)
		}
		if n == 0 {
			return spinand.ErrTransportTimeout
		}
		off += n
	}
	return nil
}

func (t *Transport) wrapReadErr(op string, err error) error {
	if errors.Is(err, spinand.ErrTransportTimeout) {
		return spinand.NewTimeoutError(op, t.portName)
	}
	return spinand.NewTransportError(op, t.portName, err, spinand.ErrorTypeTransient)
}

func cmdmapHas(cmdmap []byte, cmd byte) bool {
	return cmdmap[cmd/8]&(1<<(cmd%8)) != 0
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

// SetTimeout implements Transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.port.SetReadTimeout(timeout); err != nil {
		return spinand.NewTransportError("set timeout", t.portName, err, spinand.ErrorTypePermanent)
	}
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
	return spinand.TransportSerprog
}
