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

// Package nandtest provides an in-memory W25N-style chip for driver
// tests. The chip speaks the real command set through the Transport
// interface, so tests exercise the driver's actual wire frames end to end
// without hardware.
package nandtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-spinand"
)

// W25N command set, as seen on the wire
const (
	opReset          = 0xFF
	opJedecID        = 0x9F
	opReadStatus     = 0x0F
	opWriteStatus    = 0x1F
	opWriteEnable    = 0x06
	opWriteDisable   = 0x04
	opLoadProgram    = 0x02
	opProgramExecute = 0x10
	opPageDataRead   = 0x13
	opReadData       = 0x03
	opBlockErase     = 0xD8
)

const (
	regProtection    = 0xA0
	regConfiguration = 0xB0
	regStatus        = 0xC0

	statusBusy      = 0x01
	statusWEL       = 0x02
	statusEraseFail = 0x04
	statusProgFail  = 0x08

	// protectAll is the power-on protection value: all blocks protected
	protectAll = 0x7C
)

// Chip emulates a W25N-series serial NAND chip behind the Transport
// interface. Pages are stored sparsely, so even the full 1Gbit geometry
// costs only what a test touches; untouched pages read as erased (0xFF).
//
// The emulation keeps the chip's awkward properties: programs AND bits
// into the page rather than storing them, the write-enable latch is
// one-shot, array operations on a protected range set the failure flags
// instead of erroring, and the chip reports busy for a configurable
// number of status polls after every array operation.
//
// Protocol violations (erase or program without write enable, malformed
// frames, unknown opcodes) do not fail the transfer, because the real
// chip ignores them silently. They are recorded instead; tests assert
// that Violations comes back empty.
type Chip struct {
	pages      map[uint32][]byte
	failures   map[byte]*scriptedFailure
	violations []string
	register   []byte
	id         spinand.JEDECID
	geo        spinand.Geometry
	timeout    time.Duration
	mu         sync.Mutex
	busyPolls  int
	busyLeft   int
	protection byte
	config     byte
	failFlags  byte
	wel        bool
	closed     bool
}

type scriptedFailure struct {
	err       error
	remaining int
}

// New creates an erased, write-protected chip with the given geometry and
// the W25N01GV JEDEC ID.
func New(geo spinand.Geometry) *Chip {
	c := &Chip{
		pages:      make(map[uint32][]byte),
		failures:   make(map[byte]*scriptedFailure),
		register:   make([]byte, geo.PageSize),
		id:         spinand.JEDECID{0xEF, 0xAA, 0x21},
		geo:        geo,
		busyPolls:  1,
		protection: protectAll,
	}
	fillErased(c.register)
	return c
}

// SetJEDECID overrides the identification bytes the chip reports
func (c *Chip) SetJEDECID(id spinand.JEDECID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// SetBusyPolls sets how many status polls report busy after each array
// operation. Zero makes the chip ready immediately.
func (c *Chip) SetBusyPolls(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyPolls = n
}

// FailAfter schedules the n-th following frame with the given opcode to
// fail with err instead of executing. n = 1 fails the next such frame.
func (c *Chip) FailAfter(opcode byte, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[opcode] = &scriptedFailure{remaining: n, err: err}
}

// Violations returns the protocol violations observed so far
func (c *Chip) Violations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.violations...)
}

// Transmit implements Transport
func (c *Chip) Transmit(tx []byte, rxLen int) ([]byte, error) {
	return c.TransmitWithContext(context.Background(), tx, rxLen)
}

// TransmitWithContext implements Transport
func (c *Chip) TransmitWithContext(ctx context.Context, tx []byte, rxLen int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, spinand.NewTransportError("transmit", "nandtest", spinand.ErrDeviceNotFound, spinand.ErrorTypePermanent)
	}
	if len(tx) == 0 {
		return nil, spinand.NewTransportError("transmit", "nandtest", spinand.ErrInvalidParameter, spinand.ErrorTypePermanent)
	}

	if f := c.failures[tx[0]]; f != nil {
		f.remaining--
		if f.remaining <= 0 {
			delete(c.failures, tx[0])
			return nil, f.err
		}
	}

	resp := c.exec(tx)
	out := make([]byte, rxLen)
	copy(out, resp)
	return out, nil
}

// Close implements Transport
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// SetTimeout implements Transport
func (c *Chip) SetTimeout(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
	return nil
}

// IsConnected implements Transport
func (c *Chip) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Type implements Transport
func (*Chip) Type() spinand.TransportType {
	return spinand.TransportMock
}

// exec runs one decoded frame against the chip state and returns the
// response payload, which Transmit pads or truncates to the caller's
// rxLen.
func (c *Chip) exec(tx []byte) []byte {
	switch op := tx[0]; op {
	case opWriteEnable:
		c.wel = true

	case opWriteDisable:
		c.wel = false

	case opReset:
		c.wel = false
		c.failFlags = 0
		c.protection = protectAll
		fillErased(c.register)
		c.busyLeft = c.busyPolls

	case opJedecID:
		if len(tx) != 2 {
			c.violate("jedec id frame of %d bytes, want opcode plus one dummy", len(tx))
		}
		return c.id[:]

	case opReadStatus:
		if len(tx) != 2 {
			c.violate("read status frame of %d bytes", len(tx))
			return nil
		}
		return []byte{c.readRegister(tx[1])}

	case opWriteStatus:
		if len(tx) != 3 {
			c.violate("write status frame of %d bytes", len(tx))
			return nil
		}
		c.writeRegister(tx[1], tx[2])

	case opLoadProgram:
		if len(tx) < 4 {
			c.violate("load program frame of %d bytes", len(tx))
			return nil
		}
		c.loadProgram(uint32(tx[1])<<8|uint32(tx[2]), tx[4:])

	case opProgramExecute:
		if len(tx) != 4 {
			c.violate("program execute frame of %d bytes", len(tx))
			return nil
		}
		c.programExecute(rowAddress(tx))

	case opPageDataRead:
		if len(tx) != 4 {
			c.violate("page data read frame of %d bytes", len(tx))
			return nil
		}
		c.pageDataRead(rowAddress(tx))

	case opReadData:
		if len(tx) != 4 {
			c.violate("read data frame of %d bytes", len(tx))
			return nil
		}
		column := uint32(tx[1])<<8 | uint32(tx[2])
		if column >= c.geo.PageSize {
			c.violate("read data column %d beyond page", column)
			return nil
		}
		return c.register[column:]

	case opBlockErase:
		if len(tx) != 4 {
			c.violate("block erase frame of %d bytes", len(tx))
			return nil
		}
		c.blockErase(rowAddress(tx))

	default:
		c.violate("unknown opcode %#02x", op)
	}
	return nil
}

func (c *Chip) readRegister(reg byte) byte {
	switch reg {
	case regProtection:
		return c.protection
	case regConfiguration:
		return c.config
	case regStatus:
		b := c.failFlags
		if c.busyLeft > 0 {
			c.busyLeft--
			b |= statusBusy
		}
		if c.wel {
			b |= statusWEL
		}
		return b
	default:
		c.violate("read of unknown register %#02x", reg)
		return 0
	}
}

func (c *Chip) writeRegister(reg, value byte) {
	switch reg {
	case regProtection:
		c.protection = value
	case regConfiguration:
		c.config = value
	default:
		c.violate("write of %#02x to read-only register %#02x", value, reg)
	}
}

// loadProgram resets the data register to erased and lands the payload at
// the column, as the chip's plain (non-random) load does.
func (c *Chip) loadProgram(column uint32, payload []byte) {
	fillErased(c.register)
	if column >= c.geo.PageSize {
		c.violate("load program column %d beyond page", column)
		return
	}
	copy(c.register[column:], payload)
}

func (c *Chip) programExecute(page uint32) {
	if !c.wel {
		c.violate("program execute without write enable")
		return
	}
	c.wel = false
	c.busyLeft = c.busyPolls

	if page >= c.geo.Pages() {
		c.violate("program execute to page %d beyond device", page)
		return
	}
	if c.protection&protectAll != 0 {
		c.failFlags |= statusProgFail
		return
	}
	c.failFlags &^= statusProgFail

	content := c.pages[page]
	if content == nil {
		content = make([]byte, c.geo.PageSize)
		fillErased(content)
		c.pages[page] = content
	}
	for i := range content {
		content[i] &= c.register[i]
	}
}

func (c *Chip) pageDataRead(page uint32) {
	c.busyLeft = c.busyPolls
	if page >= c.geo.Pages() {
		c.violate("page data read of page %d beyond device", page)
		fillErased(c.register)
		return
	}
	if content := c.pages[page]; content != nil {
		copy(c.register, content)
	} else {
		fillErased(c.register)
	}
}

func (c *Chip) blockErase(row uint32) {
	if !c.wel {
		c.violate("block erase without write enable")
		return
	}
	c.wel = false
	c.busyLeft = c.busyPolls

	block := row / c.geo.PagesPerBlock
	if block >= c.geo.BlockCount {
		c.violate("erase of block %d beyond device", block)
		return
	}
	if c.protection&protectAll != 0 {
		c.failFlags |= statusEraseFail
		return
	}
	c.failFlags &^= statusEraseFail

	first := block * c.geo.PagesPerBlock
	for page := first; page < first+c.geo.PagesPerBlock; page++ {
		delete(c.pages, page)
	}
}

func (c *Chip) violate(format string, args ...any) {
	c.violations = append(c.violations, fmt.Sprintf(format, args...))
}

func rowAddress(tx []byte) uint32 {
	return uint32(tx[1])<<16 | uint32(tx[2])<<8 | uint32(tx[3])
}

func fillErased(p []byte) {
	for i := range p {
		p[i] = 0xFF
	}
}
