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

import "context"

// BlockDevice is the storage surface a log-structured filesystem mounts
// on: block-addressed reads and programs, whole-block erase, and sync.
// *Device implements it.
//
// The contract follows flash semantics, not disk semantics: Prog only
// succeeds meaningfully on erased ranges, and Erase is the only way to set
// bits back to 1.
type BlockDevice interface {
	// Read fills p with the data off bytes into block
	Read(block, off uint32, p []byte) error
	// Prog programs p starting off bytes into block
	Prog(block, off uint32, p []byte) error
	// Erase resets one block to the erased (all 0xFF) state
	Erase(block uint32) error
	// Sync flushes buffered state, if any, to the chip
	Sync() error
}

var _ BlockDevice = (*Device)(nil)

// Read fills p with the data off bytes into block. The range may straddle
// page boundaries; any off+len(p) <= BlockSize is served.
//
// On a transport or status fault p is zeroed before the error returns, so
// the caller never sees a partly filled buffer. Out-of-range requests fail
// with a GeometryError before any bus traffic and leave p untouched.
func (d *Device) Read(block, off uint32, p []byte) error {
	return d.ReadContext(context.Background(), block, off, p)
}

// ReadContext fills p with the data off bytes into block
func (d *Device) ReadContext(ctx context.Context, block, off uint32, p []byte) error {
	if err := d.checkSpan("read", block, off, len(p)); err != nil {
		return err
	}

	remaining := p
	offset := off
	for len(remaining) > 0 {
		addr := d.config.Translate(block, offset)
		n := d.config.PageSize - addr.Column
		if uint32(len(remaining)) < n {
			n = uint32(len(remaining))
		}

		if err := d.ReadPageContext(ctx, addr.Page); err != nil {
			clear(p)
			return err
		}
		if err := d.ReadDataContext(ctx, addr.Column, remaining[:n]); err != nil {
			clear(p)
			return err
		}

		remaining = remaining[n:]
		offset += n
	}
	return nil
}

// Prog programs p starting off bytes into block, splitting the range into
// per-page program operations. The target range must have been erased;
// programming only clears bits.
//
// The first failing page program stops the loop and its error returns
// unchanged. Pages already programmed stay programmed; flash offers no
// rollback.
func (d *Device) Prog(block, off uint32, p []byte) error {
	return d.ProgContext(context.Background(), block, off, p)
}

// ProgContext programs p starting off bytes into block
func (d *Device) ProgContext(ctx context.Context, block, off uint32, p []byte) error {
	if err := d.checkSpan("prog", block, off, len(p)); err != nil {
		return err
	}

	remaining := p
	offset := off
	for len(remaining) > 0 {
		addr := d.config.Translate(block, offset)
		n := d.config.PageSize - addr.Column
		if uint32(len(remaining)) < n {
			n = uint32(len(remaining))
		}

		if err := d.ProgramPageContext(ctx, addr.Page, addr.Column, remaining[:n]); err != nil {
			return err
		}

		remaining = remaining[n:]
		offset += n
	}
	return nil
}

// Erase resets one block to the erased state. It implements BlockDevice by
// delegating to EraseBlock.
func (d *Device) Erase(block uint32) error {
	return d.EraseBlockContext(context.Background(), block)
}

// Sync implements BlockDevice. Every program and erase completes on the
// chip before its method returns, so there is no buffered state to flush.
func (*Device) Sync() error {
	return nil
}

// checkSpan validates a block-relative byte range against the geometry
func (d *Device) checkSpan(op string, block, off uint32, length int) error {
	if block >= d.config.BlockCount {
		return newGeometryError(op, "block", int64(block), int64(d.config.BlockCount))
	}
	blockSize := d.config.BlockSize()
	if off >= blockSize {
		return newGeometryError(op, "offset", int64(off), int64(blockSize))
	}
	if uint64(length) > uint64(blockSize-off) {
		return newGeometryError(op, "length", int64(length), int64(blockSize-off)+1)
	}
	return nil
}
