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
)

// writeEnable sets the chip's write-enable latch. The latch is one-shot:
// the chip drops it when the next erase or program completes, so every
// destructive command sends it fresh, immediately beforehand.
func (d *Device) writeEnable(ctx context.Context) error {
	if _, err := d.transport.TransmitWithContext(ctx, []byte{cmdWriteEnable}, 0); err != nil {
		return fmt.Errorf("failed to set write enable: %w", err)
	}
	return nil
}

// EraseBlock erases one block, returning it to the all-0xFF state
func (d *Device) EraseBlock(block uint32) error {
	return d.EraseBlockContext(context.Background(), block)
}

// EraseBlockContext erases one block: write enable, block erase with the
// row address of the block's first page, then a bounded wait for the chip
// to finish. Out-of-range blocks fail with a GeometryError before any bus
// traffic.
func (d *Device) EraseBlockContext(ctx context.Context, block uint32) error {
	if block >= d.config.BlockCount {
		return newGeometryError("erase block", "block", int64(block), int64(d.config.BlockCount))
	}

	if err := d.writeEnable(ctx); err != nil {
		return err
	}

	row := block * d.config.PagesPerBlock
	cmd := []byte{cmdBlockErase, byte(row >> 16), byte(row >> 8), byte(row)}
	if _, err := d.transport.TransmitWithContext(ctx, cmd, 0); err != nil {
		return fmt.Errorf("failed to issue block erase: %w", err)
	}

	status, err := d.waitStatus(ctx)
	if err != nil {
		return fmt.Errorf("block erase did not complete: %w", err)
	}
	if status&statusEraseFail != 0 {
		return fmt.Errorf("block %d: %w", block, ErrEraseFailed)
	}

	d.clearProgrammed(block)
	return nil
}

// ProgramPage programs data into one page at the given column. Programming
// only clears bits; the page must have been erased for the data to land
// verbatim.
func (d *Device) ProgramPage(page, column uint32, data []byte) error {
	return d.ProgramPageContext(context.Background(), page, column, data)
}

// ProgramPageContext programs data into one page: load the chip's data
// register at the column, write enable, program execute with the page row
// address, then a bounded wait. The write enable goes out immediately
// before the program execute, with only the register load in between them
// and nothing between 0x06 and 0x10.
func (d *Device) ProgramPageContext(ctx context.Context, page, column uint32, data []byte) error {
	if page >= d.config.Pages() {
		return newGeometryError("program page", "page", int64(page), int64(d.config.Pages()))
	}
	if column >= d.config.PageSize {
		return newGeometryError("program page", "column", int64(column), int64(d.config.PageSize))
	}
	if uint64(len(data)) > uint64(d.config.PageSize-column) {
		return newGeometryError("program page", "length", int64(len(data)), int64(d.config.PageSize-column)+1)
	}
	if err := d.checkProgrammed(page); err != nil {
		return err
	}

	cmd := make([]byte, 0, 4+len(data))
	cmd = append(cmd, cmdLoadProgram, byte(column>>8), byte(column), 0x00)
	cmd = append(cmd, data...)
	if _, err := d.transport.TransmitWithContext(ctx, cmd, 0); err != nil {
		return fmt.Errorf("failed to load program data: %w", err)
	}

	if err := d.writeEnable(ctx); err != nil {
		return err
	}

	exec := []byte{cmdProgramExecute, byte(page >> 16), byte(page >> 8), byte(page)}
	if _, err := d.transport.TransmitWithContext(ctx, exec, 0); err != nil {
		return fmt.Errorf("failed to execute program: %w", err)
	}

	status, err := d.waitStatus(ctx)
	if err != nil {
		return fmt.Errorf("page program did not complete: %w", err)
	}
	if status&statusProgFail != 0 {
		return fmt.Errorf("page %d: %w", page, ErrProgramFailed)
	}

	d.markProgrammed(page)
	return nil
}

// ReadPage loads one page from the array into the chip's data register.
// Follow with ReadData to stream bytes out of the register.
func (d *Device) ReadPage(page uint32) error {
	return d.ReadPageContext(context.Background(), page)
}

// ReadPageContext loads one page from the array into the chip's data
// register and waits for the transfer to finish.
func (d *Device) ReadPageContext(ctx context.Context, page uint32) error {
	if page >= d.config.Pages() {
		return newGeometryError("read page", "page", int64(page), int64(d.config.Pages()))
	}

	cmd := []byte{cmdPageDataRead, byte(page >> 16), byte(page >> 8), byte(page)}
	if _, err := d.transport.TransmitWithContext(ctx, cmd, 0); err != nil {
		return fmt.Errorf("failed to load page into data register: %w", err)
	}

	if err := d.WaitReadyContext(ctx); err != nil {
		return fmt.Errorf("page read did not complete: %w", err)
	}
	return nil
}

// ReadData fills p from the chip's data register starting at the given
// column. The register holds whatever page the last ReadPage loaded.
func (d *Device) ReadData(column uint32, p []byte) error {
	return d.ReadDataContext(context.Background(), column, p)
}

// ReadDataContext fills p from the chip's data register starting at the
// given column.
func (d *Device) ReadDataContext(ctx context.Context, column uint32, p []byte) error {
	if column >= d.config.PageSize {
		return newGeometryError("read data", "column", int64(column), int64(d.config.PageSize))
	}
	if uint64(len(p)) > uint64(d.config.PageSize-column) {
		return newGeometryError("read data", "length", int64(len(p)), int64(d.config.PageSize-column)+1)
	}
	if len(p) == 0 {
		return nil
	}

	cmd := []byte{cmdReadData, byte(column >> 8), byte(column), 0x00}
	resp, err := d.transport.TransmitWithContext(ctx, cmd, len(p))
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	copy(p, resp)
	return nil
}

// checkProgrammed rejects a second program to a page since its last erase
// when program tracking is enabled.
func (d *Device) checkProgrammed(page uint32) error {
	if !d.trackProgram {
		return nil
	}
	if d.programmed[page/64]&(1<<(page%64)) != 0 {
		return fmt.Errorf("page %d: %w", page, ErrPageProgrammed)
	}
	return nil
}

func (d *Device) markProgrammed(page uint32) {
	if !d.trackProgram {
		return
	}
	d.programmed[page/64] |= 1 << (page % 64)
}

// clearProgrammed forgets the program marks for every page in block
func (d *Device) clearProgrammed(block uint32) {
	if !d.trackProgram {
		return
	}
	first := block * d.config.PagesPerBlock
	for page := first; page < first+d.config.PagesPerBlock; page++ {
		d.programmed[page/64] &^= 1 << (page % 64)
	}
}
