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

import "fmt"

// Geometry describes the addressable layout of a serial NAND chip. All
// driver-level range checks derive from it; nothing in the driver assumes a
// particular part beyond what Geometry states.
type Geometry struct {
	// PageSize is the number of data bytes per page
	PageSize uint32
	// PagesPerBlock is the number of pages in one erase block
	PagesPerBlock uint32
	// BlockCount is the number of erase blocks on the chip
	BlockCount uint32
}

// BlockSize returns the number of bytes in one erase block
func (g Geometry) BlockSize() uint32 {
	return g.PageSize * g.PagesPerBlock
}

// Pages returns the total number of pages on the chip
func (g Geometry) Pages() uint32 {
	return g.PagesPerBlock * g.BlockCount
}

// Capacity returns the total number of data bytes on the chip
func (g Geometry) Capacity() int64 {
	return int64(g.BlockSize()) * int64(g.BlockCount)
}

// Validate checks that the geometry is internally consistent and
// representable in the chip's address encoding: page rows travel as 3 bytes
// and columns as 2 bytes on the wire.
func (g Geometry) Validate() error {
	if g.PageSize == 0 || g.PagesPerBlock == 0 || g.BlockCount == 0 {
		return fmt.Errorf("%w: geometry fields must be non-zero", ErrInvalidParameter)
	}
	if g.PageSize > 1<<16 {
		return fmt.Errorf("%w: page size %d exceeds 16-bit column addressing", ErrInvalidParameter, g.PageSize)
	}
	if uint64(g.PagesPerBlock)*uint64(g.BlockCount) > 1<<24 {
		return fmt.Errorf("%w: %d pages exceed 24-bit row addressing", ErrInvalidParameter, uint64(g.PagesPerBlock)*uint64(g.BlockCount))
	}
	return nil
}

// PhysicalAddress locates a byte on the chip: the page row the bus
// addresses, plus the byte column within that page's data register.
type PhysicalAddress struct {
	Page   uint32
	Column uint32
}

// Translate maps a block index and a byte offset within that block to the
// physical page row and column. The mapping is total and loss-less for
// block < BlockCount and offset < BlockSize; callers range-check against
// the geometry before translating.
func (g Geometry) Translate(block, offset uint32) PhysicalAddress {
	return PhysicalAddress{
		Page:   block*g.PagesPerBlock + offset/g.PageSize,
		Column: offset % g.PageSize,
	}
}

// Config carries the geometry together with the tuning values the
// filesystem layer mounts with. The driver itself consumes only the
// Geometry; the remaining fields pass through to the filesystem untouched.
type Config struct {
	Geometry

	// BlockCycles is the filesystem's erase-cycle count before it moves
	// metadata to a fresh block
	BlockCycles int32
	// CacheSize is the filesystem's per-file cache size in bytes
	CacheSize uint32
	// LookaheadSize is the filesystem's block-allocation lookahead in bytes
	LookaheadSize uint32
	// NameMax is the longest file name the filesystem accepts
	NameMax uint32
}

// DefaultConfig returns the configuration of the reference deployment: a
// W25N01GV-class chip (2048-byte pages, 64 pages per block, 1024 blocks)
// with the mount tuning used on that hardware.
func DefaultConfig() Config {
	return Config{
		Geometry: Geometry{
			PageSize:      2048,
			PagesPerBlock: 64,
			BlockCount:    1024,
		},
		BlockCycles:   1,
		CacheSize:     2048,
		LookaheadSize: 128,
		NameMax:       255,
	}
}
