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

// Package spinand drives Winbond W25N-series serial NAND flash chips over
// a raw command transport and adapts them to the block-device surface a
// log-structured filesystem mounts on.
//
// The package is organized in three layers:
//
//   - Transport moves opcode frames across a bus. Implementations live in
//     the transport subpackages: native host SPI (transport/spi), flashrom
//     serprog programmers on a serial port (transport/serprog), and the
//     Raspberry Pi SPI controller (transport/rpio). MockTransport serves
//     tests.
//
//   - Device speaks the chip's command set on top of a Transport: block
//     erase, page program, page read, status registers, JEDEC
//     identification and reset. Every busy wait is bounded and every
//     transport fault propagates; nothing fails silently.
//
//   - BlockDevice is the capability interface for filesystem use, with
//     block-addressed Read, Prog, Erase and Sync. *Device implements it,
//     splitting byte ranges across pages so callers can address any span
//     within a block.
//
// Basic usage:
//
//	t, err := spi.New("")          // first available SPI port
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer t.Close()
//
//	dev, err := spinand.New(t)     // W25N01GV geometry by default
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := dev.Init(); err != nil {
//		log.Fatal(err)             // reset, identify, unprotect
//	}
//
//	if err := dev.Erase(4); err != nil {
//		log.Fatal(err)
//	}
//	if err := dev.Prog(4, 0, []byte("hello")); err != nil {
//		log.Fatal(err)
//	}
//
// Flash semantics apply throughout: a program only clears bits, so a range
// must be erased (all 0xFF) before data lands verbatim, and erase works on
// whole blocks only. The driver checks every address against the chip
// geometry and rejects out-of-range requests instead of wrapping them.
//
// Device is not thread-safe. Erase and program are multi-command
// sequences built around the chip's one-shot write-enable latch, so
// concurrent calls corrupt the command stream; callers that share a
// Device across goroutines must serialize access.
package spinand
