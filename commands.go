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

// W25N-series instruction opcodes
const (
	cmdDeviceReset    = 0xFF
	cmdJedecID        = 0x9F
	cmdReadStatus     = 0x0F
	cmdWriteStatus    = 0x1F
	cmdWriteEnable    = 0x06
	cmdWriteDisable   = 0x04
	cmdLoadProgram    = 0x02
	cmdProgramExecute = 0x10
	cmdPageDataRead   = 0x13
	cmdReadData       = 0x03
	cmdBlockErase     = 0xD8
)

// Status register addresses, sent as the second byte of the read/write
// status commands. The chip exposes three 8-bit registers.
const (
	// RegProtection holds the block-protection bits (BP0-BP3, TB) and the
	// SRP/WP-E bits. The chip powers up with all blocks protected.
	RegProtection byte = 0xA0
	// RegConfiguration holds the OTP, ECC-E and BUF mode bits.
	RegConfiguration byte = 0xB0
	// RegStatus holds the live operation state: the busy flag, the
	// write-enable latch and the erase/program failure flags.
	RegStatus byte = 0xC0
)

// Bits of the status register (RegStatus)
const (
	statusBusy      byte = 0x01 // erase/program/page-read in progress
	statusWEL       byte = 0x02 // write-enable latch set
	statusEraseFail byte = 0x04 // last erase did not complete
	statusProgFail  byte = 0x08 // last program did not complete
)

// Bits of the protection register (RegProtection)
const (
	protectionBP byte = 0x7C // TB and BP0-BP3 block-protection range bits
)

// statusReadArg is the register address the driver polls for readiness.
// The busy flag lives in RegStatus (0xC0), bit 0.
const statusReadArg = RegStatus
