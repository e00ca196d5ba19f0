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

package spinand_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	spinand "github.com/ZaparooProject/go-spinand"
	"github.com/ZaparooProject/go-spinand/internal/nandtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChipDevice builds an initialized device on a fresh emulated chip with
// the reference W25N01GV layout.
func newChipDevice(t *testing.T, opts ...spinand.Option) (*nandtest.Chip, *spinand.Device) {
	t.Helper()

	chip := nandtest.New(spinand.DefaultConfig().Geometry)
	opts = append(opts, spinand.WithPollInterval(50*time.Microsecond))
	device, err := spinand.New(chip, opts...)
	require.NoError(t, err)
	require.NoError(t, device.Init())
	return chip, device
}

func requireNoViolations(t *testing.T, chip *nandtest.Chip) {
	t.Helper()
	assert.Empty(t, chip.Violations(), "driver violated the chip's command protocol")
}

func TestDevice_InitAgainstChip(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	// Init must have cleared the power-on block protection.
	reg, err := device.ReadStatus(spinand.RegProtection)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), reg&0x7C)

	info, err := device.Identify()
	require.NoError(t, err)
	assert.Equal(t, "W25N01GV", info.Name)

	requireNoViolations(t, chip)
}

func TestBlockDevice_RoundTrip(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	data := []byte("hello from the other side of the block device interface")
	require.NoError(t, device.Erase(3))
	require.NoError(t, device.Prog(3, 0, data))

	// Read back the data plus a tail that was never programmed; the tail
	// must still read as erased.
	buf := make([]byte, len(data)+16)
	require.NoError(t, device.Read(3, 0, buf))
	assert.Equal(t, data, buf[:len(data)])
	for i := len(data); i < len(buf); i++ {
		require.Equal(t, byte(0xFF), buf[i], "byte %d past the programmed range", i)
	}

	requireNoViolations(t, chip)
}

func TestBlockDevice_SmallProgThenPartialReads(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	require.NoError(t, device.Erase(0))
	require.NoError(t, device.Prog(0, 0, []byte("hello")))

	head := make([]byte, 5)
	require.NoError(t, device.Read(0, 0, head))
	assert.Equal(t, []byte("hello"), head)

	// A second read starting inside the page, past the programmed bytes,
	// sees untouched flash.
	tail := make([]byte, 3)
	require.NoError(t, device.Read(0, 5, tail))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, tail)

	requireNoViolations(t, chip)
}

func TestBlockDevice_PageStraddlingSpan(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	// 5000 bytes starting 1000 bytes into the block touch pages 0 through 2
	// and align with none of their boundaries.
	pattern := make([]byte, 5000)
	for i := range pattern {
		pattern[i] = byte(i*7 + 3)
	}

	require.NoError(t, device.Erase(7))
	require.NoError(t, device.Prog(7, 1000, pattern))

	buf := make([]byte, len(pattern))
	require.NoError(t, device.Read(7, 1000, buf))
	assert.True(t, bytes.Equal(pattern, buf), "page-straddling span did not survive the round trip")

	// A shifted read window crossing a page boundary sees the same bytes.
	window := make([]byte, 100)
	require.NoError(t, device.Read(7, 2048-50, window))
	assert.Equal(t, pattern[2048-50-1000 : 2048-50-1000+100], window)

	requireNoViolations(t, chip)
}

func TestBlockDevice_EraseRestoresErasedState(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	require.NoError(t, device.Erase(5))
	require.NoError(t, device.Prog(5, 0, bytes.Repeat([]byte{0x00}, 4096)))
	require.NoError(t, device.Erase(5))

	buf := make([]byte, 4096)
	require.NoError(t, device.Read(5, 0, buf))
	for i, b := range buf {
		require.Equal(t, byte(0xFF), b, "byte %d not erased", i)
	}

	requireNoViolations(t, chip)
}

// Programming bits can only clear them; a second program over live data
// lands the AND of both payloads. This is the behavior the filesystem's
// erase-before-write discipline exists for.
func TestBlockDevice_ProgramOnlyClearsBits(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	require.NoError(t, device.Erase(2))
	require.NoError(t, device.Prog(2, 0, []byte{0xF0, 0xFF}))
	require.NoError(t, device.Prog(2, 0, []byte{0x0F, 0x3C}))

	buf := make([]byte, 2)
	require.NoError(t, device.Read(2, 0, buf))
	assert.Equal(t, []byte{0x00, 0x3C}, buf)

	requireNoViolations(t, chip)
}

func TestBlockDevice_OutOfRange(t *testing.T) {
	t.Parallel()

	_, device := newChipDevice(t)
	blockSize := device.Geometry().BlockSize()

	tests := []struct {
		op   func() error
		name string
	}{
		{
			name: "erase past last block",
			op:   func() error { return device.Erase(1024) },
		},
		{
			name: "read past last block",
			op:   func() error { return device.Read(1024, 0, make([]byte, 1)) },
		},
		{
			name: "prog past last block",
			op:   func() error { return device.Prog(1024, 0, []byte{1}) },
		},
		{
			name: "read offset past block end",
			op:   func() error { return device.Read(0, blockSize, make([]byte, 1)) },
		},
		{
			name: "prog length past block end",
			op:   func() error { return device.Prog(0, blockSize-4, make([]byte, 5)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			require.Error(t, err)
			assert.ErrorIs(t, err, spinand.ErrOutOfRange)

			var ge *spinand.GeometryError
			assert.ErrorAs(t, err, &ge)
		})
	}
}

func TestBlockDevice_SpanUpToBlockEnd(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)
	blockSize := device.Geometry().BlockSize()

	// The final 100 bytes of a block are a legal span.
	data := bytes.Repeat([]byte{0x5A}, 100)
	require.NoError(t, device.Erase(9))
	require.NoError(t, device.Prog(9, blockSize-100, data))

	buf := make([]byte, 100)
	require.NoError(t, device.Read(9, blockSize-100, buf))
	assert.Equal(t, data, buf)

	requireNoViolations(t, chip)
}

func TestBlockDevice_ReadZeroesBufferOnFault(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	data := bytes.Repeat([]byte{0x42}, 3*2048)
	require.NoError(t, device.Erase(1))
	require.NoError(t, device.Prog(1, 0, data))

	// Fail the second data-register stream (opcode 0x03) of the read, so
	// the first page has already been copied into the buffer.
	chip.FailAfter(0x03, 2, errors.New("injected read fault"))

	buf := bytes.Repeat([]byte{0xAA}, len(data))
	err := device.Read(1, 0, buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected read fault")

	// Nothing of the partial read may leak through.
	for i, b := range buf {
		require.Equal(t, byte(0x00), b, "byte %d not zeroed after read fault", i)
	}
}

func TestBlockDevice_ProgStopsAtFirstError(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)

	data := bytes.Repeat([]byte{0x24}, 3*2048)
	require.NoError(t, device.Erase(4))

	// Fail the second program execute (opcode 0x10): the first page lands,
	// the second does not, and the error comes back unchanged.
	chip.FailAfter(0x10, 2, errors.New("injected program fault"))

	err := device.Prog(4, 0, data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected program fault")

	// The page programmed before the fault stays programmed; flash has no
	// rollback.
	buf := make([]byte, 2048)
	require.NoError(t, device.Read(4, 0, buf))
	assert.Equal(t, data[:2048], buf)

	// The page after the fault was never touched.
	require.NoError(t, device.Read(4, 2*2048, buf))
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 2048), buf)
}

// Erase and program on a protected chip set the chip-side failure flags;
// the driver must refuse to report success.
func TestBlockDevice_ProtectedOperationsFail(t *testing.T) {
	t.Parallel()

	chip := nandtest.New(spinand.DefaultConfig().Geometry)
	device, err := spinand.New(chip, spinand.WithPollInterval(50*time.Microsecond))
	require.NoError(t, err)

	// Reset without Init leaves the power-on protection in place.
	require.NoError(t, device.Reset())

	err = device.Erase(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, spinand.ErrEraseFailed)

	err = device.Prog(0, 0, []byte{0x00})
	require.Error(t, err)
	assert.ErrorIs(t, err, spinand.ErrProgramFailed)
}

func TestBlockDevice_BusyChipCompletes(t *testing.T) {
	t.Parallel()

	chip, device := newChipDevice(t)
	chip.SetBusyPolls(5)

	data := []byte("slow chip, same answer")
	require.NoError(t, device.Erase(6))
	require.NoError(t, device.Prog(6, 0, data))

	buf := make([]byte, len(data))
	require.NoError(t, device.Read(6, 0, buf))
	assert.Equal(t, data, buf)

	requireNoViolations(t, chip)
}

func TestBlockDevice_Sync(t *testing.T) {
	t.Parallel()

	_, device := newChipDevice(t)
	require.NoError(t, device.Sync())
}
