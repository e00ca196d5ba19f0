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
	"time"
)

// ReadStatus reads one of the chip's status registers (RegProtection,
// RegConfiguration or RegStatus).
func (d *Device) ReadStatus(reg byte) (byte, error) {
	return d.ReadStatusContext(context.Background(), reg)
}

// ReadStatusContext reads one of the chip's status registers
func (d *Device) ReadStatusContext(ctx context.Context, reg byte) (byte, error) {
	resp, err := d.transport.TransmitWithContext(ctx, []byte{cmdReadStatus, reg}, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to read status register %#02x: %w", reg, err)
	}
	return resp[0], nil
}

// WriteStatus writes one of the chip's status registers. Unlike erase and
// program, status writes do not go through the write-enable latch.
func (d *Device) WriteStatus(reg, value byte) error {
	return d.WriteStatusContext(context.Background(), reg, value)
}

// WriteStatusContext writes one of the chip's status registers
func (d *Device) WriteStatusContext(ctx context.Context, reg, value byte) error {
	if _, err := d.transport.TransmitWithContext(ctx, []byte{cmdWriteStatus, reg, value}, 0); err != nil {
		return fmt.Errorf("failed to write status register %#02x: %w", reg, err)
	}
	return nil
}

// Unprotect clears the block-protection range bits so erase and program
// operations reach the array. The chip powers up with every block
// protected; erases and programs before Unprotect fail silently on the
// chip side.
func (d *Device) Unprotect() error {
	return d.UnprotectContext(context.Background())
}

// UnprotectContext clears the block-protection range bits
func (d *Device) UnprotectContext(ctx context.Context) error {
	reg, err := d.ReadStatusContext(ctx, RegProtection)
	if err != nil {
		return fmt.Errorf("failed to read protection register: %w", err)
	}

	cleared := reg &^ protectionBP
	if cleared == reg {
		return nil
	}

	if err := d.WriteStatusContext(ctx, RegProtection, cleared); err != nil {
		return fmt.Errorf("failed to clear protection bits: %w", err)
	}
	return nil
}

// WaitReady polls the status register until the chip reports not busy,
// sleeping the poll interval between reads. It returns an error wrapping
// ErrBusyTimeout if the busy flag does not clear within the device's wait
// timeout; the wait is always bounded.
func (d *Device) WaitReady() error {
	return d.WaitReadyContext(context.Background())
}

// WaitReadyContext polls the status register until the chip reports not
// busy, the wait timeout passes, or the context is canceled.
func (d *Device) WaitReadyContext(ctx context.Context) error {
	_, err := d.waitStatus(ctx)
	return err
}

// waitStatus is WaitReady returning the final status byte, so operation
// callers can inspect the erase/program failure flags without an extra
// register read.
func (d *Device) waitStatus(ctx context.Context) (byte, error) {
	deadline := time.Now().Add(d.waitTimeout)
	for {
		status, err := d.ReadStatusContext(ctx, statusReadArg)
		if err != nil {
			return 0, fmt.Errorf("failed to poll status: %w", err)
		}
		if status&statusBusy == 0 {
			return status, nil
		}

		if !time.Now().Before(deadline) {
			return 0, NewBusyTimeoutError("wait ready", "")
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("wait ready: %w", ctx.Err())
		case <-time.After(d.pollInterval):
		}
	}
}
