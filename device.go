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
	"errors"
	"fmt"
	"time"
)

const (
	// defaultWaitTimeout bounds status polling after erase, program and
	// reset. The slowest datasheet operation (block erase) completes in
	// around 10ms; the default leaves generous slack for slow buses.
	defaultWaitTimeout = 1 * time.Second

	// defaultPollInterval is the sleep between status polls
	defaultPollInterval = 1 * time.Millisecond
)

// Device errors
var (
	// ErrUnknownDevice indicates the JEDEC ID matched no known part
	ErrUnknownDevice = errors.New("unknown device id")
	// ErrGeometryMismatch indicates the configured geometry differs from
	// the geometry of the identified chip
	ErrGeometryMismatch = errors.New("configured geometry does not match chip")
)

// Device drives one serial NAND chip over a Transport.
//
// Device is not thread-safe. The chip's write-enable latch makes every
// erase and program a multi-command sequence, so interleaving calls from
// two goroutines corrupts the command stream even if the transport itself
// is safe. Callers that share a Device across goroutines must serialize
// access externally.
type Device struct {
	transport    Transport
	programmed   []uint64
	config       Config
	waitTimeout  time.Duration
	pollInterval time.Duration
	trackProgram bool
}

// New creates a Device on the given transport. Without options the device
// assumes the reference W25N01GV layout from DefaultConfig.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	d := &Device{
		transport:    transport,
		config:       DefaultConfig(),
		waitTimeout:  defaultWaitTimeout,
		pollInterval: defaultPollInterval,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := d.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}

	if d.trackProgram {
		d.programmed = make([]uint64, (d.config.Pages()+63)/64)
	}

	return d, nil
}

// Config returns the device configuration
func (d *Device) Config() Config {
	return d.config
}

// Geometry returns the chip geometry the device was configured with
func (d *Device) Geometry() Geometry {
	return d.config.Geometry
}

// Close releases the underlying transport
func (d *Device) Close() error {
	return d.transport.Close()
}

// SetTimeout sets the transport timeout for individual bus transactions.
// It does not affect the status-poll bound; see WithTimeout for that.
func (d *Device) SetTimeout(timeout time.Duration) error {
	return d.transport.SetTimeout(timeout)
}

// Reset issues a device reset and waits for the chip to come back
func (d *Device) Reset() error {
	return d.ResetContext(context.Background())
}

// ResetContext issues a device reset and waits for the chip to come back
func (d *Device) ResetContext(ctx context.Context) error {
	if _, err := d.transport.TransmitWithContext(ctx, []byte{cmdDeviceReset}, 0); err != nil {
		return fmt.Errorf("failed to reset device: %w", err)
	}
	if err := d.WaitReadyContext(ctx); err != nil {
		return fmt.Errorf("device did not come back after reset: %w", err)
	}
	return nil
}

// ReadJEDECID reads the chip's JEDEC identification bytes
func (d *Device) ReadJEDECID() (JEDECID, error) {
	return d.ReadJEDECIDContext(context.Background())
}

// ReadJEDECIDContext reads the chip's JEDEC identification bytes
func (d *Device) ReadJEDECIDContext(ctx context.Context) (JEDECID, error) {
	// One dummy byte is clocked between the opcode and the ID.
	resp, err := d.transport.TransmitWithContext(ctx, []byte{cmdJedecID, 0x00}, 3)
	if err != nil {
		return JEDECID{}, fmt.Errorf("failed to read JEDEC ID: %w", err)
	}
	return JEDECID{resp[0], resp[1], resp[2]}, nil
}

// Identify reads the JEDEC ID and matches it against the known-chip table
func (d *Device) Identify() (ChipInfo, error) {
	return d.IdentifyContext(context.Background())
}

// IdentifyContext reads the JEDEC ID and matches it against the known-chip
// table. Unknown IDs return ErrUnknownDevice.
func (d *Device) IdentifyContext(ctx context.Context) (ChipInfo, error) {
	id, err := d.ReadJEDECIDContext(ctx)
	if err != nil {
		return ChipInfo{}, err
	}
	info, ok := LookupChip(id)
	if !ok {
		return ChipInfo{}, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return info, nil
}

// Init prepares the chip for use: reset, identity check, then clearing the
// power-on write protection. The chip refuses every erase and program until
// the protection bits are cleared, so callers that skip Init must unprotect
// themselves.
func (d *Device) Init() error {
	return d.InitContext(context.Background())
}

// InitContext prepares the chip for use with cancellation support
func (d *Device) InitContext(ctx context.Context) error {
	if err := d.ResetContext(ctx); err != nil {
		return err
	}

	info, err := d.IdentifyContext(ctx)
	if err != nil {
		return err
	}
	if info.Geometry != d.config.Geometry {
		return fmt.Errorf("%w: chip is %s", ErrGeometryMismatch, info.Name)
	}

	if err := d.UnprotectContext(ctx); err != nil {
		return fmt.Errorf("failed to unprotect device: %w", err)
	}
	return nil
}
