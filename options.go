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
	"fmt"
	"time"
)

// Option configures a Device during New
type Option func(*Device) error

// WithConfig replaces the whole device configuration, geometry included
func WithConfig(cfg Config) Option {
	return func(d *Device) error {
		d.config = cfg
		return nil
	}
}

// WithGeometry replaces the chip geometry, keeping the filesystem tuning
// values from DefaultConfig.
func WithGeometry(g Geometry) Option {
	return func(d *Device) error {
		d.config.Geometry = g
		return nil
	}
}

// WithTimeout sets the bound on waiting for the chip to leave the busy
// state after erase, program, page read and reset. Polls past this bound
// fail with ErrBusyTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: wait timeout must be positive", ErrInvalidParameter)
		}
		d.waitTimeout = timeout
		return nil
	}
}

// WithPollInterval sets the sleep between status polls while the chip is
// busy.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Device) error {
		if interval <= 0 {
			return fmt.Errorf("%w: poll interval must be positive", ErrInvalidParameter)
		}
		d.pollInterval = interval
		return nil
	}
}

// WithProgramTracking makes the device track which pages have been
// programmed since their block's last erase and reject a second program to
// the same page with ErrPageProgrammed.
//
// The chip itself accepts repeat programs (each one AND-combines bits into
// the page), so tracking is off by default and the one-program-per-page
// rule is the caller's contract; log-structured filesystems never repeat a
// program. Enable it to turn that contract violation into a loud error.
func WithProgramTracking() Option {
	return func(d *Device) error {
		d.trackProgram = true
		return nil
	}
}
