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

//go:build linux

package main

import (
	"fmt"

	spinand "github.com/ZaparooProject/go-spinand"
	"github.com/ZaparooProject/go-spinand/transport/rpio"
)

func newRPiOTransport() (spinand.Transport, error) {
	transport, err := rpio.New(0)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpio transport: %w", err)
	}
	return transport, nil
}
