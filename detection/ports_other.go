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

//go:build !windows

package detection

import (
	"path/filepath"
	"strings"

	"go.bug.st/serial"
)

// platformPorts returns candidate serial ports via the serial library's
// OS enumeration.
func platformPorts() ([]serialPort, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}

	ports := make([]serialPort, 0, len(names))
	for _, path := range names {
		name := filepath.Base(path)
		if isSystemDevice(name) {
			continue
		}
		ports = append(ports, serialPort{Path: path, Name: name})
	}
	return dropTTYTwins(ports), nil
}

// isSystemDevice filters out devices that are never programmers
func isSystemDevice(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range []string{"bluetooth", "console", "debug", "kernel"} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// dropTTYTwins prefers /dev/cu.* over its /dev/tty.* twin on macOS; the
// cu device opens without waiting on carrier detect. On Linux there are
// no such twins and the list passes through unchanged.
func dropTTYTwins(ports []serialPort) []serialPort {
	cu := make(map[string]bool, len(ports))
	for _, port := range ports {
		if rest, ok := strings.CutPrefix(port.Path, "/dev/cu."); ok {
			cu[rest] = true
		}
	}

	out := ports[:0]
	for _, port := range ports {
		if rest, ok := strings.CutPrefix(port.Path, "/dev/tty."); ok && cu[rest] {
			continue
		}
		out = append(out, port)
	}
	return out
}
