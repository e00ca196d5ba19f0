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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns the USB devices a probe must never touch: a
// serprog sync write into the wrong firmware can wedge it. Entries are
// VID:PID in hex, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		// Add devices here as they are discovered, e.g.
		// "1234:5678", // modem that hangs on serprog sync bytes
	}
}

// IsBlocked reports whether a device's VID:PID is in the blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// IsPathIgnored reports whether a device path is in the ignore list.
// Comparison is path-normalized and case-insensitive, so COM2 matches
// com2 and /dev/../dev/ttyUSB0 matches /dev/ttyUSB0.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalized := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore == "" {
			continue
		}
		if devicePath == ignore || normalized == normalizedPath(ignore) {
			return true
		}
	}
	return false
}

// normalizedPath cleans a device path for comparison. Lowercasing makes
// Windows COM names compare case-insensitively.
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
