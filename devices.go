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
	"strings"
)

// JEDECID is the three identification bytes returned by the Read JEDEC ID
// command: the manufacturer byte followed by two device bytes.
type JEDECID [3]byte

// String formats the ID the way datasheets print it
func (id JEDECID) String() string {
	return fmt.Sprintf("%02x %02x %02x", id[0], id[1], id[2])
}

// ChipInfo describes a flash part the driver knows the geometry of
type ChipInfo struct {
	Name     string
	Geometry Geometry
}

// knownChips maps JEDEC IDs to supported Winbond serial NAND parts. The
// stacked multi-die parts (W25M series) are deliberately absent: they need
// die-select addressing this driver does not do.
var knownChips = map[JEDECID]ChipInfo{
	{0xEF, 0xAA, 0x20}: {
		Name:     "W25N512GV",
		Geometry: Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 512},
	},
	{0xEF, 0xAA, 0x21}: {
		Name:     "W25N01GV",
		Geometry: Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 1024},
	},
	{0xEF, 0xBA, 0x21}: {
		Name:     "W25N01GW",
		Geometry: Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 1024},
	},
	{0xEF, 0xAA, 0x22}: {
		Name:     "W25N02KV",
		Geometry: Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 2048},
	},
}

// LookupChip returns the chip description for a JEDEC ID, if the part is
// known to the driver.
func LookupChip(id JEDECID) (ChipInfo, bool) {
	info, ok := knownChips[id]
	return info, ok
}

// ChipByName returns the chip description for a part name such as
// "W25N01GV". Matching is case-insensitive.
func ChipByName(name string) (ChipInfo, bool) {
	for _, info := range knownChips {
		if strings.EqualFold(info.Name, name) {
			return info, true
		}
	}
	return ChipInfo{}, false
}
