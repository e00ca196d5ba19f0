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
	"errors"
	"testing"
)

func TestGeometry_Derived(t *testing.T) {
	t.Parallel()
	geo := Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 1024}

	if got := geo.BlockSize(); got != 131072 {
		t.Errorf("BlockSize() = %d, want 131072", got)
	}
	if got := geo.Pages(); got != 65536 {
		t.Errorf("Pages() = %d, want 65536", got)
	}
	if got := geo.Capacity(); got != 134217728 {
		t.Errorf("Capacity() = %d, want 134217728", got)
	}
}

func TestGeometry_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		geo     Geometry
		wantErr bool
	}{
		{
			name:    "reference layout",
			geo:     Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 1024},
			wantErr: false,
		},
		{
			name:    "small layout",
			geo:     Geometry{PageSize: 256, PagesPerBlock: 16, BlockCount: 8},
			wantErr: false,
		},
		{
			name:    "zero page size",
			geo:     Geometry{PageSize: 0, PagesPerBlock: 64, BlockCount: 1024},
			wantErr: true,
		},
		{
			name:    "zero pages per block",
			geo:     Geometry{PageSize: 2048, PagesPerBlock: 0, BlockCount: 1024},
			wantErr: true,
		},
		{
			name:    "zero block count",
			geo:     Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 0},
			wantErr: true,
		},
		{
			name:    "page size at column limit",
			geo:     Geometry{PageSize: 1 << 16, PagesPerBlock: 64, BlockCount: 16},
			wantErr: false,
		},
		{
			name:    "page size beyond column limit",
			geo:     Geometry{PageSize: 1<<16 + 1, PagesPerBlock: 64, BlockCount: 16},
			wantErr: true,
		},
		{
			name:    "pages at row limit",
			geo:     Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 1 << 18},
			wantErr: false,
		},
		{
			name:    "pages beyond row limit",
			geo:     Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 1<<18 + 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.geo.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Validate() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestGeometry_Translate(t *testing.T) {
	t.Parallel()
	geo := Geometry{PageSize: 2048, PagesPerBlock: 64, BlockCount: 1024}

	tests := []struct {
		name   string
		block  uint32
		offset uint32
		want   PhysicalAddress
	}{
		{
			name:   "block start",
			block:  0,
			offset: 0,
			want:   PhysicalAddress{Page: 0, Column: 0},
		},
		{
			name:   "within first page",
			block:  0,
			offset: 100,
			want:   PhysicalAddress{Page: 0, Column: 100},
		},
		{
			name:   "second page of block",
			block:  0,
			offset: 2048,
			want:   PhysicalAddress{Page: 1, Column: 0},
		},
		{
			name:   "mid page of later block",
			block:  3,
			offset: 2*2048 + 17,
			want:   PhysicalAddress{Page: 3*64 + 2, Column: 17},
		},
		{
			name:   "last byte of last block",
			block:  1023,
			offset: 64*2048 - 1,
			want:   PhysicalAddress{Page: 1023*64 + 63, Column: 2047},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := geo.Translate(tt.block, tt.offset)
			if got != tt.want {
				t.Errorf("Translate(%d, %d) = %+v, want %+v", tt.block, tt.offset, got, tt.want)
			}
		})
	}
}

// Translating every page boundary of every block must land on consecutive
// page rows with a zero column; the decomposition is how block addresses map
// onto the wire, so any gap or overlap corrupts data placement.
func TestGeometry_TranslateCoversAllPages(t *testing.T) {
	t.Parallel()
	geo := Geometry{PageSize: 128, PagesPerBlock: 4, BlockCount: 8}

	var wantPage uint32
	for block := uint32(0); block < geo.BlockCount; block++ {
		for offset := uint32(0); offset < geo.BlockSize(); offset += geo.PageSize {
			addr := geo.Translate(block, offset)
			if addr.Page != wantPage || addr.Column != 0 {
				t.Fatalf("Translate(%d, %d) = %+v, want page %d column 0",
					block, offset, addr, wantPage)
			}
			wantPage++
		}
	}
	if wantPage != geo.Pages() {
		t.Errorf("covered %d pages, want %d", wantPage, geo.Pages())
	}
}

// Recombining a translated page row and column must reproduce the linear
// byte position the block and offset named, for every byte of the layout.
func TestGeometry_TranslatePreservesLinearAddress(t *testing.T) {
	t.Parallel()
	geo := Geometry{PageSize: 128, PagesPerBlock: 4, BlockCount: 8}

	for block := uint32(0); block < geo.BlockCount; block++ {
		for offset := uint32(0); offset < geo.BlockSize(); offset++ {
			addr := geo.Translate(block, offset)
			if addr.Column >= geo.PageSize {
				t.Fatalf("Translate(%d, %d) column %d exceeds the page",
					block, offset, addr.Column)
			}
			got := uint64(addr.Page)*uint64(geo.PageSize) + uint64(addr.Column)
			want := uint64(block)*uint64(geo.BlockSize()) + uint64(offset)
			if got != want {
				t.Fatalf("Translate(%d, %d) = %+v, recombines to byte %d, want %d",
					block, offset, addr, got, want)
			}
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.PageSize != 2048 {
		t.Errorf("PageSize = %d, want 2048", cfg.PageSize)
	}
	if cfg.PagesPerBlock != 64 {
		t.Errorf("PagesPerBlock = %d, want 64", cfg.PagesPerBlock)
	}
	if cfg.BlockCount != 1024 {
		t.Errorf("BlockCount = %d, want 1024", cfg.BlockCount)
	}
	if cfg.BlockCycles != 1 {
		t.Errorf("BlockCycles = %d, want 1", cfg.BlockCycles)
	}
	if cfg.CacheSize != 2048 {
		t.Errorf("CacheSize = %d, want 2048", cfg.CacheSize)
	}
	if cfg.LookaheadSize != 128 {
		t.Errorf("LookaheadSize = %d, want 128", cfg.LookaheadSize)
	}
	if cfg.NameMax != 255 {
		t.Errorf("NameMax = %d, want 255", cfg.NameMax)
	}
}

func TestLookupChip(t *testing.T) {
	t.Parallel()
	info, ok := LookupChip(JEDECID{0xEF, 0xAA, 0x21})
	if !ok {
		t.Fatal("LookupChip should recognize the W25N01GV id")
	}
	if info.Name != "W25N01GV" {
		t.Errorf("Name = %q, want W25N01GV", info.Name)
	}
	if info.Geometry != DefaultConfig().Geometry {
		t.Errorf("Geometry = %+v, want reference layout", info.Geometry)
	}

	if _, ok := LookupChip(JEDECID{0x00, 0x00, 0x00}); ok {
		t.Error("LookupChip should not recognize an all-zero id")
	}
}

func TestChipByName(t *testing.T) {
	t.Parallel()
	info, ok := ChipByName("w25n512gv")
	if !ok {
		t.Fatal("ChipByName should match case-insensitively")
	}
	if info.Geometry.BlockCount != 512 {
		t.Errorf("BlockCount = %d, want 512", info.Geometry.BlockCount)
	}

	if _, ok := ChipByName("NOT-A-CHIP"); ok {
		t.Error("ChipByName should reject unknown names")
	}
}

func TestJEDECID_String(t *testing.T) {
	t.Parallel()
	id := JEDECID{0xEF, 0xAA, 0x21}
	if got := id.String(); got != "ef aa 21" {
		t.Errorf("String() = %q, want %q", got, "ef aa 21")
	}
}
