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

// nandflash is a small utility for poking at a serial NAND chip through any
// of the supported transports: identify the part, erase blocks, program and
// read back data, and print the parameters a filesystem needs to mount it.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	spinand "github.com/ZaparooProject/go-spinand"
	"github.com/ZaparooProject/go-spinand/detection"
	"github.com/ZaparooProject/go-spinand/transport/serprog"
	"github.com/ZaparooProject/go-spinand/transport/spi"
)

type config struct {
	devicePath *string
	chipName   *string
	data       *string
	timeout    *time.Duration
	probe      *bool
	track      *bool
}

func parseFlags() *config {
	cfg := &config{
		devicePath: flag.String("device", "",
			"Device path (e.g. /dev/spidev0.0, /dev/ttyUSB0, COM3, or \"rpio\"). Empty = auto-detect."),
		chipName: flag.String("chip", "",
			"Chip to assume instead of the default layout (e.g. W25N512GV)"),
		data: flag.String("data", "",
			"Data for the write command: a literal string, or hex with a 0x prefix"),
		timeout: flag.Duration("timeout", 3*time.Second,
			"Bound on waiting for the chip to leave its busy state"),
		probe: flag.Bool("probe", false,
			"Handshake candidate serial ports during list (slower, but confirms a programmer)"),
		track: flag.Bool("track", false,
			"Reject programming a page twice between erases"),
	}
	flag.Usage = usage
	flag.Parse()
	return cfg
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `Usage: nandflash [flags] <command> [args]

Commands:
  list                            list candidate devices on this host
  identify                        read the JEDEC id and match the chip
  config                          print the filesystem mount parameters
  erase <block>                   erase one block
  write <block> <offset>          program -data into a block
  read <block> <offset> <length>  read bytes and hex-dump them

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	cfg := parseFlags()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := run(cfg, flag.Arg(0), flag.Args()[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "nandflash: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a command. Everything except list talks to a chip, so the
// device is opened once here and closed before main decides the exit code.
func run(cfg *config, command string, args []string) error {
	if command == "list" {
		return runList(cfg)
	}

	device, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = device.Close()
	}()

	switch command {
	case "identify":
		return runIdentify(device)
	case "config":
		return runConfig(device)
	case "erase":
		return runErase(device, args)
	case "write":
		return runWrite(device, cfg, args)
	case "read":
		return runRead(device, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// newTransport creates a transport from a device path.
func newTransport(path string) (spinand.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}

	pathLower := strings.ToLower(path)

	// Kernel SPI device nodes (/dev/spidev0.0 and friends).
	if strings.Contains(pathLower, "spi") {
		transport, err := spi.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return transport, nil
	}

	// Direct GPIO-register SPI on a Raspberry Pi.
	if pathLower == "rpio" {
		return newRPiOTransport()
	}

	// Serial ports carry the serprog protocol.
	transport, err := serprog.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create serprog transport: %w", err)
	}
	return transport, nil
}

func openDevice(cfg *config) (*spinand.Device, error) {
	path := *cfg.devicePath
	if path == "" {
		devices, err := detection.DetectAll(context.Background(), nil)
		if len(devices) == 0 {
			if err != nil {
				return nil, fmt.Errorf("failed to detect devices: %w", err)
			}
			return nil, errors.New("no candidate devices found; pass -device")
		}
		path = devices[0].Path
		_, _ = fmt.Printf("Using detected device: %s\n", path)
	}

	transport, err := newTransport(path)
	if err != nil {
		return nil, err
	}

	opts := []spinand.Option{spinand.WithTimeout(*cfg.timeout)}
	if *cfg.chipName != "" {
		info, ok := spinand.ChipByName(*cfg.chipName)
		if !ok {
			_ = transport.Close()
			return nil, fmt.Errorf("unknown chip %q", *cfg.chipName)
		}
		opts = append(opts, spinand.WithGeometry(info.Geometry))
	}
	if *cfg.track {
		opts = append(opts, spinand.WithProgramTracking())
	}

	device, err := spinand.New(transport, opts...)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	if err := device.Init(); err != nil {
		_ = device.Close()
		return nil, fmt.Errorf("failed to initialize chip: %w", err)
	}
	return device, nil
}

func runList(cfg *config) error {
	opts := detection.DefaultOptions()
	opts.Probe = *cfg.probe

	devices, err := detection.DetectAll(context.Background(), opts)
	if len(devices) == 0 && err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if len(devices) == 0 {
		_, _ = fmt.Println("No candidate devices found.")
		return nil
	}
	for _, dev := range devices {
		line := fmt.Sprintf("%-8s %s", dev.Transport, dev.Path)
		if dev.Name != "" && dev.Name != dev.Path {
			line += "  (" + dev.Name + ")"
		}
		if dev.VIDPID != "" {
			line += "  [" + dev.VIDPID + "]"
		}
		_, _ = fmt.Println(line)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return nil
}

func runIdentify(device *spinand.Device) error {
	id, err := device.ReadJEDECID()
	if err != nil {
		return fmt.Errorf("failed to read JEDEC id: %w", err)
	}
	_, _ = fmt.Printf("JEDEC id: %s\n", id)

	info, err := device.Identify()
	if err != nil {
		return err
	}
	geo := info.Geometry
	_, _ = fmt.Printf("Chip:     %s\n", info.Name)
	_, _ = fmt.Printf("Geometry: %d-byte pages, %d pages/block, %d blocks (%d bytes)\n",
		geo.PageSize, geo.PagesPerBlock, geo.BlockCount, geo.Capacity())
	return nil
}

func runConfig(device *spinand.Device) error {
	cfg := device.Config()
	_, _ = fmt.Printf("read_size:      %d\n", cfg.PageSize)
	_, _ = fmt.Printf("prog_size:      %d\n", cfg.PageSize)
	_, _ = fmt.Printf("block_size:     %d\n", cfg.BlockSize())
	_, _ = fmt.Printf("block_count:    %d\n", cfg.BlockCount)
	_, _ = fmt.Printf("block_cycles:   %d\n", cfg.BlockCycles)
	_, _ = fmt.Printf("cache_size:     %d\n", cfg.CacheSize)
	_, _ = fmt.Printf("lookahead_size: %d\n", cfg.LookaheadSize)
	_, _ = fmt.Printf("name_max:       %d\n", cfg.NameMax)
	return nil
}

func runErase(device *spinand.Device, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: erase <block>")
	}
	block, err := parseUint32("block", args[0])
	if err != nil {
		return err
	}

	if err := device.Erase(block); err != nil {
		return err
	}
	_, _ = fmt.Printf("Erased block %d\n", block)
	return nil
}

func runWrite(device *spinand.Device, cfg *config, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: write <block> <offset> (data from -data)")
	}
	block, err := parseUint32("block", args[0])
	if err != nil {
		return err
	}
	offset, err := parseUint32("offset", args[1])
	if err != nil {
		return err
	}
	data, err := parseData(*cfg.data)
	if err != nil {
		return err
	}

	if err := device.Prog(block, offset, data); err != nil {
		return err
	}
	_, _ = fmt.Printf("Programmed %d bytes at block %d offset %d\n", len(data), block, offset)
	return nil
}

func runRead(device *spinand.Device, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: read <block> <offset> <length>")
	}
	block, err := parseUint32("block", args[0])
	if err != nil {
		return err
	}
	offset, err := parseUint32("offset", args[1])
	if err != nil {
		return err
	}
	length, err := parseUint32("length", args[2])
	if err != nil {
		return err
	}

	buf := make([]byte, length)
	if err := device.Read(block, offset, buf); err != nil {
		return err
	}
	_, _ = fmt.Print(hex.Dump(buf))
	return nil
}

func parseUint32(name, value string) (uint32, error) {
	parsed, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, value, err)
	}
	return uint32(parsed), nil
}

func parseData(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("no data to write: pass -data")
	}
	if rest, ok := strings.CutPrefix(value, "0x"); ok {
		data, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("bad hex data: %w", err)
		}
		return data, nil
	}
	return []byte(value), nil
}
