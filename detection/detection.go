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

// Package detection discovers places a flash chip may be attached: native
// SPI controller ports and serial ports that may host a serprog
// programmer.
package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-spinand"
	"github.com/ZaparooProject/go-spinand/transport/serprog"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// serialPort is one enumerated serial device, with whatever metadata the
// platform scan could attach.
type serialPort struct {
	Path         string
	Name         string
	VIDPID       string
	Manufacturer string
	Product      string
}

// DeviceInfo describes one candidate attachment point for a flash chip
type DeviceInfo struct {
	// Path is what the matching transport constructor accepts: an SPI
	// registry name for TransportSPI, a serial device for
	// TransportSerprog.
	Path         string
	Name         string
	VIDPID       string
	Manufacturer string
	Product      string
	Transport    spinand.TransportType
}

// Options configures detection
type Options struct {
	// IgnorePaths lists device paths never to report or probe
	IgnorePaths []string
	// Blocklist lists VID:PID pairs never to probe
	Blocklist []string
	// Timeout bounds each serprog probe
	Timeout time.Duration
	// Probe opens each candidate serial port and runs the serprog
	// handshake, reporting only ports that answer. Without it every
	// enumerated serial port is reported as a candidate, untouched.
	Probe bool
}

// DefaultOptions returns the options DetectAll uses when passed nil
func DefaultOptions() *Options {
	return &Options{
		Timeout:   2 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// DetectAll lists candidate attachment points on this host. SPI ports
// come from the periph.io port registry; serial ports come from the
// platform scan. A scanner failure does not hide the other scanner's
// results: whatever was found is returned alongside the error.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	devices := spiPorts(opts)

	serialDevices, err := serialCandidates(ctx, opts)
	devices = append(devices, serialDevices...)
	return devices, err
}

// spiPorts lists the host's registered SPI ports
func spiPorts(opts *Options) []DeviceInfo {
	if _, err := host.Init(); err != nil {
		return nil
	}

	var devices []DeviceInfo
	for _, ref := range spireg.All() {
		if IsPathIgnored(ref.Name, opts.IgnorePaths) {
			continue
		}
		devices = append(devices, DeviceInfo{
			Path:      ref.Name,
			Name:      ref.Name,
			Transport: spinand.TransportSPI,
		})
	}
	return devices
}

// serialCandidates lists serial ports that may host a serprog programmer
func serialCandidates(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	ports, err := platformPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to scan serial ports: %w", err)
	}

	var devices []DeviceInfo
	for _, port := range filterPorts(ports, opts) {
		info := DeviceInfo{
			Path:         port.Path,
			Name:         port.Name,
			VIDPID:       port.VIDPID,
			Manufacturer: port.Manufacturer,
			Product:      port.Product,
			Transport:    spinand.TransportSerprog,
		}

		if opts.Probe {
			name, err := probeSerprog(ctx, port.Path, opts.Timeout)
			if err != nil {
				continue
			}
			if name != "" {
				info.Name = name
			}
		}

		devices = append(devices, info)
	}
	return devices, nil
}

// filterPorts drops ignored paths and blocklisted devices
func filterPorts(ports []serialPort, opts *Options) []serialPort {
	var out []serialPort
	for _, port := range ports {
		if IsPathIgnored(port.Path, opts.IgnorePaths) {
			continue
		}
		if port.VIDPID != "" && IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}
		out = append(out, port)
	}
	return out
}

// probeSerprog opens the port and runs the serprog handshake. A port that
// completes it is a programmer; the reported name comes back when the
// firmware supports the query.
func probeSerprog(ctx context.Context, path string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("probe canceled: %w", err)
	}

	var opts []serprog.Option
	if timeout > 0 {
		opts = append(opts, serprog.WithTimeout(timeout))
	}
	t, err := serprog.New(path, opts...)
	if err != nil {
		return "", err
	}
	name := t.ProgrammerName()
	_ = t.Close()
	return name, nil
}
