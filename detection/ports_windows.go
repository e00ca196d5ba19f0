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

//go:build windows

package detection

import (
	"errors"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// platformPorts returns candidate serial ports on Windows, merging the
// SERIALCOMM registry device map with SetupAPI metadata. Either source
// alone is enough; only both failing is an error.
func platformPorts() ([]serialPort, error) {
	registryPorts, registryErr := registryCOMPorts()
	apiPorts, apiErr := setupAPIPorts()
	if registryErr != nil && apiErr != nil {
		return nil, errors.Join(registryErr, apiErr)
	}

	merged := make(map[string]serialPort)
	for _, port := range registryPorts {
		merged[port.Path] = port
	}
	// SetupAPI entries carry VID:PID and manufacturer, so they win.
	for _, port := range apiPorts {
		merged[port.Path] = port
	}

	ports := make([]serialPort, 0, len(merged))
	for _, port := range merged {
		ports = append(ports, port)
	}
	return ports, nil
}

// registryCOMPorts lists COM devices from the SERIALCOMM device map
func registryCOMPorts() ([]serialPort, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`HARDWARE\DEVICEMAP\SERIALCOMM`, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	values, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	ports := make([]serialPort, 0, len(values))
	for _, value := range values {
		name, _, err := key.GetStringValue(value)
		if err != nil {
			continue
		}
		ports = append(ports, serialPort{Path: name, Name: name})
	}
	return ports, nil
}

const (
	digcfPresent      = 0x00000002
	spdrpHardwareID   = 0x00000001
	spdrpMfg          = 0x0000000B
	spdrpFriendlyName = 0x0000000C
)

// guidPortsClass is the device setup class for serial and parallel ports
var guidPortsClass = windows.GUID{
	Data1: 0x4d36e978,
	Data2: 0xe325,
	Data3: 0x11ce,
	Data4: [8]byte{0xbf, 0xc1, 0x08, 0x00, 0x2b, 0xe1, 0x03, 0x18},
}

type devInfoData struct {
	cbSize    uint32
	classGUID windows.GUID
	devInst   uint32
	reserved  uintptr
}

// setupAPIPorts enumerates the Ports device class through SetupAPI,
// which knows friendly names and hardware IDs the registry map lacks.
func setupAPIPorts() ([]serialPort, error) {
	setupapi := windows.NewLazySystemDLL("setupapi.dll")
	getClassDevs := setupapi.NewProc("SetupDiGetClassDevsW")
	enumDeviceInfo := setupapi.NewProc("SetupDiEnumDeviceInfo")
	getProperty := setupapi.NewProc("SetupDiGetDeviceRegistryPropertyW")
	destroyList := setupapi.NewProc("SetupDiDestroyDeviceInfoList")

	devInfo, _, _ := getClassDevs.Call(
		uintptr(unsafe.Pointer(&guidPortsClass)), 0, 0, digcfPresent)
	if devInfo == uintptr(windows.InvalidHandle) {
		return nil, windows.GetLastError()
	}
	defer func() { _, _, _ = destroyList.Call(devInfo) }()

	var ports []serialPort
	var data devInfoData
	data.cbSize = uint32(unsafe.Sizeof(data))

	for i := uint32(0); ; i++ {
		ret, _, _ := enumDeviceInfo.Call(devInfo, uintptr(i), uintptr(unsafe.Pointer(&data)))
		if ret == 0 {
			break
		}

		friendly := deviceProperty(getProperty, devInfo, &data, spdrpFriendlyName)
		comPort := comPortFromName(friendly)
		if comPort == "" {
			continue
		}

		port := serialPort{Path: comPort, Name: friendly}
		if hwid := deviceProperty(getProperty, devInfo, &data, spdrpHardwareID); hwid != "" {
			port.VIDPID = vidpidFromHardwareID(hwid)
		}
		port.Manufacturer = deviceProperty(getProperty, devInfo, &data, spdrpMfg)
		if n := strings.Index(friendly, " ("); n > 0 {
			port.Product = friendly[:n]
		}

		ports = append(ports, port)
	}
	return ports, nil
}

// deviceProperty reads one string device property with the two-call
// size-then-data pattern SetupAPI requires.
func deviceProperty(getProperty *windows.LazyProc, devInfo uintptr, data *devInfoData, prop uintptr) string {
	var size uint32
	_, _, _ = getProperty.Call(devInfo, uintptr(unsafe.Pointer(data)), prop,
		0, 0, 0, uintptr(unsafe.Pointer(&size)))
	if size < 2 {
		return ""
	}

	buf := make([]uint16, size/2)
	var propertyType uint32
	ret, _, _ := getProperty.Call(devInfo, uintptr(unsafe.Pointer(data)), prop,
		uintptr(unsafe.Pointer(&propertyType)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(size), 0)
	if ret == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

// comPortFromName pulls "COMn" out of a friendly name like
// "USB Serial Device (COM7)".
func comPortFromName(name string) string {
	n := strings.LastIndex(name, "(COM")
	if n < 0 {
		return ""
	}
	m := strings.Index(name[n:], ")")
	if m < 0 {
		return ""
	}
	return name[n+1 : n+m]
}

// vidpidFromHardwareID extracts VID:PID from a hardware ID like
// USB\VID_0403&PID_6001.
func vidpidFromHardwareID(hwid string) string {
	hwid = strings.ToUpper(hwid)
	vid := hexAfter(hwid, "VID_")
	pid := hexAfter(hwid, "PID_")
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

// hexAfter returns the four hex digits following marker, or ""
func hexAfter(s, marker string) string {
	idx := strings.Index(s, marker)
	if idx < 0 || idx+len(marker)+4 > len(s) {
		return ""
	}
	hex := s[idx+len(marker) : idx+len(marker)+4]
	for _, r := range hex {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return ""
		}
	}
	return hex
}
