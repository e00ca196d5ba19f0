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
	"strings"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := getIsRetryableTestCases()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func getIsRetryableTestCases() []struct {
	err  error
	name string
	want bool
} {
	return []struct {
		err  error
		name string
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "transport timeout retryable",
			err:  ErrTransportTimeout,
			want: true,
		},
		{
			name: "transport read retryable",
			err:  ErrTransportRead,
			want: true,
		},
		{
			name: "transport write retryable",
			err:  ErrTransportWrite,
			want: true,
		},
		{
			name: "communication failed retryable",
			err:  ErrCommunicationFailed,
			want: true,
		},
		{
			name: "busy timeout retryable",
			err:  ErrBusyTimeout,
			want: true,
		},
		{
			name: "device not found not retryable",
			err:  ErrDeviceNotFound,
			want: false,
		},
		{
			name: "data too large not retryable",
			err:  ErrDataTooLarge,
			want: false,
		},
		{
			name: "invalid parameter not retryable",
			err:  ErrInvalidParameter,
			want: false,
		},
		{
			name: "out of range not retryable",
			err:  ErrOutOfRange,
			want: false,
		},
		{
			name: "erase failed not retryable",
			err:  ErrEraseFailed,
			want: false,
		},
		{
			name: "program failed not retryable",
			err:  ErrProgramFailed,
			want: false,
		},
		{
			name: "page programmed not retryable",
			err:  ErrPageProgrammed,
			want: false,
		},
		{
			name: "wrapped retryable error",
			err:  errors.New("outer: " + ErrTransportTimeout.Error()),
			want: false,
		},
	}
}

func TestIsRetryable_TransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		transport *TransportError
		name      string
		want      bool
	}{
		{
			name: "transport error retryable=true",
			transport: &TransportError{
				Err:       errors.New("test error"),
				Op:        "transmit",
				Port:      "/dev/spidev0.0",
				Type:      ErrorTypeTransient,
				Retryable: true,
			},
			want: true,
		},
		{
			name: "transport error retryable=false",
			transport: &TransportError{
				Err:       errors.New("test error"),
				Op:        "open",
				Port:      "/dev/spidev0.0",
				Type:      ErrorTypeTransient,
				Retryable: false,
			},
			want: false,
		},
		{
			name: "transport error with retryable underlying error but retryable=false",
			transport: &TransportError{
				Err:       ErrTransportTimeout,
				Op:        "transmit",
				Port:      "/dev/ttyUSB0",
				Type:      ErrorTypeTimeout,
				Retryable: false,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.transport)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{
			name: "nil error",
			err:  nil,
			want: ErrorTypePermanent,
		},
		{
			name: "transport timeout",
			err:  ErrTransportTimeout,
			want: ErrorTypeTimeout,
		},
		{
			name: "busy timeout",
			err:  ErrBusyTimeout,
			want: ErrorTypeTimeout,
		},
		{
			name: "transport read",
			err:  ErrTransportRead,
			want: ErrorTypeTransient,
		},
		{
			name: "transport write",
			err:  ErrTransportWrite,
			want: ErrorTypeTransient,
		},
		{
			name: "communication failed",
			err:  ErrCommunicationFailed,
			want: ErrorTypeTransient,
		},
		{
			name: "device not found",
			err:  ErrDeviceNotFound,
			want: ErrorTypePermanent,
		},
		{
			name: "erase failed",
			err:  ErrEraseFailed,
			want: ErrorTypePermanent,
		},
		{
			name: "program failed",
			err:  ErrProgramFailed,
			want: ErrorTypePermanent,
		},
		{
			name: "unknown error",
			err:  errors.New("unknown error"),
			want: ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := GetErrorType(tt.err)
			if got != tt.want {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorType_TransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		transport *TransportError
		name      string
		want      ErrorType
	}{
		{
			name: "transport error transient",
			transport: &TransportError{
				Err:       errors.New("test error"),
				Op:        "transmit",
				Port:      "/dev/ttyUSB0",
				Type:      ErrorTypeTransient,
				Retryable: true,
			},
			want: ErrorTypeTransient,
		},
		{
			name: "transport error timeout",
			transport: &TransportError{
				Err:       errors.New("test error"),
				Op:        "transmit",
				Port:      "/dev/ttyUSB0",
				Type:      ErrorTypeTimeout,
				Retryable: true,
			},
			want: ErrorTypeTimeout,
		},
		{
			name: "transport error permanent",
			transport: &TransportError{
				Err:       errors.New("test error"),
				Op:        "open",
				Port:      "/dev/ttyUSB0",
				Type:      ErrorTypePermanent,
				Retryable: false,
			},
			want: ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := GetErrorType(tt.transport)
			if got != tt.want {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorType_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		want    string
		errType ErrorType
	}{
		{name: "permanent", errType: ErrorTypePermanent, want: "permanent"},
		{name: "transient", errType: ErrorTypeTransient, want: "transient"},
		{name: "timeout", errType: ErrorTypeTimeout, want: "timeout"},
		{name: "unknown value", errType: ErrorType(42), want: "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.errType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err           error
		name          string
		op            string
		port          string
		errType       ErrorType
		wantRetryable bool
	}{
		{
			name:          "permanent transport error",
			op:            "open",
			port:          "/dev/spidev0.0",
			err:           errors.New("permission denied"),
			errType:       ErrorTypePermanent,
			wantRetryable: false,
		},
		{
			name:          "transient transport error",
			op:            "transmit",
			port:          "",
			err:           errors.New("connection lost"),
			errType:       ErrorTypeTransient,
			wantRetryable: true,
		},
		{
			name:          "timeout transport error",
			op:            "transmit",
			port:          "/dev/ttyACM0",
			err:           ErrTransportTimeout,
			errType:       ErrorTypeTimeout,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			te := NewTransportError(tt.op, tt.port, tt.err, tt.errType)

			if te.Op != tt.op {
				t.Errorf("Op = %q, want %q", te.Op, tt.op)
			}
			if te.Port != tt.port {
				t.Errorf("Port = %q, want %q", te.Port, tt.port)
			}
			if !errors.Is(te.Err, tt.err) {
				t.Errorf("Err = %v, want %v", te.Err, tt.err)
			}
			if te.Type != tt.errType {
				t.Errorf("Type = %v, want %v", te.Type, tt.errType)
			}
			if te.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", te.Retryable, tt.wantRetryable)
			}
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		te   *TransportError
		want []string // Substrings that should be present
	}{
		{
			name: "with port",
			te: &TransportError{
				Err:  errors.New("connection failed"),
				Op:   "transmit",
				Port: "/dev/spidev0.0",
			},
			want: []string{"transmit", "/dev/spidev0.0", "connection failed"},
		},
		{
			name: "without port",
			te: &TransportError{
				Err:  errors.New("device busy"),
				Op:   "open",
				Port: "",
			},
			want: []string{"open", "device busy"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.te.Error()
			for _, substr := range tt.want {
				if !strings.Contains(got, substr) {
					t.Errorf("Error() = %q, should contain %q", got, substr)
				}
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	t.Parallel()
	originalErr := errors.New("original error")
	te := &TransportError{
		Err:  originalErr,
		Op:   "test",
		Port: "/dev/test",
	}

	unwrapped := te.Unwrap()
	if !errors.Is(unwrapped, originalErr) {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
}

func TestNewTimeoutError(t *testing.T) {
	t.Parallel()
	te := NewTimeoutError("transmit", "/dev/ttyUSB0")

	if te.Op != "transmit" {
		t.Errorf("Op = %q, want %q", te.Op, "transmit")
	}
	if te.Port != "/dev/ttyUSB0" {
		t.Errorf("Port = %q, want %q", te.Port, "/dev/ttyUSB0")
	}
	if te.Type != ErrorTypeTimeout {
		t.Errorf("Type = %v, want %v", te.Type, ErrorTypeTimeout)
	}
	if !te.Retryable {
		t.Error("Retryable should be true for timeout errors")
	}
	if !errors.Is(te, ErrTransportTimeout) {
		t.Error("timeout error should match ErrTransportTimeout")
	}
}

func TestNewBusyTimeoutError(t *testing.T) {
	t.Parallel()
	te := NewBusyTimeoutError("wait ready", "")

	if te.Op != "wait ready" {
		t.Errorf("Op = %q, want %q", te.Op, "wait ready")
	}
	if te.Type != ErrorTypeTimeout {
		t.Errorf("Type = %v, want %v", te.Type, ErrorTypeTimeout)
	}
	if !te.Retryable {
		t.Error("Retryable should be true for busy timeout errors")
	}
	if !errors.Is(te, ErrBusyTimeout) {
		t.Error("busy timeout error should match ErrBusyTimeout")
	}
}

func TestNewDataTooLargeError(t *testing.T) {
	t.Parallel()
	te := NewDataTooLargeError("transmit", "/dev/spidev0.0")

	if te.Op != "transmit" {
		t.Errorf("Op = %q, want %q", te.Op, "transmit")
	}
	if te.Port != "/dev/spidev0.0" {
		t.Errorf("Port = %q, want %q", te.Port, "/dev/spidev0.0")
	}
	if te.Type != ErrorTypePermanent {
		t.Errorf("Type = %v, want %v", te.Type, ErrorTypePermanent)
	}
	if te.Retryable {
		t.Error("Retryable should be false for data too large errors")
	}
	if !errors.Is(te, ErrDataTooLarge) {
		t.Error("data too large error should match ErrDataTooLarge")
	}
}

func TestGeometryError(t *testing.T) {
	t.Parallel()
	ge := newGeometryError("erase", "block", 1024, 1024)

	got := ge.Error()
	for _, substr := range []string{"erase", "block", "1024"} {
		if !strings.Contains(got, substr) {
			t.Errorf("Error() = %q, should contain %q", got, substr)
		}
	}

	if !errors.Is(ge, ErrOutOfRange) {
		t.Error("geometry error should match ErrOutOfRange")
	}

	var target *GeometryError
	if !errors.As(error(ge), &target) {
		t.Fatal("errors.As should find *GeometryError")
	}
	if target.Value != 1024 || target.Limit != 1024 {
		t.Errorf("Value/Limit = %d/%d, want 1024/1024", target.Value, target.Limit)
	}
}
