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
	"fmt"
)

// Transport-level errors
var (
	// ErrTransportTimeout indicates a physical transfer did not complete
	// within the transport's timeout.
	ErrTransportTimeout = errors.New("transport timeout")
	// ErrTransportRead indicates the response phase of a transfer failed.
	ErrTransportRead = errors.New("transport read failed")
	// ErrTransportWrite indicates the request phase of a transfer failed.
	ErrTransportWrite = errors.New("transport write failed")
	// ErrCommunicationFailed indicates the device stopped responding in a
	// way that is not attributable to a single read or write.
	ErrCommunicationFailed = errors.New("communication failed")
	// ErrDeviceNotFound indicates no device is present on the bus or path.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDataTooLarge indicates a payload exceeds what the transport can
	// move in one transaction.
	ErrDataTooLarge = errors.New("data too large")
	// ErrInvalidParameter indicates a caller-supplied argument is invalid.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Operation-level errors
var (
	// ErrBusyTimeout indicates the status register never cleared the busy
	// bit within the configured wait bound.
	ErrBusyTimeout = errors.New("busy timeout")
	// ErrOutOfRange indicates an address outside the configured geometry.
	// It is wrapped by GeometryError; match with errors.Is.
	ErrOutOfRange = errors.New("address out of range")
	// ErrEraseFailed reflects the chip's erase-failure status bit.
	ErrEraseFailed = errors.New("block erase failed")
	// ErrProgramFailed reflects the chip's program-failure status bit.
	ErrProgramFailed = errors.New("page program failed")
	// ErrPageProgrammed is returned when program tracking is enabled and a
	// page is programmed a second time without an intervening erase.
	ErrPageProgrammed = errors.New("page already programmed since last erase")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates retrying will not help.
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates a retry may succeed.
	ErrorTypeTransient
	// ErrorTypeTimeout indicates the operation ran out of time.
	ErrorTypeTimeout
)

// String returns a human-readable name for the error type
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// TransportError wraps a transport failure with the operation and port it
// occurred on. Transports must report faults through this type rather than
// returning bare bus errors (or, worse, none at all).
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with the given classification.
// Retryable is derived from the type: permanent errors are not retryable.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a transport error for a transfer that timed out
func NewTimeoutError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrTransportTimeout,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// NewBusyTimeoutError creates a transport error for a device that never
// left the busy state within the wait bound
func NewBusyTimeoutError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrBusyTimeout,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// NewDataTooLargeError creates a transport error for an oversized payload
func NewDataTooLargeError(op, port string) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       ErrDataTooLarge,
		Type:      ErrorTypePermanent,
		Retryable: false,
	}
}

// GeometryError reports a logical address, column or length outside the
// configured geometry. Addresses are never wrapped or truncated to fit; the
// offending coordinate is reported instead. It wraps ErrOutOfRange.
type GeometryError struct {
	Op    string // operation that rejected the request
	Field string // coordinate that was out of range
	Value int64
	Limit int64 // exclusive upper bound
}

// Error implements the error interface
func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s: %s %d outside [0, %d)", e.Op, e.Field, e.Value, e.Limit)
}

// Unwrap returns ErrOutOfRange so callers can match with errors.Is
func (*GeometryError) Unwrap() error {
	return ErrOutOfRange
}

func newGeometryError(op, field string, value, limit int64) *GeometryError {
	return &GeometryError{Op: op, Field: field, Value: value, Limit: limit}
}

// IsRetryable reports whether an operation that failed with err is worth
// retrying. Transport errors carry their own retryable flag; sentinel
// errors are classified by kind.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrBusyTimeout):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err. Unknown errors are
// treated as permanent.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrBusyTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrCommunicationFailed):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
