package oidn

import (
	"errors"
	"fmt"
)

// Package errors. Validation failures are detected before any native call
// and returned from the operation itself; errors the engine can only report
// after the fact surface as a *DeviceError from Device.Err.
var (
	// ErrInvalidImageDimensions is returned when a color, output or
	// auxiliary image's element count does not equal 3*width*height.
	ErrInvalidImageDimensions = errors.New("oidn: image does not match configured dimensions")

	// ErrInvalidArgument is returned when a buffer created by a different
	// device is supplied to a filter.
	ErrInvalidArgument = errors.New("oidn: invalid argument")

	// ErrOutOfMemory is returned when the engine cannot allocate native
	// memory for a buffer. This is a recoverable condition.
	ErrOutOfMemory = errors.New("oidn: native buffer allocation failed")

	// ErrSizeMismatch is returned by Buffer.Write and Buffer.ReadInto when
	// the slice length differs from the buffer's element count.
	ErrSizeMismatch = errors.New("oidn: slice length does not match buffer size")

	// ErrDeviceNotAvailable is returned by accelerator device factories
	// when the hardware, driver or library support is absent.
	ErrDeviceNotAvailable = errors.New("oidn: device type not available on this system")
)

// ErrorKind classifies errors recorded by the native engine and retrieved
// through Device.Err.
type ErrorKind uint32

const (
	// ErrorNone means no error was recorded.
	ErrorNone ErrorKind = iota

	// ErrorUnknown is an unspecified engine failure.
	ErrorUnknown

	// ErrorInvalidArgument means an invalid argument reached the engine.
	ErrorInvalidArgument

	// ErrorInvalidOperation means an operation was attempted in an
	// invalid state (e.g. executing an uncommitted filter).
	ErrorInvalidOperation

	// ErrorOutOfMemory means the engine ran out of memory during an
	// operation, typically the denoise pass itself.
	ErrorOutOfMemory

	// ErrorUnsupportedHardware means the hardware or image format is not
	// supported by the engine.
	ErrorUnsupportedHardware

	// ErrorCanceled means the operation was canceled by the engine.
	ErrorCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorUnknown:
		return "unknown error"
	case ErrorInvalidArgument:
		return "invalid argument"
	case ErrorInvalidOperation:
		return "invalid operation"
	case ErrorOutOfMemory:
		return "out of memory"
	case ErrorUnsupportedHardware:
		return "unsupported hardware"
	case ErrorCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("error kind %d", uint32(k))
	}
}

// DeviceError is an error the native engine recorded during an earlier
// operation, observed by polling Device.Err. The engine keeps only the
// most recent error; it is never returned by the call that caused it.
type DeviceError struct {
	Kind    ErrorKind
	Message string
}

func (e *DeviceError) Error() string {
	if e.Message == "" {
		return "oidn: " + e.Kind.String()
	}
	return fmt.Sprintf("oidn: %s: %s", e.Kind, e.Message)
}
