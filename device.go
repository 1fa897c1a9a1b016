package oidn

import (
	"fmt"

	"github.com/gogpu/oidn/sys"
)

// Device is a denoising engine instance bound to a compute device
// (CPU or accelerator). Buffers and filters are created from a Device
// and must only be combined with resources from the same Device.
//
// All operations on a Device and its dependent resources are thread-safe
// only under serialized access: a Device may be handed from one goroutine
// to another, but concurrent calls require external locking.
//
// A Device must be released with Close when no longer needed. Buffers and
// filters hold their own native reference to the device, so closing a
// Device before its dependents is safe; the native device is destroyed
// when the last reference is released.
type Device struct {
	handle sys.Device
}

// NewDevice creates a device using the fastest device type available.
// It panics if the engine library cannot be loaded or the allocation
// fails, which indicates a broken installation rather than a recoverable
// condition. Use the accelerator-specific factories for probing.
func NewDevice() *Device {
	return mustDevice(sys.DeviceTypeDefault)
}

// NewCPUDevice creates a device that denoises on the CPU.
// Like NewDevice it panics if the engine itself is unusable.
func NewCPUDevice() *Device {
	return mustDevice(sys.DeviceTypeCPU)
}

// NewSYCLDevice creates a SYCL device, or returns ErrDeviceNotAvailable
// when hardware or driver support is absent.
func NewSYCLDevice() (*Device, error) {
	return newDevice(sys.DeviceTypeSYCL)
}

// NewCUDADevice creates a CUDA device, or returns ErrDeviceNotAvailable
// when hardware or driver support is absent.
func NewCUDADevice() (*Device, error) {
	return newDevice(sys.DeviceTypeCUDA)
}

// NewHIPDevice creates a HIP device, or returns ErrDeviceNotAvailable
// when hardware or driver support is absent.
func NewHIPDevice() (*Device, error) {
	return newDevice(sys.DeviceTypeHIP)
}

// NewMetalDevice creates a Metal device, or returns ErrDeviceNotAvailable
// when hardware or driver support is absent.
func NewMetalDevice() (*Device, error) {
	return newDevice(sys.DeviceTypeMetal)
}

func mustDevice(kind sys.DeviceType) *Device {
	d, err := newDevice(kind)
	if err != nil {
		panic(fmt.Sprintf("oidn: creating %s device: %v", kind, err))
	}
	return d
}

func newDevice(kind sys.DeviceType) (*Device, error) {
	if err := sys.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceNotAvailable, err)
	}
	h := sys.NewDevice(kind)
	if h == 0 {
		return nil, ErrDeviceNotAvailable
	}
	// A device must be committed before any resource is created on it.
	// Committing here means an uncommitted device is never observable.
	sys.CommitDevice(h)
	Logger().Info("oidn: device created", "type", kind.String())
	return &Device{handle: h}, nil
}

// FromRawDevice wraps a native device handle obtained through another
// path. The handle must be valid, committed, and not released while the
// returned Device or any of its dependents is in use; the caller keeps
// full responsibility for those contracts. Close releases the handle as
// usual.
func FromRawDevice(h sys.Device) *Device {
	return &Device{handle: h}
}

// Raw returns the native device handle. The handle must not be released
// through the raw API while this Device is in use.
func (d *Device) Raw() sys.Device {
	return d.handle
}

// Err polls the most recent error recorded by the native engine.
// It returns nil or a *DeviceError.
//
// The engine reports failures of commit and execute through this poll
// rather than through the triggering call, so Err should be checked after
// every filter execution. Polling does not clear the recorded error; the
// next native operation does.
func (d *Device) Err() error {
	var msg *byte
	code := sys.GetDeviceError(d.handle, &msg)
	if code == sys.ErrorNone {
		return nil
	}
	return &DeviceError{Kind: ErrorKind(code), Message: sys.GoString(msg)}
}

// Close releases the native device handle. The first call releases
// exactly once; further calls are no-ops. Dependent buffers and filters
// stay valid until they are closed themselves.
func (d *Device) Close() error {
	if d.handle == 0 {
		return nil
	}
	sys.ReleaseDevice(d.handle)
	d.handle = 0
	return nil
}
