package oidn

import (
	"errors"
	"testing"

	"github.com/gogpu/oidn/internal/enginetest"
	"github.com/gogpu/oidn/sys"
)

// newTestEngine installs a fresh in-memory engine for the duration of a
// test. sys.Load becomes a no-op once the symbol table is bound.
func newTestEngine(t *testing.T) *enginetest.Engine {
	t.Helper()
	e := enginetest.New()
	enginetest.Install(e)
	return e
}

func TestNewDeviceCommitsBeforeReturn(t *testing.T) {
	e := newTestEngine(t)

	d := NewDevice()
	defer d.Close()

	if e.DeviceCommits != 1 {
		t.Fatalf("DeviceCommits = %d, want 1", e.DeviceCommits)
	}
	if d.Raw() == 0 {
		t.Fatal("NewDevice returned a null handle")
	}
}

func TestNewCPUDevice(t *testing.T) {
	e := newTestEngine(t)

	d := NewCPUDevice()
	defer d.Close()

	if e.DeviceCommits != 1 {
		t.Fatalf("DeviceCommits = %d, want 1", e.DeviceCommits)
	}
}

func TestAcceleratorDeviceAbsent(t *testing.T) {
	e := newTestEngine(t)
	e.Unavailable[sys.DeviceTypeCUDA] = true
	e.Unavailable[sys.DeviceTypeMetal] = true

	if _, err := NewCUDADevice(); !errors.Is(err, ErrDeviceNotAvailable) {
		t.Errorf("NewCUDADevice() error = %v, want ErrDeviceNotAvailable", err)
	}
	if _, err := NewMetalDevice(); !errors.Is(err, ErrDeviceNotAvailable) {
		t.Errorf("NewMetalDevice() error = %v, want ErrDeviceNotAvailable", err)
	}
}

func TestAcceleratorDevicePresent(t *testing.T) {
	e := newTestEngine(t)

	d, err := NewSYCLDevice()
	if err != nil {
		t.Fatalf("NewSYCLDevice() = %v", err)
	}
	defer d.Close()

	if e.DeviceCommits != 1 {
		t.Errorf("DeviceCommits = %d, want 1", e.DeviceCommits)
	}
}

func TestDeviceErrPolling(t *testing.T) {
	e := newTestEngine(t)

	d := NewDevice()
	defer d.Close()

	if err := d.Err(); err != nil {
		t.Fatalf("Err() on fresh device = %v, want nil", err)
	}

	e.SetDeviceError(d.Raw(), sys.ErrorOutOfMemory, "allocation failed")

	err := d.Err()
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Err() = %v (%T), want *DeviceError", err, err)
	}
	if devErr.Kind != ErrorOutOfMemory {
		t.Errorf("Kind = %v, want ErrorOutOfMemory", devErr.Kind)
	}
	if devErr.Message != "allocation failed" {
		t.Errorf("Message = %q, want %q", devErr.Message, "allocation failed")
	}

	// Polling does not clear the recorded error.
	if err := d.Err(); err == nil {
		t.Error("second Err() poll = nil, want the same error")
	}
}

func TestDeviceCloseExactlyOnce(t *testing.T) {
	e := newTestEngine(t)

	d := NewDevice()
	if err := d.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	// Second close must be a no-op, not a double release (the engine
	// panics on one).
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if got := e.LiveDevices(); got != 0 {
		t.Errorf("LiveDevices() = %d, want 0", got)
	}
}

func TestFromRawDevice(t *testing.T) {
	e := newTestEngine(t)

	d := NewDevice()
	raw := d.Raw()

	wrapped := FromRawDevice(raw)
	if wrapped.Raw() != raw {
		t.Fatalf("Raw() = %#x, want %#x", uintptr(wrapped.Raw()), uintptr(raw))
	}
	if err := wrapped.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	// Only one of the two wrappers may release the handle.
	if err := d.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if got := e.LiveDevices(); got != 0 {
		t.Errorf("LiveDevices() = %d, want 0", got)
	}
}
