package oidn

import (
	"unsafe"

	"github.com/gogpu/oidn/sys"
)

// Buffer is a region of native memory holding float32 pixel data, bound
// to the Device that created it. A Buffer retains its Device's native
// handle for its whole lifetime, so the order of Close calls between a
// Buffer and its Device does not matter.
type Buffer struct {
	handle sys.Buffer
	size   int
	dev    *Device    // identity token for same-device checks
	devRef sys.Device // native reference held until Close
}

// NewBuffer allocates native memory sized to data and copies data into
// it. It returns ErrOutOfMemory when the engine cannot allocate, which is
// an expected, recoverable condition.
func (d *Device) NewBuffer(data []float32) (*Buffer, error) {
	byteSize := uintptr(len(data)) * 4
	h := sys.NewBuffer(d.handle, byteSize)
	if h == 0 {
		return nil, ErrOutOfMemory
	}
	if len(data) > 0 {
		sys.WriteBuffer(h, 0, byteSize, unsafe.Pointer(&data[0]))
	}
	sys.RetainDevice(d.handle)
	return &Buffer{handle: h, size: len(data), dev: d, devRef: d.handle}, nil
}

// NewBufferFromRaw wraps a pre-existing native buffer handle. The handle
// must be valid and must have been created by this device; the caller
// keeps responsibility for both. The logical element count is derived
// from the buffer's native byte size.
func (d *Device) NewBufferFromRaw(h sys.Buffer) *Buffer {
	size := int(sys.GetBufferSize(h) / 4)
	sys.RetainDevice(d.handle)
	return &Buffer{handle: h, size: size, dev: d, devRef: d.handle}
}

// Write overwrites the full buffer contents. It returns ErrSizeMismatch
// when the slice length differs from the buffer's element count; the
// count is fixed at creation and never changes.
func (b *Buffer) Write(data []float32) error {
	if len(data) != b.size {
		return ErrSizeMismatch
	}
	if b.size > 0 {
		sys.WriteBuffer(b.handle, 0, uintptr(b.size)*4, unsafe.Pointer(&data[0]))
	}
	return nil
}

// Read copies the buffer contents into a freshly allocated slice.
func (b *Buffer) Read() []float32 {
	out := make([]float32, b.size)
	if b.size > 0 {
		sys.ReadBuffer(b.handle, 0, uintptr(b.size)*4, unsafe.Pointer(&out[0]))
	}
	return out
}

// ReadInto copies the buffer contents into out, avoiding an allocation.
// It returns ErrSizeMismatch when the lengths differ.
func (b *Buffer) ReadInto(out []float32) error {
	if len(out) != b.size {
		return ErrSizeMismatch
	}
	if b.size > 0 {
		sys.ReadBuffer(b.handle, 0, uintptr(b.size)*4, unsafe.Pointer(&out[0]))
	}
	return nil
}

// Size returns the logical element count (float32 values, not bytes).
func (b *Buffer) Size() int {
	return b.size
}

// Raw returns the native buffer handle. The handle must not be released
// through the raw API while this Buffer is in use.
func (b *Buffer) Raw() sys.Buffer {
	return b.handle
}

// Close releases the native buffer and the device reference it holds.
// The first call releases exactly once; further calls are no-ops.
func (b *Buffer) Close() error {
	if b.handle == 0 {
		return nil
	}
	sys.ReleaseBuffer(b.handle)
	sys.ReleaseDevice(b.devRef)
	b.handle = 0
	b.devRef = 0
	return nil
}
