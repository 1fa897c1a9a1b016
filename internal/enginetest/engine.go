// Package enginetest binds the sys symbol table to a pure-Go engine so
// the package tests run without libOpenImageDenoise.
//
// The engine implements the subset of native behavior the bindings rely
// on: handle allocation, reference counts, buffer storage, filter
// parameter staging and a denoise pass that copies the color image to
// the output image unchanged. Contract violations the native library
// would turn into undefined behavior (double release, use of an unknown
// handle) panic instead so tests fail loudly.
package enginetest

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/oidn/sys"
)

// Engine is an in-memory stand-in for the native denoising engine.
// Not safe for concurrent use, matching the serialization requirement of
// the real engine.
type Engine struct {
	nextHandle uintptr

	devices map[sys.Device]*deviceState
	buffers map[sys.Buffer]*bufferState
	filters map[sys.Filter]*filterState

	// Unavailable lists device types for which creation returns a null
	// handle, emulating absent hardware or drivers.
	Unavailable map[sys.DeviceType]bool

	// FailNextBufferAlloc makes the next buffer creation return a null
	// handle, emulating native out-of-memory.
	FailNextBufferAlloc bool

	// FailNextFilterAlloc makes the next filter creation return a null
	// handle, emulating native out-of-memory.
	FailNextFilterAlloc bool

	// ExecuteError, when not ErrorNone, is recorded on the filter's
	// device by the next execution instead of running the pass.
	ExecuteError    sys.Error
	ExecuteErrorMsg string

	// Counters observed by tests.
	DeviceCommits int
	BufferAllocs  int
	FilterCommits int
	Executes      int

	// LastExecute captures the native state staged for the most recent
	// execution.
	LastExecute ExecuteRecord
}

// ExecuteRecord is a snapshot of the filter state at execution time.
type ExecuteRecord struct {
	Images map[string]ImageBinding
	Bools  map[string]bool
	Ints   map[string]int32
	Floats map[string]float32
}

// ImageBinding records one staged image parameter.
type ImageBinding struct {
	Buffer        sys.Buffer
	Format        sys.Format
	Width, Height uintptr
}

type deviceState struct {
	kind      sys.DeviceType
	refs      int
	committed bool
	err       sys.Error
	errMsg    []byte // NUL-terminated, stays alive for GetDeviceError
}

type bufferState struct {
	dev      sys.Device
	data     []byte
	released bool
}

type filterState struct {
	dev      sys.Device
	kind     string
	released bool
	images   map[string]ImageBinding
	bools    map[string]bool
	ints     map[string]int32
	floats   map[string]float32
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		nextHandle:  1,
		devices:     map[sys.Device]*deviceState{},
		buffers:     map[sys.Buffer]*bufferState{},
		filters:     map[sys.Filter]*filterState{},
		Unavailable: map[sys.DeviceType]bool{},
	}
}

// Install binds every sys symbol to e. Installing before the first
// device is created makes sys.Load a no-op, so tests never touch the
// real shared library. Tests run sequentially per package, so rebinding
// per test is fine.
func Install(e *Engine) {
	sys.NewDevice = e.newDevice
	sys.CommitDevice = e.commitDevice
	sys.RetainDevice = e.retainDevice
	sys.ReleaseDevice = e.releaseDevice
	sys.GetDeviceError = e.getDeviceError
	sys.NewBuffer = e.newBuffer
	sys.GetBufferSize = e.getBufferSize
	sys.ReadBuffer = e.readBuffer
	sys.WriteBuffer = e.writeBuffer
	sys.ReleaseBuffer = e.releaseBuffer
	sys.NewFilter = e.newFilter
	sys.SetFilterImage = e.setFilterImage
	sys.RemoveFilterImage = e.removeFilterImage
	sys.SetFilterBool = e.setFilterBool
	sys.SetFilterInt = e.setFilterInt
	sys.SetFilterFloat = e.setFilterFloat
	sys.CommitFilter = e.commitFilter
	sys.ExecuteFilter = e.executeFilter
	sys.ReleaseFilter = e.releaseFilter
}

// SetDeviceError injects a deferred error on a device, as the native
// engine would after a failed internal operation.
func (e *Engine) SetDeviceError(dev sys.Device, code sys.Error, msg string) {
	ds := e.device(dev)
	ds.err = code
	ds.errMsg = append([]byte(msg), 0)
}

// LiveDevices returns the number of devices with outstanding references.
func (e *Engine) LiveDevices() int {
	n := 0
	for _, ds := range e.devices {
		if ds.refs > 0 {
			n++
		}
	}
	return n
}

// LiveBuffers returns the number of unreleased buffers.
func (e *Engine) LiveBuffers() int {
	n := 0
	for _, bs := range e.buffers {
		if !bs.released {
			n++
		}
	}
	return n
}

// LiveFilters returns the number of unreleased filters.
func (e *Engine) LiveFilters() int {
	n := 0
	for _, fs := range e.filters {
		if !fs.released {
			n++
		}
	}
	return n
}

// BufferData returns a copy of a buffer's contents as float32 values.
func (e *Engine) BufferData(buf sys.Buffer) []float32 {
	bs := e.buffer(buf)
	out := make([]float32, len(bs.data)/4)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out))), len(bs.data)), bs.data)
	return out
}

func (e *Engine) handle() uintptr {
	h := e.nextHandle
	e.nextHandle++
	return h
}

func (e *Engine) device(dev sys.Device) *deviceState {
	ds, ok := e.devices[dev]
	if !ok {
		panic(fmt.Sprintf("enginetest: unknown device handle %#x", uintptr(dev)))
	}
	return ds
}

func (e *Engine) buffer(buf sys.Buffer) *bufferState {
	bs, ok := e.buffers[buf]
	if !ok {
		panic(fmt.Sprintf("enginetest: unknown buffer handle %#x", uintptr(buf)))
	}
	return bs
}

func (e *Engine) filter(f sys.Filter) *filterState {
	fs, ok := e.filters[f]
	if !ok {
		panic(fmt.Sprintf("enginetest: unknown filter handle %#x", uintptr(f)))
	}
	return fs
}

func (e *Engine) newDevice(kind sys.DeviceType) sys.Device {
	if e.Unavailable[kind] {
		return 0
	}
	h := sys.Device(e.handle())
	e.devices[h] = &deviceState{kind: kind, refs: 1}
	return h
}

func (e *Engine) commitDevice(dev sys.Device) {
	e.device(dev).committed = true
	e.DeviceCommits++
}

func (e *Engine) retainDevice(dev sys.Device) {
	ds := e.device(dev)
	if ds.refs <= 0 {
		panic("enginetest: retain of destroyed device")
	}
	ds.refs++
}

func (e *Engine) releaseDevice(dev sys.Device) {
	ds := e.device(dev)
	if ds.refs <= 0 {
		panic("enginetest: release of destroyed device")
	}
	ds.refs--
}

func (e *Engine) getDeviceError(dev sys.Device, msg **byte) sys.Error {
	ds := e.device(dev)
	if ds.err == sys.ErrorNone {
		if msg != nil {
			*msg = nil
		}
		return sys.ErrorNone
	}
	if msg != nil {
		*msg = &ds.errMsg[0]
	}
	return ds.err
}

func (e *Engine) newBuffer(dev sys.Device, byteSize uintptr) sys.Buffer {
	ds := e.device(dev)
	if !ds.committed {
		panic("enginetest: buffer created on uncommitted device")
	}
	if e.FailNextBufferAlloc {
		e.FailNextBufferAlloc = false
		return 0
	}
	e.BufferAllocs++
	h := sys.Buffer(e.handle())
	e.buffers[h] = &bufferState{dev: dev, data: make([]byte, byteSize)}
	return h
}

func (e *Engine) getBufferSize(buf sys.Buffer) uintptr {
	return uintptr(len(e.buffer(buf).data))
}

func (e *Engine) readBuffer(buf sys.Buffer, byteOffset, byteSize uintptr, dst unsafe.Pointer) {
	bs := e.buffer(buf)
	if bs.released {
		panic("enginetest: read of released buffer")
	}
	copy(unsafe.Slice((*byte)(dst), byteSize), bs.data[byteOffset:byteOffset+byteSize])
}

func (e *Engine) writeBuffer(buf sys.Buffer, byteOffset, byteSize uintptr, src unsafe.Pointer) {
	bs := e.buffer(buf)
	if bs.released {
		panic("enginetest: write to released buffer")
	}
	copy(bs.data[byteOffset:byteOffset+byteSize], unsafe.Slice((*byte)(src), byteSize))
}

func (e *Engine) releaseBuffer(buf sys.Buffer) {
	bs := e.buffer(buf)
	if bs.released {
		panic("enginetest: double release of buffer")
	}
	bs.released = true
}

func (e *Engine) newFilter(dev sys.Device, kind string) sys.Filter {
	if e.FailNextFilterAlloc {
		e.FailNextFilterAlloc = false
		return 0
	}
	e.retainDevice(dev)
	h := sys.Filter(e.handle())
	e.filters[h] = &filterState{
		dev:    dev,
		kind:   kind,
		images: map[string]ImageBinding{},
		bools:  map[string]bool{},
		ints:   map[string]int32{},
		floats: map[string]float32{},
	}
	return h
}

func (e *Engine) setFilterImage(f sys.Filter, name string, buf sys.Buffer, format sys.Format, width, height, byteOffset, pixelStride, rowStride uintptr) {
	fs := e.filter(f)
	fs.images[name] = ImageBinding{Buffer: buf, Format: format, Width: width, Height: height}
}

func (e *Engine) removeFilterImage(f sys.Filter, name string) {
	delete(e.filter(f).images, name)
}

func (e *Engine) setFilterBool(f sys.Filter, name string, value bool) {
	e.filter(f).bools[name] = value
}

func (e *Engine) setFilterInt(f sys.Filter, name string, value int32) {
	e.filter(f).ints[name] = value
}

func (e *Engine) setFilterFloat(f sys.Filter, name string, value float32) {
	e.filter(f).floats[name] = value
}

func (e *Engine) commitFilter(f sys.Filter) {
	e.filter(f)
	e.FilterCommits++
}

func (e *Engine) executeFilter(f sys.Filter) {
	fs := e.filter(f)
	e.Executes++
	e.LastExecute = snapshot(fs)

	ds := e.device(fs.dev)
	if e.ExecuteError != sys.ErrorNone {
		ds.err = e.ExecuteError
		ds.errMsg = append([]byte(e.ExecuteErrorMsg), 0)
		e.ExecuteError = sys.ErrorNone
		return
	}
	// The next native operation clears the recorded error.
	ds.err = sys.ErrorNone

	color, ok := fs.images["color"]
	if !ok {
		ds.err = sys.ErrorInvalidOperation
		ds.errMsg = append([]byte("no color image"), 0)
		return
	}
	output, ok := fs.images["output"]
	if !ok {
		ds.err = sys.ErrorInvalidOperation
		ds.errMsg = append([]byte("no output image"), 0)
		return
	}
	// Identity denoiser: the pass preserves shape and values.
	copy(e.buffer(output.Buffer).data, e.buffer(color.Buffer).data)
}

func (e *Engine) releaseFilter(f sys.Filter) {
	fs := e.filter(f)
	if fs.released {
		panic("enginetest: double release of filter")
	}
	fs.released = true
	// Filters hold an internal device reference from creation.
	e.releaseDevice(fs.dev)
}

func snapshot(fs *filterState) ExecuteRecord {
	rec := ExecuteRecord{
		Images: map[string]ImageBinding{},
		Bools:  map[string]bool{},
		Ints:   map[string]int32{},
		Floats: map[string]float32{},
	}
	for k, v := range fs.images {
		rec.Images[k] = v
	}
	for k, v := range fs.bools {
		rec.Bools[k] = v
	}
	for k, v := range fs.ints {
		rec.Ints[k] = v
	}
	for k, v := range fs.floats {
		rec.Floats[k] = v
	}
	return rec
}
