package sys

import "unsafe"

// Opaque native handles. A zero handle is the null handle.
type (
	// Device is a native OIDNDevice handle.
	Device uintptr
	// Buffer is a native OIDNBuffer handle.
	Buffer uintptr
	// Filter is a native OIDNFilter handle.
	Filter uintptr
)

// DeviceType selects the compute device an engine instance runs on.
type DeviceType int32

const (
	DeviceTypeDefault DeviceType = 0
	DeviceTypeCPU     DeviceType = 1
	DeviceTypeSYCL    DeviceType = 2
	DeviceTypeCUDA    DeviceType = 3
	DeviceTypeHIP     DeviceType = 4
	DeviceTypeMetal   DeviceType = 5
)

// String returns the lowercase name used by logs and panic messages.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeDefault:
		return "default"
	case DeviceTypeCPU:
		return "cpu"
	case DeviceTypeSYCL:
		return "sycl"
	case DeviceTypeCUDA:
		return "cuda"
	case DeviceTypeHIP:
		return "hip"
	case DeviceTypeMetal:
		return "metal"
	default:
		return "unknown"
	}
}

// Format describes the element layout of an image or buffer binding.
type Format int32

const (
	FormatUndefined Format = 0
	FormatFloat     Format = 1
	FormatFloat2    Format = 2
	FormatFloat3    Format = 3
	FormatFloat4    Format = 4
)

// Error is a native error code as reported by oidnGetDeviceError.
type Error int32

const (
	ErrorNone                Error = 0
	ErrorUnknown             Error = 1
	ErrorInvalidArgument     Error = 2
	ErrorInvalidOperation    Error = 3
	ErrorOutOfMemory         Error = 4
	ErrorUnsupportedHardware Error = 5
	ErrorCanceled            Error = 6
)

// Quality is a native filter quality level.
type Quality int32

const (
	QualityDefault  Quality = 0
	QualityBalanced Quality = 5
	QualityHigh     Quality = 6
)

// Native symbols, bound by Load. Each variable corresponds to the
// libOpenImageDenoise export of the same name with the oidn prefix.
// Tests may bind the whole table to an in-memory engine before the first
// Load call; Load then leaves the table untouched.
var (
	NewDevice      func(kind DeviceType) Device
	CommitDevice   func(dev Device)
	RetainDevice   func(dev Device)
	ReleaseDevice  func(dev Device)
	GetDeviceError func(dev Device, msg **byte) Error

	NewBuffer     func(dev Device, byteSize uintptr) Buffer
	GetBufferSize func(buf Buffer) uintptr
	ReadBuffer    func(buf Buffer, byteOffset, byteSize uintptr, dst unsafe.Pointer)
	WriteBuffer   func(buf Buffer, byteOffset, byteSize uintptr, src unsafe.Pointer)
	ReleaseBuffer func(buf Buffer)

	NewFilter         func(dev Device, kind string) Filter
	SetFilterImage    func(f Filter, name string, buf Buffer, format Format, width, height, byteOffset, pixelStride, rowStride uintptr)
	RemoveFilterImage func(f Filter, name string)
	SetFilterBool  func(f Filter, name string, value bool)
	SetFilterInt   func(f Filter, name string, value int32)
	SetFilterFloat func(f Filter, name string, value float32)
	CommitFilter   func(f Filter)
	ExecuteFilter  func(f Filter)
	ReleaseFilter  func(f Filter)
)

// procs maps exported symbol names to the function variables above.
var procs = []struct {
	name string
	fn   any
}{
	{"oidnNewDevice", &NewDevice},
	{"oidnCommitDevice", &CommitDevice},
	{"oidnRetainDevice", &RetainDevice},
	{"oidnReleaseDevice", &ReleaseDevice},
	{"oidnGetDeviceError", &GetDeviceError},
	{"oidnNewBuffer", &NewBuffer},
	{"oidnGetBufferSize", &GetBufferSize},
	{"oidnReadBuffer", &ReadBuffer},
	{"oidnWriteBuffer", &WriteBuffer},
	{"oidnReleaseBuffer", &ReleaseBuffer},
	{"oidnNewFilter", &NewFilter},
	{"oidnSetFilterImage", &SetFilterImage},
	{"oidnRemoveFilterImage", &RemoveFilterImage},
	{"oidnSetFilterBool", &SetFilterBool},
	{"oidnSetFilterInt", &SetFilterInt},
	{"oidnSetFilterFloat", &SetFilterFloat},
	{"oidnCommitFilter", &CommitFilter},
	{"oidnExecuteFilter", &ExecuteFilter},
	{"oidnReleaseFilter", &ReleaseFilter},
}

// GoString copies a NUL-terminated C string into a Go string.
// Returns "" for a nil pointer.
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
