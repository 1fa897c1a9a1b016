package oidn

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/oidn/sys"
)

// Quality selects the performance/quality tradeoff of the denoise pass.
type Quality int32

const (
	// QualityDefault lets the engine pick (currently high).
	QualityDefault Quality = Quality(sys.QualityDefault)

	// QualityBalanced lowers precision where the device supports it.
	// Recommended for real-time use; on devices without support the
	// result and performance match QualityHigh.
	QualityBalanced Quality = Quality(sys.QualityBalanced)

	// QualityHigh is the highest quality the engine offers.
	QualityHigh Quality = Quality(sys.QualityHigh)
)

// RayTracing is a denoising filter for images produced with Monte Carlo
// ray tracing methods such as path tracing.
//
// A filter is bound to one Device for its whole lifetime and retains the
// device's native handle until Close. Configuration calls only mutate
// local state; the native filter is (re)committed by each execution call,
// so configuration and execution may be interleaved freely and the filter
// reused across frames.
//
// Errors of the denoise pass itself are deferred: every execution call
// should be followed by polling Device.Err.
type RayTracing struct {
	handle sys.Filter
	dev    *Device
	devRef sys.Device

	albedo     *Buffer
	normal     *Buffer
	ownsAlbedo bool
	ownsNormal bool

	hdr        bool
	srgb       bool
	cleanAux   bool
	inputScale float32
	quality    Quality

	width, height int
	elems         int // 3 * width * height

	// stageErr records an allocation failure from a fluent setter. It is
	// surfaced by execution calls and cleared again once a later staging
	// succeeds.
	stageErr error
}

// NewRayTracing creates a ray-tracing denoising filter on the given
// device. The returned filter must be released with Close.
//
// If the engine fails to allocate the filter, the returned filter is
// inert: execution calls fail with ErrOutOfMemory without touching the
// engine, and details are available from Device.Err.
func NewRayTracing(d *Device) *RayTracing {
	sys.RetainDevice(d.handle)
	h := sys.NewFilter(d.handle, "RT")
	devRef := d.handle
	if h == 0 {
		// No filter exists to hold the reference.
		sys.ReleaseDevice(devRef)
		devRef = 0
	}
	return &RayTracing{
		handle:     h,
		dev:        d,
		devRef:     devRef,
		inputScale: float32(math.NaN()),
	}
}

// SetQuality sets the quality of the output. The engine default is high.
func (f *RayTracing) SetQuality(q Quality) *RayTracing {
	f.quality = q
	return f
}

// SetHDR sets whether the color image is HDR.
func (f *RayTracing) SetHDR(hdr bool) *RayTracing {
	f.hdr = hdr
	return f
}

// SetSRGB sets whether the color image is encoded with the sRGB (or 2.2
// gamma) curve rather than linear. LDR only; the output uses the same
// encoding.
func (f *RayTracing) SetSRGB(srgb bool) *RayTracing {
	f.srgb = srgb
	return f
}

// SetCleanAux sets whether the auxiliary albedo and normal images are
// noise-free. Recommended for highest quality, but must not be enabled
// for noisy auxiliary images to avoid residual noise.
func (f *RayTracing) SetCleanAux(cleanAux bool) *RayTracing {
	f.cleanAux = cleanAux
	return f
}

// SetInputScale sets a scale applied to input values before filtering,
// without scaling the output. This can map HDR values to physical units,
// which affects the quality but not the range of the output. When unset
// the scale is computed implicitly for HDR images or set to 1 otherwise.
func (f *RayTracing) SetInputScale(scale float32) *RayTracing {
	f.inputScale = scale
	return f
}

// SetImageDimensions sets the pixel dimensions of the images to denoise.
// Images are 3-channel interleaved float32, row-major, so the expected
// element count is 3*width*height. Any staged auxiliary buffer whose size
// no longer matches is evicted so stale data cannot reach the engine
// after a resolution change.
func (f *RayTracing) SetImageDimensions(width, height int) *RayTracing {
	elems := 3 * width * height
	if f.albedo != nil && f.albedo.size != elems {
		f.dropAlbedo()
	}
	if f.normal != nil && f.normal.size != elems {
		f.dropNormal()
	}
	f.width, f.height, f.elems = width, height, elems
	return f
}

// SetAlbedo stages an auxiliary image containing the per-pixel albedo
// (three channels, values in [0, 1]).
//
// If an albedo buffer of the same size is already staged and owned by the
// filter, its contents are overwritten in place; otherwise a new native
// buffer is allocated. An allocation failure is remembered and returned
// by execution calls until a later staging succeeds.
func (f *RayTracing) SetAlbedo(albedo []float32) *RayTracing {
	f.stageAux(&f.albedo, &f.ownsAlbedo, albedo, "albedo")
	return f
}

// SetAlbedoNormal stages auxiliary images containing the per-pixel albedo
// and shading normal. The normal image holds world-space or view-space
// vectors of arbitrary length as three channels per pixel, values in
// [-1, 1]. A normal image is only ever sent to the engine together with
// an albedo image.
func (f *RayTracing) SetAlbedoNormal(albedo, normal []float32) *RayTracing {
	f.stageAux(&f.albedo, &f.ownsAlbedo, albedo, "albedo")
	f.stageAux(&f.normal, &f.ownsNormal, normal, "normal")
	return f
}

// SetAlbedoBuffer stages a caller-owned albedo Buffer instead of a slice.
// The buffer must have been created by this filter's device; otherwise
// ErrInvalidArgument is returned and nothing is staged. Ownership stays
// with the caller: Close on the filter will not release the buffer.
func (f *RayTracing) SetAlbedoBuffer(albedo *Buffer) error {
	if albedo.dev != f.dev {
		return fmt.Errorf("%w: albedo buffer created by a different device", ErrInvalidArgument)
	}
	f.dropAlbedo()
	f.albedo, f.ownsAlbedo = albedo, false
	f.stageErr = nil
	return nil
}

// SetAlbedoNormalBuffers stages caller-owned albedo and normal Buffers.
// Both must have been created by this filter's device; otherwise
// ErrInvalidArgument is returned and nothing is staged.
func (f *RayTracing) SetAlbedoNormalBuffers(albedo, normal *Buffer) error {
	if albedo.dev != f.dev {
		return fmt.Errorf("%w: albedo buffer created by a different device", ErrInvalidArgument)
	}
	if normal.dev != f.dev {
		return fmt.Errorf("%w: normal buffer created by a different device", ErrInvalidArgument)
	}
	f.dropAlbedo()
	f.dropNormal()
	f.albedo, f.ownsAlbedo = albedo, false
	f.normal, f.ownsNormal = normal, false
	f.stageErr = nil
	return nil
}

// stageAux implements the reuse-or-reallocate policy for auxiliary
// images: an owned buffer of matching size is overwritten in place to
// avoid a native allocation per frame.
func (f *RayTracing) stageAux(slot **Buffer, owned *bool, data []float32, name string) {
	if buf := *slot; buf != nil && *owned && buf.size == len(data) {
		// Sizes match, Write cannot fail.
		_ = buf.Write(data)
		f.stageErr = nil
		return
	}
	buf, err := f.dev.NewBuffer(data)
	if err != nil {
		f.stageErr = fmt.Errorf("oidn: staging %s image: %w", name, err)
		return
	}
	if *slot != nil && *owned {
		_ = (*slot).Close()
	}
	*slot, *owned = buf, true
	f.stageErr = nil
}

func (f *RayTracing) dropAlbedo() {
	if f.albedo != nil && f.ownsAlbedo {
		_ = f.albedo.Close()
	}
	f.albedo, f.ownsAlbedo = nil, false
}

func (f *RayTracing) dropNormal() {
	if f.normal != nil && f.ownsNormal {
		_ = f.normal.Close()
	}
	f.normal, f.ownsNormal = nil, false
}

// Filter denoises color into output. The color slice is copied into a
// transient native buffer, the pass runs, and the result is copied back
// into output. Both slices must hold exactly 3*width*height elements.
func (f *RayTracing) Filter(color []float32, output []float32) error {
	return f.filterSlices(color, output)
}

// FilterInPlace denoises color in place, using one native buffer as both
// input and output.
func (f *RayTracing) FilterInPlace(color []float32) error {
	return f.filterSlices(nil, color)
}

// FilterBuffer denoises color into output operating directly on
// device-resident Buffers with no intermediate copy. Both buffers must
// have been created by this filter's device.
func (f *RayTracing) FilterBuffer(color, output *Buffer) error {
	return f.filterBuffers(color, output)
}

// FilterInPlaceBuffer denoises buf in place with no intermediate copy.
func (f *RayTracing) FilterInPlaceBuffer(buf *Buffer) error {
	return f.filterBuffers(buf, buf)
}

// filterSlices handles the slice-based variants. A nil color means
// in-place: output serves both roles.
func (f *RayTracing) filterSlices(color, output []float32) error {
	if err := f.validateStaged(); err != nil {
		return err
	}
	if color != nil && len(color) != f.elems {
		return ErrInvalidImageDimensions
	}
	if len(output) != f.elems {
		return ErrInvalidImageDimensions
	}

	out, err := f.dev.NewBuffer(output)
	if err != nil {
		return err
	}
	defer out.Close()

	in := out
	if color != nil {
		in, err = f.dev.NewBuffer(color)
		if err != nil {
			return err
		}
		defer in.Close()
	}

	f.execute(in, out)
	return out.ReadInto(output)
}

func (f *RayTracing) filterBuffers(color, output *Buffer) error {
	if err := f.validateStaged(); err != nil {
		return err
	}
	if color.dev != f.dev {
		return fmt.Errorf("%w: color buffer created by a different device", ErrInvalidArgument)
	}
	if output.dev != f.dev {
		return fmt.Errorf("%w: output buffer created by a different device", ErrInvalidArgument)
	}
	if color.size != f.elems || output.size != f.elems {
		return ErrInvalidImageDimensions
	}
	f.execute(color, output)
	return nil
}

// validateStaged checks everything that can be checked without touching
// the native engine. Execution must not mutate native state when any
// check fails.
func (f *RayTracing) validateStaged() error {
	if f.handle == 0 {
		return fmt.Errorf("%w: no native filter", ErrOutOfMemory)
	}
	if f.stageErr != nil {
		return f.stageErr
	}
	if f.albedo != nil && f.albedo.size != f.elems {
		return ErrInvalidImageDimensions
	}
	if f.normal != nil && f.normal.size != f.elems {
		return ErrInvalidImageDimensions
	}
	return nil
}

// execute stages every parameter on the native filter, commits it and
// runs the denoise pass. Inputs are validated by the callers; from here
// on failures are only observable through Device.Err.
func (f *RayTracing) execute(color, output *Buffer) {
	w, h := uintptr(f.width), uintptr(f.height)
	if f.albedo != nil {
		sys.SetFilterImage(f.handle, "albedo", f.albedo.handle, sys.FormatFloat3, w, h, 0, 0, 0)
		// A normal image without an albedo image is ignored by the
		// engine, so it is only staged alongside one.
		if f.normal != nil {
			sys.SetFilterImage(f.handle, "normal", f.normal.handle, sys.FormatFloat3, w, h, 0, 0, 0)
		} else {
			sys.RemoveFilterImage(f.handle, "normal")
		}
	} else {
		// Unbind so an image staged by an earlier execution cannot
		// linger on the native filter after eviction.
		sys.RemoveFilterImage(f.handle, "albedo")
		sys.RemoveFilterImage(f.handle, "normal")
	}
	sys.SetFilterImage(f.handle, "color", color.handle, sys.FormatFloat3, w, h, 0, 0, 0)
	sys.SetFilterImage(f.handle, "output", output.handle, sys.FormatFloat3, w, h, 0, 0, 0)
	sys.SetFilterBool(f.handle, "hdr", f.hdr)
	sys.SetFilterBool(f.handle, "srgb", f.srgb)
	sys.SetFilterBool(f.handle, "clean_aux", f.cleanAux)
	sys.SetFilterFloat(f.handle, "inputScale", f.inputScale)
	sys.SetFilterInt(f.handle, "quality", int32(f.quality))

	sys.CommitFilter(f.handle)
	start := time.Now()
	sys.ExecuteFilter(f.handle)
	Logger().Debug("oidn: filter executed",
		"width", f.width, "height", f.height, "duration", time.Since(start))
}

// Close releases the native filter, the device reference it holds, and
// any auxiliary buffers the filter allocated itself. Buffers staged via
// SetAlbedoBuffer or SetAlbedoNormalBuffers remain owned by the caller
// and are left untouched. The first call releases exactly once; further
// calls are no-ops.
func (f *RayTracing) Close() error {
	f.dropAlbedo()
	f.dropNormal()
	if f.handle != 0 {
		sys.ReleaseFilter(f.handle)
		f.handle = 0
	}
	if f.devRef != 0 {
		sys.ReleaseDevice(f.devRef)
		f.devRef = 0
	}
	return nil
}
