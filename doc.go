// Package oidn provides Go bindings for Intel Open Image Denoise.
//
// # Overview
//
// oidn wraps the native denoising engine behind a typed ownership model:
// a Device owns a compute context, Buffers own native pixel memory bound
// to one Device, and a RayTracing filter drives the denoise pass. The
// shared library is loaded dynamically at first use; no cgo is required.
//
// # Quick Start
//
//	import "github.com/gogpu/oidn"
//
//	device := oidn.NewDevice()
//	defer device.Close()
//
//	filter := oidn.NewRayTracing(device)
//	defer filter.Close()
//
//	filter.SetSRGB(true).SetImageDimensions(width, height)
//	if err := filter.FilterInPlace(pixels); err != nil {
//		log.Fatal(err)
//	}
//	if err := device.Err(); err != nil {
//		log.Fatal(err)
//	}
//
// Images are flat []float32 slices, three interleaved channels per pixel,
// row-major, exactly 3*width*height elements. There is no alpha channel
// and no stride or padding support.
//
// # Error Handling
//
// Validation failures (wrong element counts, buffers from a foreign
// device) are returned by the call that detects them, before anything
// reaches the native engine. Failures inside the engine, including out of
// memory during the denoise pass, are deferred: poll Device.Err after
// every execution. Skipping the poll silently loses the error.
//
// # Thread Safety
//
// The native engine only guarantees correctness under serialized access.
// A Device and its dependent resources may move between goroutines, but
// concurrent use requires external locking. The package itself provides
// no concurrency primitives; execution calls block until the denoise
// pass finishes and cannot be canceled.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Device, Buffer, RayTracing, error surface, SetLogger
//   - sys: raw C ABI (handles, constants, dynamically bound symbols)
package oidn
