// Package sys exposes the raw Open Image Denoise C ABI.
//
// The package defines the opaque handle types, constants and function
// symbols of libOpenImageDenoise. Symbols are package-level function
// variables bound at runtime by [Load]; no cgo is involved, the shared
// library is loaded dynamically.
//
// Most applications should use the typed API in the parent oidn package
// instead. The sys package exists for interop with code that obtained
// native handles through another path, and as the seam where tests bind
// an alternative engine implementation.
package sys
