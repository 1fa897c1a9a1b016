package sys

import (
	"errors"
	"os"
	"sync"
)

// ErrLibraryNotFound is returned by Load when no usable copy of
// libOpenImageDenoise could be located.
var ErrLibraryNotFound = errors.New("oidn: OpenImageDenoise shared library not found")

var (
	loadOnce sync.Once
	loadErr  error
)

// Load locates libOpenImageDenoise and binds the symbol table.
// It is safe to call repeatedly; the library is loaded at most once and
// the first error is sticky.
//
// Load is a no-op when the symbol table is already bound, which is how
// tests substitute an in-memory engine.
//
// The library is searched in the platform's default locations. Set
// OIDN_LIBRARY_PATH to load a specific shared library instead.
func Load() error {
	if NewDevice != nil {
		return nil
	}
	loadOnce.Do(func() { loadErr = bind() })
	return loadErr
}

// libraryCandidates returns the shared-library names to try, in order.
func libraryCandidates() []string {
	if p := os.Getenv("OIDN_LIBRARY_PATH"); p != "" {
		return []string{p}
	}
	return defaultLibraries
}
