//go:build darwin || linux || freebsd

package sys

import (
	"fmt"
	"runtime"

	"github.com/ebitengine/purego"
)

var defaultLibraries = func() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"libOpenImageDenoise.2.dylib",
			"libOpenImageDenoise.dylib",
			"/opt/homebrew/lib/libOpenImageDenoise.dylib",
			"/usr/local/lib/libOpenImageDenoise.dylib",
		}
	default:
		return []string{
			"libOpenImageDenoise.so.2",
			"libOpenImageDenoise.so",
		}
	}
}()

func bind() error {
	var lib uintptr
	var dlErr error
	for _, name := range libraryCandidates() {
		lib, dlErr = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if dlErr == nil {
			break
		}
		lib = 0
	}
	if lib == 0 {
		return fmt.Errorf("%w: %v", ErrLibraryNotFound, dlErr)
	}
	for _, p := range procs {
		addr, err := purego.Dlsym(lib, p.name)
		if err != nil {
			return fmt.Errorf("oidn: resolving %s: %w", p.name, err)
		}
		purego.RegisterFunc(p.fn, addr)
	}
	return nil
}
