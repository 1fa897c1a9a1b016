package sys

import (
	"fmt"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

var defaultLibraries = []string{"OpenImageDenoise.dll"}

func bind() error {
	var lib windows.Handle
	var dlErr error
	for _, name := range libraryCandidates() {
		lib, dlErr = windows.LoadLibrary(name)
		if dlErr == nil {
			break
		}
		lib = 0
	}
	if lib == 0 {
		return fmt.Errorf("%w: %v", ErrLibraryNotFound, dlErr)
	}
	for _, p := range procs {
		addr, err := windows.GetProcAddress(lib, p.name)
		if err != nil {
			windows.FreeLibrary(lib)
			return fmt.Errorf("oidn: resolving %s: %w", p.name, err)
		}
		purego.RegisterFunc(p.fn, addr)
	}
	return nil
}
