//go:build !darwin && !linux && !freebsd && !windows

package sys

// The engine ships shared libraries for desktop platforms only.

var defaultLibraries []string

func bind() error {
	return ErrLibraryNotFound
}
