package sys

import "testing"

func TestGoString(t *testing.T) {
	if got := GoString(nil); got != "" {
		t.Errorf("GoString(nil) = %q, want \"\"", got)
	}

	raw := append([]byte("out of memory"), 0)
	if got := GoString(&raw[0]); got != "out of memory" {
		t.Errorf("GoString() = %q, want %q", got, "out of memory")
	}

	empty := []byte{0}
	if got := GoString(&empty[0]); got != "" {
		t.Errorf("GoString(empty) = %q, want \"\"", got)
	}
}

func TestLoadNoOpWhenBound(t *testing.T) {
	orig := NewDevice
	t.Cleanup(func() { NewDevice = orig })

	// A pre-bound symbol table (as installed by a test engine) must make
	// Load succeed without touching the shared library.
	NewDevice = func(DeviceType) Device { return 1 }
	if err := Load(); err != nil {
		t.Fatalf("Load() with bound table = %v, want nil", err)
	}
}

func TestDeviceTypeString(t *testing.T) {
	tests := []struct {
		kind DeviceType
		want string
	}{
		{DeviceTypeDefault, "default"},
		{DeviceTypeCPU, "cpu"},
		{DeviceTypeSYCL, "sycl"},
		{DeviceTypeCUDA, "cuda"},
		{DeviceTypeHIP, "hip"},
		{DeviceTypeMetal, "metal"},
		{DeviceType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("DeviceType(%d).String() = %q, want %q", int32(tt.kind), got, tt.want)
		}
	}
}

func TestLibraryCandidatesEnvOverride(t *testing.T) {
	t.Setenv("OIDN_LIBRARY_PATH", "/tmp/libcustom.so")

	got := libraryCandidates()
	if len(got) != 1 || got[0] != "/tmp/libcustom.so" {
		t.Errorf("libraryCandidates() = %v, want [/tmp/libcustom.so]", got)
	}
}

func TestLibraryCandidatesDefault(t *testing.T) {
	t.Setenv("OIDN_LIBRARY_PATH", "")

	if got := libraryCandidates(); len(got) == 0 {
		t.Error("libraryCandidates() returned no defaults")
	}
}
