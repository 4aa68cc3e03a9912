package permissions

import (
	"errors"
	"os"
	"runtime"
	"testing"
)

type fakeLookup map[string]string

func (f fakeLookup) get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestInterpretPermissionFlag(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected Status
	}{
		"granted":     {"granted", StatusGranted},
		"denied":      {"denied", StatusDenied},
		"unsupported": {"unsupported", StatusUnavailable},
		"unknown":     {"", StatusUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := interpretPermissionFlag("test", tc.value)
			if res.Status != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, res.Status)
			}
		})
	}
}

func TestProbeUInputHonoursEnv(t *testing.T) {
	lookup := fakeLookup{"MACROREC_UINPUT": "denied"}
	res := ProbeUInput(lookup.get, "")
	if res.Status != StatusDenied {
		t.Fatalf("expected denied, got %s", res.Status)
	}
	if res.Guidance == "" {
		t.Fatalf("expected guidance when denied")
	}
}

func TestProbeUInputClassifiesOpenErrors(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uinput probing is linux only")
	}
	orig := openDevice
	defer func() { openDevice = orig }()

	openDevice = func(string) error { return os.ErrNotExist }
	if res := ProbeUInput(fakeLookup{}.get, ""); res.Status != StatusUnavailable {
		t.Fatalf("missing node should be unavailable, got %s", res.Status)
	}

	openDevice = func(string) error { return errors.New("permission denied") }
	if res := ProbeUInput(fakeLookup{}.get, ""); res.Status != StatusDenied {
		t.Fatalf("open failure should be denied, got %s", res.Status)
	}

	openDevice = func(string) error { return nil }
	if res := ProbeUInput(fakeLookup{}.get, ""); res.Status != StatusGranted {
		t.Fatalf("writable node should be granted, got %s", res.Status)
	}
}

func TestProbeTerminal(t *testing.T) {
	if res := ProbeTerminal(fakeLookup{"TERM": "dumb"}.get); res.Status != StatusUnavailable {
		t.Fatalf("dumb terminal should be unavailable, got %s", res.Status)
	}
	if res := ProbeTerminal(fakeLookup{"TERM": "xterm-256color"}.get); res.Status != StatusGranted {
		t.Fatalf("xterm should be granted, got %s", res.Status)
	}
	if res := ProbeTerminal(fakeLookup{"MACROREC_TERMINAL": "no", "TERM": "xterm"}.get); res.Status != StatusDenied {
		t.Fatalf("override should win, got %s", res.Status)
	}
}
