package permissions

import (
	"os"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results for device access.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that access is available.
	StatusGranted Status = "granted"
	// StatusDenied indicates the device exists but the process may not use it.
	StatusDenied Status = "denied"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// lookupEnv is declared for swapping in tests.
var lookupEnv = func(key string) (string, bool) {
	return os.LookupEnv(key)
}

// openDevice checks write access to a device node.
var openDevice = func(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

// DefaultUInputPath is the Linux virtual input device node.
const DefaultUInputPath = "/dev/uinput"

// ProbeUInput reports whether synthetic devices can be created through uinput.
func ProbeUInput(lookup LookupEnvFunc, path string) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MACROREC_UINPUT"); ok {
		return interpretPermissionFlag("uinput", value)
	}
	if runtime.GOOS != "linux" {
		return ProbeResult{Status: StatusUnavailable, Message: "uinput injection requires linux"}
	}
	if path == "" {
		path = DefaultUInputPath
	}
	if err := openDevice(path); err != nil {
		if os.IsNotExist(err) {
			return ProbeResult{Status: StatusUnavailable, Message: path + " not present", Guidance: "load the module with 'modprobe uinput'"}
		}
		return ProbeResult{Status: StatusDenied, Message: "cannot open " + path + ": " + err.Error(), Guidance: "add the user to the input group or install a udev rule for uinput"}
	}
	return ProbeResult{Status: StatusGranted, Message: path + " writable"}
}

// ProbeTerminal reports whether an interactive terminal is available for capture.
func ProbeTerminal(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MACROREC_TERMINAL"); ok {
		return interpretPermissionFlag("terminal", value)
	}
	term, _ := lookup("TERM")
	if strings.TrimSpace(term) == "" || term == "dumb" {
		return ProbeResult{Status: StatusUnavailable, Message: "no capable terminal (TERM unset or dumb)"}
	}
	return ProbeResult{Status: StatusGranted, Message: "terminal " + term}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " access pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " access denied via env override", Guidance: "update MACROREC_* env to re-test"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " access state unknown"}
	}
}

// StatusString returns the string representation for reports.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
