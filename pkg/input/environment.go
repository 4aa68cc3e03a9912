package input

import (
	"github.com/offlinefirst/macroreplay/pkg/permissions"
)

// Environment summarises support for one input backend.
type Environment struct {
	Role       string
	Provider   string
	Available  bool
	Permission string
	Message    string
	Guidance   string
}

// Provider identifiers for capture and injection backends.
const (
	ProviderTerminal = "terminal"
	ProviderUInput   = "uinput"
	ProviderVirtual  = "virtual"
)

// DetectEnvironment reports the capture hook and the requested injector backend.
func DetectEnvironment(injector string) []Environment {
	term := permissions.ProbeTerminal(nil)
	capture := Environment{
		Role:       "capture",
		Provider:   ProviderTerminal,
		Available:  term.Status == permissions.StatusGranted || term.Status == permissions.StatusUnknown,
		Permission: term.StatusString(),
		Message:    term.Message,
		Guidance:   term.Guidance,
	}

	inject := Environment{
		Role:       "inject",
		Provider:   ProviderVirtual,
		Available:  true,
		Permission: "not_applicable",
		Message:    "in-memory device, actions are journalled only",
	}
	if injector == ProviderUInput {
		probe := permissions.ProbeUInput(nil, "")
		inject = Environment{
			Role:       "inject",
			Provider:   ProviderUInput,
			Available:  probe.Status == permissions.StatusGranted,
			Permission: probe.StatusString(),
			Message:    probe.Message,
			Guidance:   probe.Guidance,
		}
	}

	return []Environment{capture, inject}
}
