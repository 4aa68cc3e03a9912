package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides maps MACROREC_* variables onto dotted config keys. Unset variables
// leave the file or default value in place.
type envOverrides struct {
	MacroDir     string `env:"MACROREC_MACRO_DIR"`
	RecordHotkey string `env:"MACROREC_RECORD_HOTKEY"`
	PlayHotkey   string `env:"MACROREC_PLAY_HOTKEY"`
	Speed        string `env:"MACROREC_SPEED"`
	RepeatCount  string `env:"MACROREC_REPEAT_COUNT"`
	SettleMS     string `env:"MACROREC_SETTLE_MS"`
	Backend      string `env:"MACROREC_STORAGE_BACKEND"`
	SQLitePath   string `env:"MACROREC_SQLITE_PATH"`
	Injector     string `env:"MACROREC_INJECTOR"`
	ScreenWidth  string `env:"MACROREC_SCREEN_WIDTH"`
	ScreenHeight string `env:"MACROREC_SCREEN_HEIGHT"`
	LogLevel     string `env:"MACROREC_LOG_LEVEL"`
	LogFormat    string `env:"MACROREC_LOG_FORMAT"`
	OTelEnabled  string `env:"MACROREC_OTEL_ENABLED"`
	OTelEndpoint string `env:"MACROREC_OTEL_ENDPOINT"`
}

func (o envOverrides) pairs() [][2]string {
	return [][2]string{
		{"paths.macro_dir", o.MacroDir},
		{"hotkeys.record", o.RecordHotkey},
		{"hotkeys.play", o.PlayHotkey},
		{"playback.speed", o.Speed},
		{"playback.repeat_count", o.RepeatCount},
		{"playback.settle_ms", o.SettleMS},
		{"storage.backend", o.Backend},
		{"storage.sqlite_path", o.SQLitePath},
		{"input.injector", o.Injector},
		{"input.screen_width", o.ScreenWidth},
		{"input.screen_height", o.ScreenHeight},
		{"logging.level", o.LogLevel},
		{"logging.format", o.LogFormat},
		{"telemetry.enabled", o.OTelEnabled},
		{"telemetry.endpoint", o.OTelEndpoint},
	}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var overrides envOverrides
	if err := ParseEnv(&overrides); err != nil {
		return err
	}
	for _, kv := range overrides.pairs() {
		if kv[1] == "" {
			continue
		}
		if err := cfg.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("environment override: %w", err)
		}
	}
	return nil
}
