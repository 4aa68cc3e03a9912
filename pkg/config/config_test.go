package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stubHome(t *testing.T, dir string) {
	t.Helper()
	orig := userHomeDir
	userHomeDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { userHomeDir = orig })
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	stubHome(t, "/home/tester")
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir temp dir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Source != "<defaults>" {
		t.Fatalf("expected default source marker, got %q", cfg.Source)
	}
	if cfg.Paths.MacroDir != filepath.Join("/home/tester", "mouse_macros") {
		t.Fatalf("unexpected default macro dir: %q", cfg.Paths.MacroDir)
	}
	if cfg.Hotkeys.Record != "f6" || cfg.Hotkeys.Play != "f7" {
		t.Fatalf("unexpected default hotkeys: %+v", cfg.Hotkeys)
	}
	if cfg.Playback.Speed != 1.0 || cfg.Playback.RepeatCount != 1 || cfg.Playback.SettleMS != 10 {
		t.Fatalf("unexpected playback defaults: %+v", cfg.Playback)
	}
	if cfg.Storage.Backend != BackendJSON || cfg.Input.Injector != InjectorUInput {
		t.Fatalf("unexpected backend defaults: %+v %+v", cfg.Storage, cfg.Input)
	}
	if got := cfg.SQLitePath(); got != filepath.Join("/home/tester", "mouse_macros", "macros.db") {
		t.Fatalf("unexpected sqlite path: %q", got)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "# macro recorder\npaths:\n  macro_dir: " + filepath.Join(dir, "macros") + "\nhotkeys:\n  record: <F9>\n  play: \"Key.f10\"\nplayback:\n  speed: 1.5 # faster\n  repeat_count: 0\n  settle_ms: 25\nstorage:\n  backend: SQLite\ninput:\n  injector: virtual\n  screen_width: 2560\n  screen_height: 1440\nlogging:\n  level: DEBUG\n  format: console\ntelemetry:\n  endpoint: \"http://localhost:4318\"\n"

	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Source != cfgPath {
		t.Fatalf("unexpected source: %q", cfg.Source)
	}
	if cfg.Hotkeys.Record != "f9" || cfg.Hotkeys.Play != "f10" {
		t.Fatalf("hotkeys not normalised: %+v", cfg.Hotkeys)
	}
	if cfg.Playback.Speed != 1.5 || cfg.Playback.SettleMS != 25 {
		t.Fatalf("unexpected playback: %+v", cfg.Playback)
	}
	if cfg.Playback.RepeatCount != 1 {
		t.Fatalf("repeat count should clamp to 1, got %d", cfg.Playback.RepeatCount)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Input.Injector != InjectorVirtual {
		t.Fatalf("unexpected storage/input: %+v %+v", cfg.Storage, cfg.Input)
	}
	if cfg.Input.ScreenWidth != 2560 || cfg.Input.ScreenHeight != 1440 {
		t.Fatalf("unexpected screen: %+v", cfg.Input)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Telemetry.Endpoint != "http://localhost:4318" {
		t.Fatalf("unexpected telemetry endpoint: %q", cfg.Telemetry.Endpoint)
	}
	if want := []string{"f9", "f10"}; strings.Join(cfg.ExcludedKeys(), ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected excluded keys: %v", cfg.ExcludedKeys())
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "paths:\n  runs_dir: runs\n", "unknown key"},
		{"odd indent", "paths:\n   macro_dir: x\n", "indentation"},
		{"same hotkeys", "hotkeys:\n  record: f8\n  play: <f8>\n", "must differ"},
		{"bad hotkey", "hotkeys:\n  record: hyper\n", "unknown hotkey"},
		{"zero speed", "playback:\n  speed: 0\n", "playback.speed"},
		{"bad speed", "playback:\n  speed: fast\n", "invalid number"},
		{"bad backend", "storage:\n  backend: s3\n", "storage.backend"},
		{"bad injector", "input:\n  injector: x11\n", "input.injector"},
		{"bad level", "logging:\n  level: chatty\n", "unsupported log level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("playback:\n  speed: 1.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MACROREC_SPEED", "2")
	t.Setenv("MACROREC_MACRO_DIR", filepath.Join(dir, "env-macros"))
	t.Setenv("MACROREC_STORAGE_BACKEND", "sqlite")
	t.Setenv("MACROREC_OTEL_ENDPOINT", "http://collector:4318")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Playback.Speed != 2 {
		t.Fatalf("env should override file speed, got %v", cfg.Playback.Speed)
	}
	if cfg.Paths.MacroDir != filepath.Join(dir, "env-macros") {
		t.Fatalf("unexpected macro dir: %q", cfg.Paths.MacroDir)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Telemetry.Endpoint != "http://collector:4318" {
		t.Fatalf("unexpected env overrides: %+v %+v", cfg.Storage, cfg.Telemetry)
	}
}

func TestEnvironmentOverrideInvalid(t *testing.T) {
	t.Setenv("MACROREC_REPEAT_COUNT", "many")
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "environment override") {
		t.Fatalf("expected environment override error, got %v", err)
	}
}

func TestTelemetrySwitchFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("telemetry:\n  endpoint: http://localhost:4318\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Telemetry.TracingEndpoint(); got != "http://localhost:4318" {
		t.Fatalf("expected tracing enabled by default, got %q", got)
	}

	t.Setenv("MACROREC_OTEL_ENABLED", "false")
	cfg, err = Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Telemetry.Enabled || cfg.Telemetry.TracingEndpoint() != "" {
		t.Fatalf("expected tracing disabled, got %+v", cfg.Telemetry)
	}
	if cfg.Telemetry.Endpoint != "http://localhost:4318" {
		t.Fatalf("endpoint should be kept while disabled, got %q", cfg.Telemetry.Endpoint)
	}

	t.Setenv("MACROREC_OTEL_ENABLED", "sometimes")
	if _, err := Load(cfgPath); err == nil || !strings.Contains(err.Error(), "telemetry.enabled") {
		t.Fatalf("expected telemetry.enabled error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.MacroDir = filepath.Join(dir, "macros")
	cfg.Hotkeys.Record = "f5"
	cfg.Playback.Speed = 0.75
	cfg.Playback.RepeatCount = 4
	cfg.Telemetry.Endpoint = "http://localhost:4318"

	path := filepath.Join(dir, "nested", "config.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if loaded.Paths.MacroDir != cfg.Paths.MacroDir || loaded.Hotkeys.Record != "f5" {
		t.Fatalf("paths/hotkeys not preserved: %+v %+v", loaded.Paths, loaded.Hotkeys)
	}
	if loaded.Playback.Speed != 0.75 || loaded.Playback.RepeatCount != 4 {
		t.Fatalf("playback not preserved: %+v", loaded.Playback)
	}
	if loaded.Telemetry.Endpoint != cfg.Telemetry.Endpoint {
		t.Fatalf("telemetry not preserved: %q", loaded.Telemetry.Endpoint)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Hotkeys.Play = cfg.Hotkeys.Record
	if err := Save(cfg, filepath.Join(t.TempDir(), "config.yaml")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSetAndGet(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		if _, err := cfg.Get(key); err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
	}
	if err := cfg.Set("playback.repeat_count", "7"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := cfg.Get("playback.repeat_count"); got != "7" {
		t.Fatalf("unexpected repeat count %q", got)
	}
	if err := cfg.Set("nope.key", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestNormalizeHotkey(t *testing.T) {
	cases := map[string]string{
		"f6":        "f6",
		"<F7>":      "f7",
		"Key.f8":    "f8",
		" <esc> ":   "esc",
		"a":         "a",
		"<page_up>": "page_up",
	}
	for in, want := range cases {
		got, err := NormalizeHotkey(in)
		if err != nil || got != want {
			t.Fatalf("NormalizeHotkey(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeHotkey(""); err == nil {
		t.Fatalf("expected empty hotkey error")
	}
}

func TestNormalizeLogLevelAndFormat(t *testing.T) {
	if lvl, err := NormalizeLogLevel("WARNING"); err != nil || lvl != "warn" {
		t.Fatalf("unexpected level: %q %v", lvl, err)
	}
	if format, err := NormalizeFormat("text"); err != nil || format != "console" {
		t.Fatalf("unexpected format: %q %v", format, err)
	}
	if _, err := NormalizeFormat("xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
