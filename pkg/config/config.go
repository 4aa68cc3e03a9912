package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/offlinefirst/macroreplay/pkg/input"
)

const DefaultFileName = "config.yaml"

// Storage backends and injector providers accepted by the config.
const (
	BackendJSON      = "json"
	BackendSQLite    = "sqlite"
	InjectorUInput   = "uinput"
	InjectorVirtual  = "virtual"
	defaultMacroDir  = "~/mouse_macros"
	defaultSQLiteDB  = "macros.db"
	defaultSettleMS  = 10
	defaultWidth     = 1920
	defaultHeight    = 1080
	defaultRecordKey = "f6"
	defaultPlayKey   = "f7"
)

var userHomeDir = os.UserHomeDir

// Config captures the user-adjustable knobs for recording and playback.
type Config struct {
	Paths     PathsConfig
	Hotkeys   HotkeysConfig
	Playback  PlaybackConfig
	Storage   StorageConfig
	Input     InputConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig

	// Source indicates where the configuration originated (defaults or a file path).
	Source string
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	MacroDir string
}

// HotkeysConfig names the keys that toggle recording and playback. Both are
// excluded from recordings.
type HotkeysConfig struct {
	Record string
	Play   string
}

// PlaybackConfig holds replay defaults.
type PlaybackConfig struct {
	Speed       float64
	RepeatCount int
	SettleMS    int
}

// StorageConfig selects the macro store backend.
type StorageConfig struct {
	Backend    string
	SQLitePath string
}

// InputConfig selects the injector and the screen geometry used for absolute moves.
type InputConfig struct {
	Injector     string
	ScreenWidth  int
	ScreenHeight int
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string
	Format string
}

// TelemetryConfig enables trace export when Endpoint is set and Enabled is true.
type TelemetryConfig struct {
	Enabled  bool
	Endpoint string
}

// TracingEndpoint returns the collector to export to, or "" when tracing is off.
func (t TelemetryConfig) TracingEndpoint() string {
	if !t.Enabled {
		return ""
	}
	return strings.TrimSpace(t.Endpoint)
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			MacroDir: defaultMacroDir,
		},
		Hotkeys: HotkeysConfig{
			Record: defaultRecordKey,
			Play:   defaultPlayKey,
		},
		Playback: PlaybackConfig{
			Speed:       1.0,
			RepeatCount: 1,
			SettleMS:    defaultSettleMS,
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
		},
		Input: InputConfig{
			Injector:     InjectorUInput,
			ScreenWidth:  defaultWidth,
			ScreenHeight: defaultHeight,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, applies MACROREC_* environment
// overrides, and validates the result. When path is empty, the loader attempts to
// read ./config.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	file, err := os.Open(candidate)
	switch {
	case err == nil:
		defer file.Close()
		if err := decodeYAML(file, &cfg); err != nil {
			return cfg, err
		}
		cfg.Source = candidate
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return cfg, fmt.Errorf("config file %q not found", candidate)
		}
	default:
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.normalize(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.MacroDir) == "" {
		return errors.New("paths.macro_dir must not be empty")
	}

	record, err := NormalizeHotkey(c.Hotkeys.Record)
	if err != nil {
		return fmt.Errorf("hotkeys.record: %w", err)
	}
	play, err := NormalizeHotkey(c.Hotkeys.Play)
	if err != nil {
		return fmt.Errorf("hotkeys.play: %w", err)
	}
	if record == play {
		return fmt.Errorf("hotkeys.record and hotkeys.play must differ (both %q)", record)
	}

	if math.IsNaN(c.Playback.Speed) || math.IsInf(c.Playback.Speed, 0) || c.Playback.Speed <= 0 {
		return errors.New("playback.speed must be greater than zero")
	}
	if c.Playback.RepeatCount < 1 {
		return errors.New("playback.repeat_count must be at least 1")
	}
	if c.Playback.SettleMS < 0 {
		return errors.New("playback.settle_ms must not be negative")
	}

	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendJSON, BackendSQLite, c.Storage.Backend)
	}
	switch c.Input.Injector {
	case InjectorUInput, InjectorVirtual:
	default:
		return fmt.Errorf("input.injector must be %q or %q, got %q", InjectorUInput, InjectorVirtual, c.Input.Injector)
	}
	if c.Input.ScreenWidth <= 0 || c.Input.ScreenHeight <= 0 {
		return errors.New("input.screen_width and input.screen_height must be positive")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}
	return nil
}

// ExcludedKeys returns the hotkeys to filter from recordings.
func (c Config) ExcludedKeys() []string {
	var out []string
	for _, hk := range []string{c.Hotkeys.Record, c.Hotkeys.Play} {
		if key, err := NormalizeHotkey(hk); err == nil {
			out = append(out, key)
		}
	}
	return out
}

// SQLitePath resolves the database location, defaulting to the macro folder.
func (c Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.Paths.MacroDir, defaultSQLiteDB)
}

// Keys lists every settable dotted key in file order.
func Keys() []string {
	return []string{
		"paths.macro_dir",
		"hotkeys.record",
		"hotkeys.play",
		"playback.speed",
		"playback.repeat_count",
		"playback.settle_ms",
		"storage.backend",
		"storage.sqlite_path",
		"input.injector",
		"input.screen_width",
		"input.screen_height",
		"logging.level",
		"logging.format",
		"telemetry.enabled",
		"telemetry.endpoint",
	}
}

// Set assigns a single dotted key from its textual form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "paths.macro_dir":
		c.Paths.MacroDir = value
	case "hotkeys.record":
		c.Hotkeys.Record = value
	case "hotkeys.play":
		c.Hotkeys.Play = value
	case "playback.speed":
		speed, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("playback.speed: %w", err)
		}
		c.Playback.Speed = speed
	case "playback.repeat_count":
		count, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("playback.repeat_count: %w", err)
		}
		c.Playback.RepeatCount = count
	case "playback.settle_ms":
		ms, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("playback.settle_ms: %w", err)
		}
		c.Playback.SettleMS = ms
	case "storage.backend":
		c.Storage.Backend = strings.ToLower(value)
	case "storage.sqlite_path":
		c.Storage.SQLitePath = value
	case "input.injector":
		c.Input.Injector = strings.ToLower(value)
	case "input.screen_width":
		w, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("input.screen_width: %w", err)
		}
		c.Input.ScreenWidth = w
	case "input.screen_height":
		h, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("input.screen_height: %w", err)
		}
		c.Input.ScreenHeight = h
	case "logging.level":
		c.Logging.Level = strings.ToLower(value)
	case "logging.format":
		c.Logging.Format = strings.ToLower(value)
	case "telemetry.enabled":
		enabled, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("telemetry.enabled: %w", err)
		}
		c.Telemetry.Enabled = enabled
	case "telemetry.endpoint":
		c.Telemetry.Endpoint = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

// Get returns the textual form of a dotted key.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "paths.macro_dir":
		return c.Paths.MacroDir, nil
	case "hotkeys.record":
		return c.Hotkeys.Record, nil
	case "hotkeys.play":
		return c.Hotkeys.Play, nil
	case "playback.speed":
		return strconv.FormatFloat(c.Playback.Speed, 'g', -1, 64), nil
	case "playback.repeat_count":
		return strconv.Itoa(c.Playback.RepeatCount), nil
	case "playback.settle_ms":
		return strconv.Itoa(c.Playback.SettleMS), nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.sqlite_path":
		return c.Storage.SQLitePath, nil
	case "input.injector":
		return c.Input.Injector, nil
	case "input.screen_width":
		return strconv.Itoa(c.Input.ScreenWidth), nil
	case "input.screen_height":
		return strconv.Itoa(c.Input.ScreenHeight), nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "telemetry.enabled":
		return strconv.FormatBool(c.Telemetry.Enabled), nil
	case "telemetry.endpoint":
		return c.Telemetry.Endpoint, nil
	default:
		return "", fmt.Errorf("unknown key %q", key)
	}
}

// decodeYAML ingests a small subset of YAML: nested maps of scalars.
type yamlFrame struct {
	indent int
	key    string
}

func decodeYAML(r io.Reader, cfg *Config) error {
	scanner := bufio.NewScanner(r)
	var stack []yamlFrame

	lineNo := 0
	for scanner.Scan() {
		raw := scanner.Text()
		lineNo++

		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := countIndent(raw)
		if indent%2 != 0 {
			return fmt.Errorf("line %d: indentation must be multiples of two spaces", lineNo)
		}

		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}

		key, value, hasValue := splitKeyValue(trimmed)
		if !hasValue {
			stack = append(stack, yamlFrame{indent: indent, key: key})
			continue
		}

		path := make([]string, 0, len(stack)+1)
		for _, fr := range stack {
			path = append(path, fr.key)
		}
		path = append(path, key)

		if err := cfg.Set(strings.Join(path, "."), sanitizeValue(value)); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func countIndent(line string) int {
	count := 0
	for _, r := range line {
		if r != ' ' {
			break
		}
		count++
	}
	return count
}

func splitKeyValue(line string) (string, string, bool) {
	parts := strings.SplitN(line, ":", 2)
	key := strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return key, "", false
	}
	value := strings.TrimSpace(parts[1])
	if value == "" {
		return key, "", false
	}
	return key, value, true
}

func sanitizeValue(raw string) string {
	value := raw
	if idx := strings.Index(value, " #"); idx >= 0 {
		value = value[:idx]
	}
	if idx := strings.Index(value, "\t#"); idx >= 0 {
		value = value[:idx]
	}
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "'\"")
	return value
}

func parseInt(value string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid integer value %q", value)
	}
	return i, nil
}

func parseBool(value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
	return b, nil
}

func parseFloat(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number value %q", value)
	}
	return f, nil
}

func (c *Config) normalize() error {
	defaults := Default()

	dir, err := ExpandHome(strings.TrimSpace(c.Paths.MacroDir))
	if err != nil {
		return fmt.Errorf("paths.macro_dir: %w", err)
	}
	c.Paths.MacroDir = filepath.Clean(dir)
	if c.Paths.MacroDir == "." || c.Paths.MacroDir == "" {
		expanded, err := ExpandHome(defaults.Paths.MacroDir)
		if err != nil {
			return fmt.Errorf("paths.macro_dir: %w", err)
		}
		c.Paths.MacroDir = expanded
	}
	if c.Storage.SQLitePath != "" {
		path, err := ExpandHome(strings.TrimSpace(c.Storage.SQLitePath))
		if err != nil {
			return fmt.Errorf("storage.sqlite_path: %w", err)
		}
		c.Storage.SQLitePath = filepath.Clean(path)
	}

	if key, err := NormalizeHotkey(c.Hotkeys.Record); err == nil {
		c.Hotkeys.Record = key
	}
	if key, err := NormalizeHotkey(c.Hotkeys.Play); err == nil {
		c.Hotkeys.Play = key
	}

	// A repeat count below one plays once.
	if c.Playback.RepeatCount < 1 {
		c.Playback.RepeatCount = 1
	}
	if strings.TrimSpace(c.Storage.Backend) == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if strings.TrimSpace(c.Input.Injector) == "" {
		c.Input.Injector = defaults.Input.Injector
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// NormalizeHotkey accepts "f6", "<F6>" or "Key.f6" and returns the canonical key
// identifier used in recordings.
func NormalizeHotkey(hotkey string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(hotkey))
	key = strings.TrimSuffix(strings.TrimPrefix(key, "<"), ">")
	if idx := strings.LastIndex(key, "."); idx >= 0 && idx < len(key)-1 {
		key = key[idx+1:]
	}
	if key == "" {
		return "", errors.New("hotkey must not be empty")
	}
	if input.IsNamedKey(key) || len([]rune(key)) == 1 {
		return key, nil
	}
	return "", fmt.Errorf("unknown hotkey %q", hotkey)
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
