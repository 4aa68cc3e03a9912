package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Save validates cfg and writes it to path in the same YAML subset Load reads.
func Save(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultFileName
	}

	data, err := encodeYAML(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config folder: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func encodeYAML(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	section := ""
	for _, key := range Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return nil, err
		}
		group, field, _ := strings.Cut(key, ".")
		if group != section {
			fmt.Fprintf(&buf, "%s:\n", group)
			section = group
		}
		if value == "" {
			continue
		}
		if strings.ContainsAny(value, "#:") {
			value = `"` + value + `"`
		}
		fmt.Fprintf(&buf, "  %s: %s\n", field, value)
	}
	return buf.Bytes(), nil
}
