package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/clientpilot/backend/internal/page"
)

// Profile is a named sandbox size class: viewport, user agent, and soft
// resource hints applied at launch time.
type Profile struct {
	ViewportWidth  int     `yaml:"viewport_width"`
	ViewportHeight int     `yaml:"viewport_height"`
	UserAgent      string  `yaml:"user_agent"`
	MemoryHintMB   int64   `yaml:"memory_hint_mb"`
	CPUHint        float64 `yaml:"cpu_hint"`
	FetchTimeoutMs int     `yaml:"fetch_timeout_ms"`
}

// BuiltinProfiles returns the profiles shipped with the binary.
func BuiltinProfiles() map[string]Profile {
	defaultUA := page.DefaultOptions().UserAgent
	return map[string]Profile{
		"compact": {
			ViewportWidth:  800,
			ViewportHeight: 600,
			UserAgent:      defaultUA,
			MemoryHintMB:   25,
			CPUHint:        0.5,
			FetchTimeoutMs: 15000,
		},
		"standard": {
			ViewportWidth:  1280,
			ViewportHeight: 800,
			UserAgent:      defaultUA,
			MemoryHintMB:   50,
			CPUHint:        1.0,
			FetchTimeoutMs: 30000,
		},
		"desktop-xl": {
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			UserAgent:      defaultUA,
			MemoryHintMB:   100,
			CPUHint:        2.0,
			FetchTimeoutMs: 45000,
		},
	}
}

// LoadProfiles returns the builtin profiles, merged with overrides from
// the YAML file at path when one is configured.
func LoadProfiles(path string) (map[string]Profile, error) {
	profiles := BuiltinProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var overrides map[string]Profile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse profile file: %w", err)
	}

	for name, p := range overrides {
		profiles[name] = p
	}
	return profiles, nil
}

// PageOptions converts a profile to launch options.
func (p Profile) PageOptions() page.Options {
	opts := page.DefaultOptions()
	if p.ViewportWidth > 0 {
		opts.ViewportWidth = p.ViewportWidth
	}
	if p.ViewportHeight > 0 {
		opts.ViewportHeight = p.ViewportHeight
	}
	if p.UserAgent != "" {
		opts.UserAgent = p.UserAgent
	}
	if p.MemoryHintMB > 0 {
		opts.MemoryHintMB = p.MemoryHintMB
	}
	if p.CPUHint > 0 {
		opts.CPUHint = p.CPUHint
	}
	if p.FetchTimeoutMs > 0 {
		opts.FetchTimeout = time.Duration(p.FetchTimeoutMs) * time.Millisecond
	}
	return opts
}
