package session

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lifedash/internal/core"
)

// LoadSeed reads the habits and mental metrics a fresh month starts with.
// An empty path returns core.DefaultSeed.
func LoadSeed(path string) (core.Seed, error) {
	if path == "" {
		return core.DefaultSeed(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed core.Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return core.Seed{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, h := range seed.Habits {
		if strings.TrimSpace(h.Name) == "" {
			return core.Seed{}, fmt.Errorf("seed habit %d: %w", i, core.ErrEmptyName)
		}
	}
	for i, name := range seed.Mental {
		if strings.TrimSpace(name) == "" {
			return core.Seed{}, fmt.Errorf("seed mental metric %d: %w", i, core.ErrEmptyName)
		}
	}
	if seed.Habits == nil {
		seed.Habits = []core.SeedHabit{}
	}
	if seed.Mental == nil {
		seed.Mental = []string{}
	}
	return seed, nil
}
