// Package session keeps one user's tracker state for the active month, applies
// edits to it and persists it through a debounced save scheduler.
package session

import (
	"time"

	"lifedash/internal/core"
)

type Config struct {
	Debounce     time.Duration
	SaveTimeout  time.Duration
	LoadTimeout  time.Duration
	SyncedLinger time.Duration
	Seed         core.Seed
	Now          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Debounce:     300 * time.Millisecond,
		SaveTimeout:  10 * time.Second,
		LoadTimeout:  10 * time.Second,
		SyncedLinger: SyncedLinger,
		Seed:         core.DefaultSeed(),
		Now:          time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = d.SaveTimeout
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = d.LoadTimeout
	}
	if c.SyncedLinger <= 0 {
		c.SyncedLinger = d.SyncedLinger
	}
	if c.Seed.Habits == nil && c.Seed.Mental == nil {
		c.Seed = d.Seed
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}
