package session

import (
	"encoding/json"
	"sync"
	"time"
)

// State is the sync state of one session.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateLoaded     State = "loaded"
	StateLoadFailed State = "load_failed"
	StateSaving     State = "saving"
	StateSynced     State = "synced"
	StateSaveFailed State = "save_failed"
)

// SyncedLinger is how long StateSynced is reported before reverting to StateIdle.
const SyncedLinger = 2 * time.Second

// Status is a point-in-time view of the sync state.
type Status struct {
	State State     `json:"state"`
	Key   string    `json:"key"`
	Error string    `json:"error,omitempty"`
	Since time.Time `json:"since"`
}

// Label is the short indicator text shown next to the tracker.
func (s Status) Label() string {
	switch s.State {
	case StateSaving:
		return "// Syncing..."
	case StateSynced:
		return "// Synced"
	case StateSaveFailed:
		return "// Sync Failed"
	}
	return ""
}

// MarshalJSON adds the indicator label to the encoded status.
func (s Status) MarshalJSON() ([]byte, error) {
	type plain Status
	return json.Marshal(struct {
		plain
		Label string `json:"label,omitempty"`
	}{plain(s), s.Label()})
}

type statusTracker struct {
	mu     sync.Mutex
	cur    Status
	linger time.Duration
	now    func() time.Time
}

func newStatusTracker(linger time.Duration, now func() time.Time) *statusTracker {
	if now == nil {
		now = time.Now
	}
	return &statusTracker{
		cur:    Status{State: StateIdle, Since: now()},
		linger: linger,
		now:    now,
	}
}

func (t *statusTracker) set(state State, key string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cur = Status{State: state, Key: key, Since: t.now()}
	if err != nil {
		t.cur.Error = err.Error()
	}
}

func (t *statusTracker) get() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.cur
	if s.State == StateSynced && t.now().Sub(s.Since) >= t.linger {
		s.State = StateIdle
		s.Since = s.Since.Add(t.linger)
	}
	return s
}
