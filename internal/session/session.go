// Package session holds the dedup keys already emitted during the current
// sync pass. It closes the window where a track shows up at two feed
// positions before the ledger write for the first occurrence lands. The
// tracker is never persisted; each pass starts from an empty set.
package session

type Tracker struct {
	seen map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Mark records keys as scrobbled within the current pass.
func (t *Tracker) Mark(keys ...string) {
	for _, k := range keys {
		t.seen[k] = struct{}{}
	}
}

func (t *Tracker) Contains(key string) bool {
	_, ok := t.seen[key]
	return ok
}

// ContainsAny reports whether any of the candidate keys has been marked.
func (t *Tracker) ContainsAny(keys []string) bool {
	for _, k := range keys {
		if t.Contains(k) {
			return true
		}
	}
	return false
}

// Reset discards all marks. Called at the start of every pass.
func (t *Tracker) Reset() {
	t.seen = make(map[string]struct{})
}

func (t *Tracker) Len() int {
	return len(t.seen)
}
