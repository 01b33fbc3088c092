// Package leaderboard ranks users and tracks whether the rendered board is stale.
package leaderboard

import (
	"sort"
	"sync"

	"github.com/flor3z/levelbot/internal/storage"
)

// Entry is a ranked user captured at snapshot time
type Entry struct {
	ID    string
	Name  string
	Level int
	Exp   int
}

// Snapshot is an immutable top-N view. Entries are in rank order, first place first.
type Snapshot struct {
	Entries []Entry
}

// Len returns the number of ranked entries
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// sameOrder reports whether both snapshots rank the same ids in the same positions
func (s *Snapshot) sameOrder(other *Snapshot) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.Entries[i].ID != other.Entries[i].ID {
			return false
		}
	}
	return true
}

// Less reports whether a ranks above b: higher level, then higher exp, then lower id
func Less(a, b *storage.User) bool {
	if a.Level != b.Level {
		return a.Level > b.Level
	}
	if a.Exp != b.Exp {
		return a.Exp > b.Exp
	}
	return a.ID < b.ID
}

// Sorted returns a ranked copy of users
func Sorted(users []*storage.User) []*storage.User {
	ranked := make([]*storage.User, len(users))
	copy(ranked, users)
	sort.SliceStable(ranked, func(i, j int) bool { return Less(ranked[i], ranked[j]) })
	return ranked
}

// Position returns the 1-based rank of id among users, or 0 if absent
func Position(users []*storage.User, id string) int {
	for i, u := range Sorted(users) {
		if u.ID == id {
			return i + 1
		}
	}
	return 0
}

// Ranker keeps the current top-N snapshot and a dirty flag for the renderer
type Ranker struct {
	size int

	mu      sync.Mutex
	current *Snapshot
	dirty   bool
}

// NewRanker creates a ranker displaying at most size entries
func NewRanker(size int) *Ranker {
	return &Ranker{
		size:    size,
		current: &Snapshot{},
	}
}

// build captures the top-N of users as a new snapshot
func (r *Ranker) build(users []*storage.User) *Snapshot {
	ranked := Sorted(users)
	if len(ranked) > r.size {
		ranked = ranked[:r.size]
	}

	snap := &Snapshot{Entries: make([]Entry, len(ranked))}
	for i, u := range ranked {
		snap.Entries[i] = Entry{ID: u.ID, Name: u.Name, Level: u.Level, Exp: u.Exp}
	}
	return snap
}

// Recompute ranks users and replaces the snapshot if the visible order changed
func (r *Ranker) Recompute(users []*storage.User) bool {
	next := r.build(users)

	r.mu.Lock()
	defer r.mu.Unlock()

	if next.sameOrder(r.current) {
		return false
	}
	r.current = next
	r.dirty = true
	return true
}

// Snapshot returns the current snapshot
func (r *Ranker) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Dirty reports whether the snapshot has changed since it was last taken
func (r *Ranker) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// TakeDirty clears the dirty flag and returns the snapshot if it was set
func (r *Ranker) TakeDirty() (*Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil, false
	}
	r.dirty = false
	return r.current, true
}

// Refresh replaces the snapshot with the current values of users and marks it
// dirty, whether or not the order changed
func (r *Ranker) Refresh(users []*storage.User) {
	next := r.build(users)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = next
	r.dirty = true
}

// MarkDirty forces the next sync to render the current snapshot
func (r *Ranker) MarkDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = true
}
