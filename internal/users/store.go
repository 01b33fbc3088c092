// Package users holds the in-memory user state and writes it through to persistence.
//
// A Store is owned by the message-processing goroutine; it is not safe for
// concurrent use.
package users

import (
	"context"
	"fmt"
	"sort"

	"github.com/flor3z/levelbot/internal/exp"
	"github.com/flor3z/levelbot/internal/storage"
)

// Persister saves user state
type Persister interface {
	UpsertUser(ctx context.Context, u *storage.User) error
	ReplaceUsers(ctx context.Context, users []*storage.User) error
}

// Store maps user ids to their state
type Store struct {
	users   map[string]*storage.User
	persist Persister
}

// NewStore creates a store seeded with previously persisted users.
// Records violating 0 <= exp < exp.Needed(level) are rejected.
func NewStore(persist Persister, initial []*storage.User) (*Store, error) {
	s := &Store{
		users:   make(map[string]*storage.User, len(initial)),
		persist: persist,
	}
	for _, u := range initial {
		if u.Level < 0 || u.Exp < 0 || u.Exp >= exp.Needed(u.Level) {
			return nil, fmt.Errorf("user %s has invalid progress: level=%d exp=%d", u.ID, u.Level, u.Exp)
		}
		if _, ok := s.users[u.ID]; ok {
			return nil, fmt.Errorf("duplicate user %s", u.ID)
		}
		s.users[u.ID] = u.Clone()
	}
	return s, nil
}

// Get returns the user with id, if known
func (s *Store) Get(id string) (*storage.User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// GetOrCreate returns the user with id, creating a fresh one on first activity
func (s *Store) GetOrCreate(id string) *storage.User {
	if u, ok := s.users[id]; ok {
		return u
	}
	u := &storage.User{ID: id}
	s.users[id] = u
	return u
}

// Len returns the number of known users
func (s *Store) Len() int {
	return len(s.users)
}

// All returns every user ordered by id
func (s *Store) All() []*storage.User {
	all := make([]*storage.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Commit writes a mutated user through to persistence
func (s *Store) Commit(ctx context.Context, u *storage.User) error {
	if err := s.persist.UpsertUser(ctx, u); err != nil {
		return fmt.Errorf("failed to persist user %s: %w", u.ID, err)
	}
	return nil
}

// Flush rewrites the complete user set
func (s *Store) Flush(ctx context.Context) error {
	if err := s.persist.ReplaceUsers(ctx, s.All()); err != nil {
		return fmt.Errorf("failed to flush %d users: %w", len(s.users), err)
	}
	return nil
}
