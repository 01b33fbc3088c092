package users

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flor3z/levelbot/internal/exp"
	"github.com/flor3z/levelbot/internal/storage"
)

type memPersister struct {
	rows    map[string]storage.User
	upserts int
	err     error
}

func newMemPersister() *memPersister {
	return &memPersister{rows: map[string]storage.User{}}
}

func (m *memPersister) UpsertUser(_ context.Context, u *storage.User) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	m.rows[u.ID] = *u
	return nil
}

func (m *memPersister) ReplaceUsers(_ context.Context, users []*storage.User) error {
	if m.err != nil {
		return m.err
	}
	m.rows = map[string]storage.User{}
	for _, u := range users {
		m.rows[u.ID] = *u
	}
	return nil
}

func TestStore_GetOrCreate(t *testing.T) {
	s, err := NewStore(newMemPersister(), nil)
	require.NoError(t, err)

	_, ok := s.Get("1")
	assert.False(t, ok)

	u := s.GetOrCreate("1")
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, 0, u.Exp)
	assert.Equal(t, 0, u.Level)
	assert.True(t, u.NextEligible.IsZero())

	assert.Same(t, u, s.GetOrCreate("1"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_RejectsInvalidRecords(t *testing.T) {
	_, err := NewStore(newMemPersister(), []*storage.User{{ID: "1", Level: 0, Exp: exp.Needed(0)}})
	assert.Error(t, err)

	_, err = NewStore(newMemPersister(), []*storage.User{{ID: "1"}, {ID: "1"}})
	assert.Error(t, err)
}

func TestStore_AllIsOrdered(t *testing.T) {
	s, err := NewStore(newMemPersister(), []*storage.User{{ID: "c"}, {ID: "a"}, {ID: "b"}})
	require.NoError(t, err)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
}

func TestStore_CommitAndFlush(t *testing.T) {
	p := newMemPersister()
	s, err := NewStore(p, nil)
	require.NoError(t, err)
	ctx := context.Background()

	u := s.GetOrCreate("1")
	u.Exp = 30
	require.NoError(t, s.Commit(ctx, u))
	assert.Equal(t, 1, p.upserts)
	assert.Equal(t, 30, p.rows["1"].Exp)

	s.GetOrCreate("2")
	require.NoError(t, s.Flush(ctx))
	assert.Len(t, p.rows, 2)

	p.err = errors.New("disk full")
	assert.ErrorIs(t, s.Commit(ctx, u), p.err)
	assert.ErrorIs(t, s.Flush(ctx), p.err)
}

func TestStore_RestartRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	repo, err := storage.NewRepository(path)
	require.NoError(t, err)

	s, err := NewStore(repo, nil)
	require.NoError(t, err)

	engine, err := exp.NewEngine(10, 400, 0)
	require.NoError(t, err)
	for i, id := range []string{"1", "2", "3", "1", "2", "1"} {
		u := s.GetOrCreate(id)
		engine.Award(u, time.Unix(int64(i), 0))
		require.NoError(t, s.Commit(ctx, u))
	}
	before := s.All()
	require.NoError(t, repo.Close())

	repo, err = storage.NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	loaded, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	reloaded, err := NewStore(repo, loaded)
	require.NoError(t, err)

	after := reloaded.All()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Exp, after[i].Exp)
		assert.Equal(t, before[i].Level, after[i].Level)
	}
}
