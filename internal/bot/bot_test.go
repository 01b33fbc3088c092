package bot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flor3z/levelbot/internal/storage"
	"github.com/flor3z/levelbot/internal/users"
)

// newStoppableBot builds a bot whose session was never opened
func newStoppableBot(t *testing.T, repo *storage.Repository, store *users.Store) *Bot {
	t.Helper()
	session, err := discordgo.New("Bot test")
	require.NoError(t, err)
	return &Bot{session: session, repo: repo, store: store, routerDone: make(chan struct{})}
}

func TestBot_StopSavesAllUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levelbot.db")
	repo, err := storage.NewRepository(path)
	require.NoError(t, err)

	store, err := users.NewStore(repo, []*storage.User{
		{ID: "1", Name: "alice", Level: 2, Exp: 40},
		{ID: "2", Name: "bob", Exp: 5},
	})
	require.NoError(t, err)

	saved, err := newStoppableBot(t, repo, store).Stop()
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	reopened, err := storage.NewRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Name)
	assert.Equal(t, 40, loaded[0].Exp)
	assert.Equal(t, 2, loaded[0].Level)
}

func TestBot_StopReportsFlushFailure(t *testing.T) {
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "levelbot.db"))
	require.NoError(t, err)

	persister := newMemPersister()
	store, err := users.NewStore(persister, []*storage.User{{ID: "1", Exp: 1}})
	require.NoError(t, err)
	persister.err = errors.New("disk full")

	saved, err := newStoppableBot(t, repo, store).Stop()
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 0, saved)
}
