package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flor3z/levelbot/internal/leaderboard"
	"github.com/flor3z/levelbot/internal/scheduler"
	"github.com/flor3z/levelbot/internal/storage"
)

func TestIsNotFound(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}

	assert.True(t, isNotFound(notFound))
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", notFound)))
	assert.False(t, isNotFound(forbidden))
	assert.False(t, isNotFound(errors.New("timeout")))
	assert.False(t, isNotFound(nil))
}

func TestPublisher_CreatesMessageOnce(t *testing.T) {
	transport := &fakeTransport{}
	settings := newMemPersister()
	p := &leaderboardPublisher{transport: transport, settings: settings, channelID: "board", barSize: 10}
	ctx := context.Background()
	snap := &leaderboard.Snapshot{Entries: []leaderboard.Entry{{ID: "1", Name: "alice", Exp: 10}}}

	require.NoError(t, p.Publish(ctx, snap))
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "board", transport.sent[0].channelID)
	assert.Contains(t, transport.sent[0].content, "1 alice")
	assert.Equal(t, "msg-1", settings.settings[storage.SettingLeaderboardMessageID])

	require.NoError(t, p.Publish(ctx, snap))
	require.NoError(t, p.Publish(ctx, snap))
	assert.Len(t, transport.sent, 1)
	require.Len(t, transport.edits, 2)
	assert.Equal(t, "board/msg-1", transport.edits[0].channelID)
	assert.Equal(t, transport.edits[0].content, transport.edits[1].content)
}

func TestPublisher_RecreatesDeletedMessage(t *testing.T) {
	transport := &fakeTransport{editErr: fmt.Errorf("%w: old", ErrMessageNotFound)}
	settings := newMemPersister()
	p := &leaderboardPublisher{transport: transport, settings: settings, channelID: "board", messageID: "old", barSize: 10}

	require.NoError(t, p.Publish(context.Background(), &leaderboard.Snapshot{}))
	assert.Len(t, transport.sent, 1)
	assert.Equal(t, "msg-1", p.messageID)
	assert.Equal(t, "msg-1", settings.settings[storage.SettingLeaderboardMessageID])
}

func TestPublisher_EditFailureIsReturned(t *testing.T) {
	transport := &fakeTransport{editErr: errors.New("rate limited")}
	p := &leaderboardPublisher{transport: transport, settings: newMemPersister(), channelID: "board", messageID: "old", barSize: 10}

	err := p.Publish(context.Background(), &leaderboard.Snapshot{})
	assert.Error(t, err)
	assert.Empty(t, transport.sent)
	assert.Equal(t, "old", p.messageID)
}

// Activity that does not reorder the visible board must not reach Discord;
// a reordering is pushed exactly once on the next sync.
func TestSync_OnlyOrderChangesReachTransport(t *testing.T) {
	env := newTestEnv(t, 10, 0)
	ctx := context.Background()
	boardTransport := &fakeTransport{}
	pub := &leaderboardPublisher{transport: boardTransport, settings: newMemPersister(), channelID: "board", barSize: 10}

	// u1 gets ahead, u2 second
	at := time.Unix(0, 0)
	for i := 0; i < 3; i++ {
		env.router.Handle(ctx, chat("u1", "general", "hi", at.Add(time.Duration(i)*time.Second)))
	}
	env.router.Handle(ctx, chat("u2", "general", "hi", at))

	publishTick(t, ctx, env.ranker, pub)
	assert.Equal(t, 1, boardTransport.calls())

	// More activity from the leader keeps the same order
	for i := 0; i < 5; i++ {
		env.router.Handle(ctx, chat("u1", "general", "hi", at.Add(time.Duration(10+i)*time.Second)))
	}
	_, dirty := env.ranker.TakeDirty()
	assert.False(t, dirty)
	assert.Equal(t, 1, boardTransport.calls())

	// u3 enters the board several times before the next tick
	for i := 0; i < 4; i++ {
		env.router.Handle(ctx, chat("u3", "general", "hi", at.Add(time.Duration(20+i)*time.Second)))
	}
	publishTick(t, ctx, env.ranker, pub)
	publishTick(t, ctx, env.ranker, pub)
	assert.Equal(t, 2, boardTransport.calls())
}

// publishTick does what one scheduler tick does
func publishTick(t *testing.T, ctx context.Context, ranker *leaderboard.Ranker, pub scheduler.Publisher) {
	t.Helper()
	snap, dirty := ranker.TakeDirty()
	if !dirty {
		return
	}
	if err := pub.Publish(ctx, snap); err != nil {
		ranker.MarkDirty()
	}
}
