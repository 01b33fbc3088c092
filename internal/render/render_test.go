package render

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flor3z/levelbot/internal/command"
	"github.com/flor3z/levelbot/internal/leaderboard"
	"github.com/flor3z/levelbot/internal/storage"
)

func TestLevelUp(t *testing.T) {
	assert.Equal(t, "Congratz! <@42> is now at level 3!", LevelUp("42", 3))
}

func TestLeaderboard(t *testing.T) {
	snap := &leaderboard.Snapshot{Entries: []leaderboard.Entry{
		{ID: "1", Name: "alice", Level: 2, Exp: 110},
		{ID: "2", Level: 0, Exp: 50},
	}}

	want := "```Leaderboards:\n" +
		"1 alice\nLevel: 2[110/220]\n[#####.....]\n" +
		"2 2\nLevel: 0[50/100]\n[#####.....]" +
		"```"
	assert.Equal(t, want, Leaderboard(snap, 10))
}

func TestLeaderboard_Empty(t *testing.T) {
	assert.Equal(t, "```Leaderboards:\nNo activity yet.```", Leaderboard(&leaderboard.Snapshot{}, 20))
}

func TestLeaderboard_FitsMessageLimit(t *testing.T) {
	snap := &leaderboard.Snapshot{}
	for i := 0; i < 100; i++ {
		snap.Entries = append(snap.Entries, leaderboard.Entry{ID: "1", Name: strings.Repeat("x", 30)})
	}

	out := Leaderboard(snap, 20)
	assert.LessOrEqual(t, len(out), MaxMessageLength)
	assert.True(t, strings.HasSuffix(out, "```"))
}

func TestLeaderboard_BacktickNamesKeepCodeBlock(t *testing.T) {
	snap := &leaderboard.Snapshot{Entries: []leaderboard.Entry{
		{ID: "1", Name: "```evil``` @everyone", Level: 1, Exp: 10},
	}}

	out := Leaderboard(snap, 10)
	assert.Equal(t, 2, strings.Count(out, "```"))
	assert.True(t, strings.HasPrefix(out, "```Leaderboards:\n"))
	assert.True(t, strings.HasSuffix(out, "```"))
	assert.Contains(t, out, "1 '''evil''' @everyone\n")
}

func TestHelp(t *testing.T) {
	noop := command.HandlerFunc(func(context.Context, *command.Invocation, string) error { return nil })
	out := Help("levelbot", ".", []command.Command{
		{Name: "help", Description: "Shows this message", Handler: noop},
		{Name: "save", Description: "(owner only) Saves", Handler: noop},
	})

	assert.Equal(t, "levelbot function help:\n.help: Shows this message\n.save: (owner only) Saves", out)
}

func TestRank(t *testing.T) {
	u := &storage.User{ID: "1", Name: "alice", Level: 1, Exp: 31}
	out := Rank(u, 2, 5, 5)

	assert.Contains(t, out, "alice is rank 2 of 5")
	assert.Contains(t, out, "Level: 1[31/155] total 131")
	assert.Contains(t, out, "[#....]")
}
