// Package render formats the text the bot posts to Discord.
package render

import (
	"fmt"
	"strings"

	"github.com/flor3z/levelbot/internal/command"
	"github.com/flor3z/levelbot/internal/exp"
	"github.com/flor3z/levelbot/internal/leaderboard"
	"github.com/flor3z/levelbot/internal/storage"
)

// MaxMessageLength is Discord's limit for a single message body
const MaxMessageLength = 2000

// LevelUp announces that a user reached a new level
func LevelUp(userID string, level int) string {
	return fmt.Sprintf("Congratz! <@%s> is now at level %d!", userID, level)
}

// Leaderboard renders a snapshot as a code block with one three-line entry per user.
// Entries that would push the message past MaxMessageLength are dropped.
func Leaderboard(snap *leaderboard.Snapshot, barSize int) string {
	const (
		header = "```Leaderboards:\n"
		footer = "```"
	)

	var sb strings.Builder
	sb.WriteString(header)

	if snap.Len() == 0 {
		sb.WriteString("No activity yet.")
		sb.WriteString(footer)
		return sb.String()
	}

	for i, e := range snap.Entries {
		entry := leaderboardEntry(i+1, e, barSize)
		if i > 0 {
			entry = "\n" + entry
		}
		if sb.Len()+len(entry)+len(footer) > MaxMessageLength {
			break
		}
		sb.WriteString(entry)
	}
	sb.WriteString(footer)
	return sb.String()
}

func leaderboardEntry(rank int, e leaderboard.Entry, barSize int) string {
	return fmt.Sprintf("%d %s\nLevel: %d[%d/%d]\n%s",
		rank, displayName(e.Name, e.ID), e.Level, e.Exp, exp.Needed(e.Level), exp.Bar(e.Exp, e.Level, barSize))
}

// Help lists the registered commands
func Help(botName, prefix string, cmds []command.Command) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s function help:", botName))
	for _, cmd := range cmds {
		sb.WriteString(fmt.Sprintf("\n%s%s: %s", prefix, cmd.Name, cmd.Description))
	}
	return sb.String()
}

// Rank describes a single user's progress and position
func Rank(u *storage.User, position, total, barSize int) string {
	return fmt.Sprintf("%s is rank %d of %d\nLevel: %d[%d/%d] total %d\n%s",
		displayName(u.Name, u.ID), position, total,
		u.Level, u.Exp, exp.Needed(u.Level), exp.Total(u.Level, u.Exp),
		exp.Bar(u.Exp, u.Level, barSize))
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	// A backtick in a name would close the leaderboard code block early
	return strings.ReplaceAll(name, "`", "'")
}
