package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/flor3z/levelbot/internal/command"
	"github.com/flor3z/levelbot/internal/leaderboard"
	"github.com/flor3z/levelbot/internal/render"
	"github.com/flor3z/levelbot/internal/users"
)

// commandDeps is everything the built-in commands operate on
type commandDeps struct {
	botName func() string
	prefix  string
	ownerID string
	barSize int
	store   *users.Store
	ranker  *leaderboard.Ranker
}

// newCommandRegistry builds the command table. It is not modified afterwards.
func newCommandRegistry(d commandDeps) *command.Registry {
	reg := command.NewRegistry()

	reg.MustRegister(
		command.Command{
			Name:        "help",
			Description: "Shows this message",
			Handler:     handleHelp(d, reg),
		},
		command.Command{
			Name:        "rank",
			Description: "Shows your level and position, or those of a mentioned user",
			Handler:     handleRank(d),
		},
		ownerCommand(d.ownerID, command.Command{
			Name:        "refresh",
			Description: "Re-renders the leaderboard message",
			Handler:     handleRefresh(d),
		}),
		ownerCommand(d.ownerID, command.Command{
			Name:        "save",
			Description: "Writes all user progress to disk",
			Handler:     handleSave(d),
		}),
	)

	return reg
}

// ownerCommand restricts cmd to the owner and marks it in the help text
func ownerCommand(ownerID string, cmd command.Command) command.Command {
	cmd.Description = "(owner only) " + cmd.Description
	cmd.Handler = command.OwnerOnly(ownerID, cmd.Handler)
	return cmd
}

// handleHelp handles the help command
func handleHelp(d commandDeps, reg *command.Registry) command.HandlerFunc {
	return func(ctx context.Context, inv *command.Invocation, _ string) error {
		return inv.Reply(ctx, render.Help(d.botName(), d.prefix, reg.List()))
	}
}

// handleRank handles the rank command
func handleRank(d commandDeps) command.HandlerFunc {
	return func(ctx context.Context, inv *command.Invocation, args string) error {
		targetID := inv.AuthorID
		if args != "" {
			targetID = parseMention(args)
		}

		u, ok := d.store.Get(targetID)
		if !ok {
			return inv.Reply(ctx, fmt.Sprintf("<@%s> has no experience yet.", targetID))
		}

		all := d.store.All()
		position := leaderboard.Position(all, u.ID)
		return inv.Reply(ctx, render.Rank(u, position, len(all), d.barSize))
	}
}

// handleRefresh handles the refresh command
func handleRefresh(d commandDeps) command.HandlerFunc {
	return func(ctx context.Context, inv *command.Invocation, _ string) error {
		d.ranker.Refresh(d.store.All())
		return inv.Reply(ctx, "Leaderboard refresh scheduled.")
	}
}

// handleSave handles the save command
func handleSave(d commandDeps) command.HandlerFunc {
	return func(ctx context.Context, inv *command.Invocation, _ string) error {
		if err := d.store.Flush(ctx); err != nil {
			_ = inv.Reply(ctx, "Failed to save user data.")
			return err
		}
		return inv.Reply(ctx, fmt.Sprintf("Saved %d users.", d.store.Len()))
	}
}

// parseMention extracts a user id from <@id>, <@!id> or a bare id
func parseMention(arg string) string {
	arg = strings.Fields(arg)[0]
	if strings.HasPrefix(arg, "<@") && strings.HasSuffix(arg, ">") {
		arg = strings.TrimSuffix(strings.TrimPrefix(arg, "<@"), ">")
		arg = strings.TrimPrefix(arg, "!")
	}
	return arg
}
