package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/flor3z/levelbot/internal/command"
	"github.com/flor3z/levelbot/internal/exp"
	"github.com/flor3z/levelbot/internal/leaderboard"
	"github.com/flor3z/levelbot/internal/render"
	"github.com/flor3z/levelbot/internal/users"
)

// sendTimeout bounds every outbound Discord call made on behalf of a message
const sendTimeout = 10 * time.Second

// Message is an inbound chat message
type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	ChannelID  string
	Content    string
	Timestamp  time.Time
}

// RouterConfig holds the message filtering and notification settings
type RouterConfig struct {
	Prefix          string
	IgnoredChannels []string
	ReactionEmoji   string
}

// Router is the single consumer of inbound messages. It routes prefixed
// messages to commands and everything else to the experience engine.
// Handle must only be called from one goroutine.
type Router struct {
	prefix        string
	ignored       map[string]struct{}
	reactionEmoji string
	selfID        string

	store     *users.Store
	engine    *exp.Engine
	ranker    *leaderboard.Ranker
	commands  *command.Registry
	transport Transport

	// spawn runs outbound calls off the routing goroutine
	spawn func(func())
	now   func() time.Time
}

// NewRouter creates a new Router
func NewRouter(cfg RouterConfig, store *users.Store, engine *exp.Engine, ranker *leaderboard.Ranker, commands *command.Registry, transport Transport) *Router {
	ignored := make(map[string]struct{}, len(cfg.IgnoredChannels))
	for _, id := range cfg.IgnoredChannels {
		ignored[id] = struct{}{}
	}

	return &Router{
		prefix:        cfg.Prefix,
		ignored:       ignored,
		reactionEmoji: cfg.ReactionEmoji,
		store:         store,
		engine:        engine,
		ranker:        ranker,
		commands:      commands,
		transport:     transport,
		spawn:         func(f func()) { go f() },
		now:           time.Now,
	}
}

// SetSelfID sets the bot's own user id so its messages are ignored.
// Call it before Run.
func (r *Router) SetSelfID(id string) {
	r.selfID = id
}

// Run handles events serially until ctx is cancelled or events is closed
func (r *Router) Run(ctx context.Context, events <-chan Message) {
	slog.Info("Message router started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Message router stopped (context cancelled)")
			return
		case msg, ok := <-events:
			if !ok {
				slog.Info("Message router stopped")
				return
			}
			r.Handle(ctx, msg)
		}
	}
}

// Handle processes one message to completion
func (r *Router) Handle(ctx context.Context, msg Message) {
	if _, ok := r.ignored[msg.ChannelID]; ok {
		return
	}
	if msg.AuthorID == "" || msg.AuthorID == r.selfID {
		return
	}

	if name, args, ok := ParseCommand(msg.Content, r.prefix); ok {
		r.dispatch(ctx, msg, name, args)
		return
	}

	r.recordActivity(ctx, msg)
}

// ParseCommand splits "<prefix><name> <args>" into name and args.
// ok is false when content does not start with prefix.
func ParseCommand(content, prefix string) (name, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := content[len(prefix):]

	idx := strings.IndexFunc(rest, unicode.IsSpace)
	if idx < 0 {
		return rest, "", true
	}
	return rest[:idx], strings.TrimSpace(rest[idx:]), true
}

// dispatch runs a command; failures are logged and never escape
func (r *Router) dispatch(ctx context.Context, msg Message, name, args string) {
	cmd, err := r.commands.Resolve(name)
	if err != nil {
		slog.Warn("Unknown command", "command", name, "author", msg.AuthorID, "channel", msg.ChannelID)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Command panicked",
				"command", name, "args", args, "author", msg.AuthorID, "channel", msg.ChannelID, "panic", p)
		}
	}()

	inv := &command.Invocation{
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		ChannelID:  msg.ChannelID,
		MessageID:  msg.ID,
		Replier:    channelReplier{router: r, channelID: msg.ChannelID},
	}

	slog.Info("Executing command", "command", name, "author", msg.AuthorID)
	if err := cmd.Handler.Invoke(ctx, inv, args); err != nil {
		slog.Error("Command failed",
			"command", name, "args", args, "author", msg.AuthorID, "channel", msg.ChannelID, "error", err)
	}
}

// recordActivity awards experience for a plain message and refreshes the ranking
func (r *Router) recordActivity(ctx context.Context, msg Message) {
	now := msg.Timestamp
	if now.IsZero() {
		now = r.now()
	}

	u := r.store.GetOrCreate(msg.AuthorID)
	if msg.AuthorName != "" {
		u.Name = msg.AuthorName
	}

	res := r.engine.Award(u, now)
	if !res.Awarded {
		slog.Debug("User on cooldown", "user", u.ID, "until", u.NextEligible, "cooldown", r.engine.Cooldown())
		return
	}
	slog.Debug("Awarded experience", "user", u.ID, "amount", res.Amount, "level", u.Level, "exp", u.Exp)

	if res.LeveledUp() {
		slog.Info("User leveled up", "user", u.ID, "level", res.Level, "levels", res.LevelsGained)
		r.announceLevelUp(msg, res.Level)
	}

	if err := r.store.Commit(ctx, u); err != nil {
		slog.Error("Failed to save user", "user", u.ID, "error", err)
	}

	if r.ranker.Recompute(r.store.All()) {
		slog.Debug("Leaderboard order changed")
	}
}

func (r *Router) announceLevelUp(msg Message, level int) {
	r.send(msg.ChannelID, render.LevelUp(msg.AuthorID, level))

	if r.reactionEmoji == "" || msg.ID == "" {
		return
	}
	r.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := r.transport.AddReaction(ctx, msg.ChannelID, msg.ID, r.reactionEmoji); err != nil {
			slog.Error("Failed to add reaction", "channel", msg.ChannelID, "message", msg.ID, "error", err)
		}
	})
}

// send posts content to a channel without blocking the caller
func (r *Router) send(channelID, content string) {
	r.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if _, err := r.transport.SendMessage(ctx, channelID, content); err != nil {
			slog.Error("Failed to send message", "channel", channelID, "error", err)
		}
	})
}

// channelReplier answers commands in the channel they came from
type channelReplier struct {
	router    *Router
	channelID string
}

func (c channelReplier) Reply(_ context.Context, content string) error {
	if content == "" {
		return fmt.Errorf("empty reply")
	}
	c.router.send(c.channelID, content)
	return nil
}
