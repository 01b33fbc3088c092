package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/flor3z/levelbot/internal/config"
	"github.com/flor3z/levelbot/internal/exp"
	"github.com/flor3z/levelbot/internal/leaderboard"
	"github.com/flor3z/levelbot/internal/scheduler"
	"github.com/flor3z/levelbot/internal/storage"
	"github.com/flor3z/levelbot/internal/users"
)

// eventBuffer is how many inbound messages may queue behind the router
const eventBuffer = 256

// Bot represents the Discord bot instance
type Bot struct {
	config    *config.Config
	session   *discordgo.Session
	repo      *storage.Repository
	store     *users.Store
	ranker    *leaderboard.Ranker
	router    *Router
	scheduler *scheduler.Scheduler

	events     chan Message
	runCtx     context.Context
	cancelRun  context.CancelFunc
	routerDone chan struct{}
}

// New creates a new Bot instance
func New(cfg *config.Config) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	// Deliver events in arrival order
	session.SyncEvents = true

	// Initialize storage
	repo, err := storage.NewRepository(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	loaded, err := repo.LoadUsers(context.Background())
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	store, err := users.NewStore(repo, loaded)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	engine, err := exp.NewEngine(cfg.ExpMin, cfg.ExpMax, cfg.Cooldown())
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create experience engine: %w", err)
	}

	// Render once at startup even if nothing changes
	ranker := leaderboard.NewRanker(cfg.DisplayLength)
	ranker.Recompute(store.All())
	ranker.MarkDirty()

	b := &Bot{
		config:     cfg,
		session:    session,
		repo:       repo,
		store:      store,
		ranker:     ranker,
		events:     make(chan Message, eventBuffer),
		routerDone: make(chan struct{}),
	}

	commands := newCommandRegistry(commandDeps{
		botName: b.name,
		prefix:  cfg.Prefix,
		ownerID: cfg.OwnerID,
		barSize: cfg.ExpBarSize,
		store:   store,
		ranker:  ranker,
	})

	b.router = NewRouter(RouterConfig{
		Prefix:          cfg.Prefix,
		IgnoredChannels: cfg.IgnoredChannels,
		ReactionEmoji:   cfg.ReactionEmoji,
	}, store, engine, ranker, commands, &discordTransport{session: session})

	slog.Info("Loaded users", "count", store.Len())

	// Register event handlers
	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and starts background tasks
func (b *Bot) Start(ctx context.Context) error {
	b.runCtx, b.cancelRun = context.WithCancel(ctx)

	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)
	b.router.SetSelfID(b.session.State.User.ID)

	if err := b.session.UpdateGameStatus(0, b.config.Prefix+"help"); err != nil {
		slog.Warn("Failed to set presence", "error", err)
	}

	messageID := b.config.LeaderboardMessageID
	if messageID == "" {
		stored, err := b.repo.GetSetting(ctx, storage.SettingLeaderboardMessageID)
		if err != nil {
			return fmt.Errorf("failed to read leaderboard message id: %w", err)
		}
		messageID = stored
	}

	publisher := &leaderboardPublisher{
		transport: &discordTransport{session: b.session},
		settings:  b.repo,
		channelID: b.config.LeaderboardChannelID,
		messageID: messageID,
		barSize:   b.config.ExpBarSize,
	}

	// Start the message router and the leaderboard sync
	go func() {
		defer close(b.routerDone)
		b.router.Run(b.runCtx, b.events)
	}()

	b.scheduler = scheduler.New(b.ranker, publisher, b.config.EditDelay())
	go b.scheduler.Start(b.runCtx)

	return nil
}

// Stop shuts down the bot, writes every user to disk and returns how many
// were saved
func (b *Bot) Stop() (int, error) {
	// Stop accepting events
	if err := b.session.Close(); err != nil {
		slog.Error("Failed to close Discord session", "error", err)
	}

	if b.cancelRun != nil {
		b.cancelRun()
	}

	// Stop the leaderboard sync and wait for the router so the store has a
	// single owner again
	if b.scheduler != nil {
		b.scheduler.Stop()
		<-b.routerDone
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	flushErr := b.store.Flush(ctx)

	if err := b.repo.Close(); err != nil && flushErr == nil {
		flushErr = fmt.Errorf("failed to close storage: %w", err)
	}
	if flushErr != nil {
		return 0, fmt.Errorf("failed to save users: %w", flushErr)
	}
	return b.store.Len(), nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleMessage)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleMessage queues inbound messages for the router
func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}

	msg := toMessage(m)
	select {
	case b.events <- msg:
	case <-b.runCtx.Done():
	}
}

// name returns the bot's Discord username
func (b *Bot) name() string {
	if b.session.State != nil && b.session.State.User != nil {
		return b.session.State.User.Username
	}
	return "levelbot"
}

func toMessage(m *discordgo.MessageCreate) Message {
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}

	return Message{
		ID:         m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: name,
		ChannelID:  m.ChannelID,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
	}
}
