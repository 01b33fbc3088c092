package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/flor3z/levelbot/internal/leaderboard"
	"github.com/flor3z/levelbot/internal/render"
	"github.com/flor3z/levelbot/internal/storage"
)

// ErrMessageNotFound is returned when editing a message that no longer exists
var ErrMessageNotFound = errors.New("message not found")

// Transport is the subset of the chat platform the bot talks to
type Transport interface {
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}

// discordTransport implements Transport on a Discord session
type discordTransport struct {
	session *discordgo.Session
}

func (d *discordTransport) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (d *discordTransport) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := d.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	return err
}

func (d *discordTransport) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return d.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// settingsStore persists the leaderboard message id once it is known
type settingsStore interface {
	SetSetting(ctx context.Context, key, value string) error
}

// leaderboardPublisher keeps one leaderboard message in sync with the ranking
type leaderboardPublisher struct {
	transport Transport
	settings  settingsStore
	channelID string
	messageID string
	barSize   int
}

// Publish edits the leaderboard message, creating it if it does not exist yet
func (p *leaderboardPublisher) Publish(ctx context.Context, snap *leaderboard.Snapshot) error {
	content := render.Leaderboard(snap, p.barSize)

	if p.messageID != "" {
		err := p.transport.EditMessage(ctx, p.channelID, p.messageID, content)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrMessageNotFound) {
			return fmt.Errorf("failed to edit leaderboard message: %w", err)
		}
		slog.Warn("Leaderboard message is gone, posting a new one", "channel", p.channelID, "message", p.messageID)
	}

	id, err := p.transport.SendMessage(ctx, p.channelID, content)
	if err != nil {
		return fmt.Errorf("failed to post leaderboard message: %w", err)
	}
	p.messageID = id
	slog.Info("Posted leaderboard message", "channel", p.channelID, "message", id)

	if err := p.settings.SetSetting(ctx, storage.SettingLeaderboardMessageID, id); err != nil {
		slog.Error("Failed to store leaderboard message id", "message", id, "error", err)
	}
	return nil
}
