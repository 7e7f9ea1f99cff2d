// Package bot handles Telegram chat commands for managing countdown
// subscriptions.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"countdown-notifier/calendar"
	"countdown-notifier/content"
	"countdown-notifier/pkg/countdown"
	"countdown-notifier/telegram"
)

// API interface for the Telegram transport.
type API interface {
	Send(ctx context.Context, chatID, text, linkURL, linkText string) error
	Updates(ctx context.Context, offset int64) ([]telegram.Update, error)
}

// Store interface for subscription management.
type Store interface {
	Add(ctx context.Context, chatID, displayName string) (*countdown.Subscriber, error)
	Remove(ctx context.Context, chatID string) error
	List(ctx context.Context) ([]*countdown.Subscriber, error)
}

// IsAlreadySubscribed classifies a store Add error as a duplicate.
type IsAlreadySubscribed func(error) bool

// IsNotFound classifies a store Remove error as an absent id.
type IsNotFound func(error) bool

// Bot dispatches chat commands.
type Bot struct {
	api                 API
	store               Store
	logger              *slog.Logger
	isAlreadySubscribed IsAlreadySubscribed
	isNotFound          IsNotFound
	admins              map[string]bool
	baseURL             string
	cfg                 countdown.Config
}

// Config holds bot configuration.
type Config struct {
	API                 API
	Store               Store
	Logger              *slog.Logger
	IsAlreadySubscribed IsAlreadySubscribed
	IsNotFound          IsNotFound
	AdminChatIDs        []string
	BaseURL             string
	Countdown           countdown.Config
}

// New creates a bot.
func New(cfg *Config) *Bot {
	admins := make(map[string]bool, len(cfg.AdminChatIDs))
	for _, id := range cfg.AdminChatIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = true
		}
	}
	return &Bot{
		api:                 cfg.API,
		store:               cfg.Store,
		logger:              cfg.Logger,
		isAlreadySubscribed: cfg.IsAlreadySubscribed,
		isNotFound:          cfg.IsNotFound,
		admins:              admins,
		baseURL:             cfg.BaseURL,
		cfg:                 cfg.Countdown,
	}
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	b.logger.Info("Bot update loop started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bot update loop stopped", "error", ctx.Err())
			return ctx.Err()
		default:
		}

		updates, err := b.api.Updates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("Failed to fetch updates, backing off", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.ID >= offset {
				offset = update.ID + 1
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage dispatches one incoming message. Every command outcome gets
// a human-readable reply.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	command := parseCommand(msg.Text)
	if command == "" {
		return
	}

	b.logger.Info("Command received", "chat_id", chatID, "command", command)

	var reply, linkURL, linkText string
	switch command {
	case "/start":
		reply = "Hi! 💝 I'm the birthday countdown bot.\n\n" +
			"Every morning I can send you the day that just unlocked.\n\n" +
			"Use /subscribe to get daily notifications, or /help for all commands."
		linkURL = b.baseURL
		linkText = "Open the countdown"

	case "/subscribe":
		reply = b.subscribe(ctx, chatID, displayName(msg.From))

	case "/unsubscribe":
		reply = b.unsubscribe(ctx, chatID)

	case "/status":
		reply, linkURL, linkText = b.status()

	case "/help":
		reply = "Commands:\n" +
			"/subscribe — get a message every morning when a day unlocks\n" +
			"/unsubscribe — stop the daily messages\n" +
			"/status — what day the countdown is on\n" +
			"/about — what this bot is\n" +
			"/help — this list"

	case "/about":
		reply = fmt.Sprintf("A %d-day countdown to a very special birthday. "+
			"One message unlocks each day; I let subscribers know the moment it does.", b.cfg.TotalDays)

	case "/subscribers":
		reply = b.listSubscribers(ctx, chatID)

	default:
		reply = "I don't know that command. Try /help."
	}

	if err := b.api.Send(ctx, chatID, reply, linkURL, linkText); err != nil {
		b.logger.Warn("Failed to send reply", "chat_id", chatID, "command", command, "error", err)
	}
}

func (b *Bot) subscribe(ctx context.Context, chatID, name string) string {
	_, err := b.store.Add(ctx, chatID, name)
	switch {
	case err == nil:
		return "You're subscribed! 🎉 I'll message you every morning when a new day unlocks."
	case b.isAlreadySubscribed(err):
		return "You're already subscribed 💝 Nothing to do."
	default:
		b.logger.Error("Subscribe failed", "chat_id", chatID, "error", err)
		return "Something went wrong saving your subscription. Please try again in a bit."
	}
}

func (b *Bot) unsubscribe(ctx context.Context, chatID string) string {
	err := b.store.Remove(ctx, chatID)
	switch {
	case err == nil:
		return "You're unsubscribed. No more daily messages — you can /subscribe again any time."
	case b.isNotFound(err):
		return "You weren't subscribed, so there's nothing to cancel."
	default:
		b.logger.Error("Unsubscribe failed", "chat_id", chatID, "error", err)
		return "Something went wrong removing your subscription. Please try again in a bit."
	}
}

func (b *Bot) status() (reply, linkURL, linkText string) {
	now := time.Now()
	day := calendar.CurrentDay(b.cfg, now)
	remaining := calendar.DaysRemaining(b.cfg, now)

	if day > b.cfg.TotalDays {
		return "🎂 The countdown is over — it's birthday time!", b.baseURL, "Open the countdown"
	}

	rec := content.Resolve(b.cfg, day)
	if rec.IsLetter {
		reply = fmt.Sprintf("Day %d of %d — *%s* is for *%s*.\n%d days to the big day!",
			day, b.cfg.TotalDays, rec.Label, rec.Word, remaining)
	} else {
		reply = fmt.Sprintf("Day %d of %d — *%s*.\n%d days to the big day!",
			day, b.cfg.TotalDays, rec.Title, remaining)
	}
	return reply, fmt.Sprintf("%s/day?day=%d", b.baseURL, day), fmt.Sprintf("Open Day %d", day)
}

// listSubscribers is admin-only, gated by the configured allow-list.
func (b *Bot) listSubscribers(ctx context.Context, chatID string) string {
	if !b.admins[chatID] {
		b.logger.Warn("Admin command refused", "chat_id", chatID)
		return "Sorry, that command is admin-only."
	}

	subs, err := b.store.List(ctx)
	if err != nil {
		b.logger.Error("Subscriber listing failed", "error", err)
		return "Could not read the subscriber list."
	}
	if len(subs) == 0 {
		return "No subscribers yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d subscriber(s):\n", len(subs))
	for _, sub := range subs {
		name := sub.DisplayName
		if name == "" {
			name = sub.ChatID
		}
		fmt.Fprintf(&sb, "• %s (since %s)\n", name, sub.SubscribedAt.Format("Jan 2, 2006"))
	}
	return sb.String()
}

// parseCommand extracts the leading slash command, dropping any @botname
// suffix. Returns "" for non-command messages.
func parseCommand(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	command := fields[0]
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	return strings.ToLower(command)
}

func displayName(u *telegram.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
