// Package dispatch sends the daily unlock notification to every subscriber.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"countdown-notifier/calendar"
	"countdown-notifier/content"
	"countdown-notifier/pkg/countdown"
)

const (
	// paceDelay spaces sequential sends to stay under the Bot API rate limit.
	// Pacing policy only, not a correctness requirement.
	paceDelay = 100 * time.Millisecond
	// sendTimeout bounds a single send so one hanging recipient cannot
	// stall the rest of the batch.
	sendTimeout = 10 * time.Second
)

// Store interface for subscriber persistence.
type Store interface {
	List(ctx context.Context) ([]*countdown.Subscriber, error)
	Remove(ctx context.Context, chatID string) error
	UpdateLastNotified(ctx context.Context, chatID string, at time.Time) error
}

// Sender interface for delivering notifications.
type Sender interface {
	Send(ctx context.Context, chatID, text, linkURL, linkText string) error
}

// IsPermanent classifies a send error as permanently unreachable.
type IsPermanent func(error) bool

// Dispatcher runs the daily notification batch.
type Dispatcher struct {
	store       Store
	sender      Sender
	logger      *slog.Logger
	isPermanent IsPermanent
	baseURL     string
	cfg         countdown.Config
}

// Config holds dispatcher configuration.
type Config struct {
	Store       Store
	Sender      Sender
	Logger      *slog.Logger
	IsPermanent IsPermanent
	BaseURL     string
	Countdown   countdown.Config
}

// New creates a dispatcher.
func New(cfg *Config) *Dispatcher {
	return &Dispatcher{
		store:       cfg.Store,
		sender:      cfg.Sender,
		logger:      cfg.Logger,
		isPermanent: cfg.IsPermanent,
		baseURL:     cfg.BaseURL,
		cfg:         cfg.Countdown,
	}
}

// Run sends today's unlock notification to every subscriber in order. One
// recipient's failure never aborts the batch: permanent failures remove the
// subscriber (implicit unsubscribe), transient ones are logged and retried
// on the next cycle. A store read failure aborts — notifying nobody because
// the list could not be read must not look like success.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) error {
	subs, err := d.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	day := calendar.CurrentDay(d.cfg, now)
	rec := content.Resolve(d.cfg, day)
	text := formatMessage(rec, d.cfg)
	linkURL := fmt.Sprintf("%s/day?day=%d", d.baseURL, day)
	linkText := fmt.Sprintf("Open Day %d", day)

	d.logger.Info("Starting notification batch",
		"day", day,
		"label", rec.Label,
		"subscribers", len(subs))

	var sent, removed, failed int
	for i, sub := range subs {
		select {
		case <-ctx.Done():
			d.logger.Info("Context cancelled, stopping notification batch", "error", ctx.Err())
			return ctx.Err()
		default:
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := d.sender.Send(sendCtx, sub.ChatID, text, linkURL, linkText)
		cancel()

		switch {
		case err == nil:
			sent++
			if updateErr := d.store.UpdateLastNotified(ctx, sub.ChatID, now); updateErr != nil {
				d.logger.Warn("Failed to record notification time", "chat_id", sub.ChatID, "error", updateErr)
			}
		case d.isPermanent(err):
			// Blocked or deleted chat: drop the subscriber and move on.
			removed++
			d.logger.Info("Removing permanently unreachable subscriber", "chat_id", sub.ChatID, "error", err)
			if removeErr := d.store.Remove(ctx, sub.ChatID); removeErr != nil && !errors.Is(removeErr, context.Canceled) {
				d.logger.Warn("Failed to remove unreachable subscriber", "chat_id", sub.ChatID, "error", removeErr)
			}
		default:
			failed++
			d.logger.Warn("Notification send failed", "chat_id", sub.ChatID, "error", err)
		}

		if i < len(subs)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(paceDelay):
			}
		}
	}

	d.logger.Info("Notification batch completed",
		"day", day,
		"sent", sent,
		"removed", removed,
		"failed", failed)
	return nil
}

// formatMessage builds the Markdown notification text for a day record.
func formatMessage(rec countdown.DayRecord, cfg countdown.Config) string {
	if rec.Index > cfg.TotalDays {
		return "🎂 *The day is here!*\n\nHappy Birthday! The grand finale is unlocked. 🎉"
	}
	if rec.IsLetter {
		return fmt.Sprintf("🎉 *Day %d Unlocked!*\n\n*%s* is for *%s*\n\nA new message awaits you! 💝", rec.Index, rec.Label, rec.Word)
	}
	return fmt.Sprintf("🎉 *Day %d Unlocked!*\n\n*%s*\n\nA new message awaits you! 💝", rec.Index, rec.Title)
}
