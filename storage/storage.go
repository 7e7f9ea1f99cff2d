// Package storage handles persistence of the subscriber list and of
// day-keyed media overrides, backed by either Cloud Storage or the local
// filesystem.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"

	"countdown-notifier/pkg/countdown"
)

// subscribersKey is the single document holding the full subscriber list.
// Every mutation reads the whole list and rewrites it wholesale.
const subscribersKey = "subscribers.json"

var (
	// ErrAlreadySubscribed is returned by Add for a chat id that is already present.
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrNotFound is returned when a chat id is absent from the list.
	ErrNotFound = errors.New("subscriber not found")
)

// IsAlreadySubscribed reports whether err means the chat id was already on the list.
func IsAlreadySubscribed(err error) bool {
	return errors.Is(err, ErrAlreadySubscribed)
}

// IsNotFound reports whether err means the chat id was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store persists the subscriber list. All mutations are serialized through
// an internal mutex: the read-modify-write cycle is not otherwise atomic,
// and two concurrent writers would silently lose one write.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
	mu        sync.Mutex
}

// New creates a subscriber store. When localPath is non-empty the list is
// kept in a local file; otherwise it lives in the given bucket.
func New(client *storage.Client, bucket, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// List returns the persisted subscriber list verbatim. A document that does
// not exist yet is a valid empty state; a document that exists but cannot be
// read or parsed is an error, never silently treated as empty.
func (s *Store) List(ctx context.Context) ([]*countdown.Subscriber, error) {
	return s.load(ctx)
}

// Add appends a new subscriber. Adding an existing chat id is a no-op
// reported as ErrAlreadySubscribed.
func (s *Store) Add(ctx context.Context, chatID, displayName string) (*countdown.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	for _, sub := range subs {
		if sub.ChatID == chatID {
			return sub, ErrAlreadySubscribed
		}
	}

	sub := &countdown.Subscriber{
		ChatID:       chatID,
		DisplayName:  displayName,
		SubscribedAt: time.Now().UTC(),
	}
	subs = append(subs, sub)

	if err := s.save(ctx, subs); err != nil {
		return nil, fmt.Errorf("save subscribers: %w", err)
	}

	s.logger.Info("Subscriber added", "chat_id", chatID, "display_name", displayName, "count", len(subs))
	return sub, nil
}

// Remove deletes a subscriber by chat id. Removing an absent id leaves the
// list untouched and returns ErrNotFound.
func (s *Store) Remove(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	kept := make([]*countdown.Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.ChatID != chatID {
			kept = append(kept, sub)
		}
	}
	if len(kept) == len(subs) {
		return ErrNotFound
	}

	if err := s.save(ctx, kept); err != nil {
		return fmt.Errorf("save subscribers: %w", err)
	}

	s.logger.Info("Subscriber removed", "chat_id", chatID, "count", len(kept))
	return nil
}

// UpdateLastNotified records a successful send for a subscriber.
func (s *Store) UpdateLastNotified(ctx context.Context, chatID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	found := false
	for _, sub := range subs {
		if sub.ChatID == chatID {
			t := at.UTC()
			sub.LastNotifiedAt = &t
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	return s.save(ctx, subs)
}

func (s *Store) load(ctx context.Context) ([]*countdown.Subscriber, error) {
	var data []byte

	if s.localPath != "" {
		var err error
		data, err = os.ReadFile(filepath.Join(s.localPath, subscribersKey))
		if err != nil {
			if os.IsNotExist(err) {
				return []*countdown.Subscriber{}, nil
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		// Cloud Storage with retry logic for reliability
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(subscribersKey).NewReader(ctx)
				if openErr != nil {
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(openErr)
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				data, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.MaxDelay(30*time.Second),
			retry.MaxJitter(5*time.Second),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, retryErr error) {
				s.logger.Info("Retrying subscriber load after error", "attempt", n, "error", retryErr)
			}),
		)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				return []*countdown.Subscriber{}, nil
			}
			return nil, fmt.Errorf("load after retries: %w", err)
		}
	}

	var subs []*countdown.Subscriber
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("unmarshal subscribers: %w", err)
	}
	if subs == nil {
		subs = []*countdown.Subscriber{}
	}
	return subs, nil
}

// save rewrites the full list. A write failure always propagates to the
// caller: losing a write is a data-loss event.
func (s *Store) save(ctx context.Context, subs []*countdown.Subscriber) error {
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal subscribers: %w", err)
	}

	if s.localPath != "" {
		path := filepath.Join(s.localPath, subscribersKey)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(subscribersKey).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying subscriber save after error", "attempt", n, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}
	return nil
}
