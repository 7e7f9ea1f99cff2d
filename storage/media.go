package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// overridePrefix namespaces media overrides away from the subscriber
// document. Overrides are keyed by day index so a general-purpose settings
// store never accumulates large blobs.
const overridePrefix = "override/"

// ErrNoOverride is returned when no override exists for a day.
var ErrNoOverride = errors.New("no media override for day")

// IsNoOverride reports whether err means no override was stored for the day.
func IsNoOverride(err error) bool {
	return errors.Is(err, ErrNoOverride)
}

// MediaStore persists per-day media overrides (an image or video uploaded
// after deployment that replaces the bundled file for that day).
type MediaStore struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// NewMediaStore creates a media override store on the same backend rules as
// the subscriber store.
func NewMediaStore(client *storage.Client, bucket, localPath string, logger *slog.Logger) *MediaStore {
	return &MediaStore{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// overrideKey builds the object name for a day's override, e.g.
// "override/day-7.jpg". Extensions outside the allow-list are rejected.
func overrideKey(day int, ext string) (string, error) {
	if ext != "jpg" && ext != "mp4" {
		return "", fmt.Errorf("unsupported media extension %q", ext)
	}
	if day < 1 {
		return "", fmt.Errorf("invalid day index %d", day)
	}
	return fmt.Sprintf("%sday-%d.%s", overridePrefix, day, ext), nil
}

// Put stores an override for a day, replacing any previous one.
func (m *MediaStore) Put(ctx context.Context, day int, ext string, data []byte) error {
	key, err := overrideKey(day, ext)
	if err != nil {
		return err
	}

	if m.localPath != "" {
		path := filepath.Join(m.localPath, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("create override directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write override to local storage: %w", err)
		}
		m.logger.Info("Media override saved to local storage", "path", path, "bytes", len(data))
		return nil
	}

	w := m.client.Bucket(m.bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			m.logger.Warn("Failed to close writer after error", "error", closeErr)
		}
		return fmt.Errorf("write override to storage: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close override writer: %w", err)
	}

	m.logger.Info("Media override saved", "key", key, "bytes", len(data))
	return nil
}

// Open returns the override bytes for a day, or ErrNoOverride.
func (m *MediaStore) Open(ctx context.Context, day int, ext string) ([]byte, error) {
	key, err := overrideKey(day, ext)
	if err != nil {
		return nil, err
	}

	if m.localPath != "" {
		data, err := os.ReadFile(filepath.Join(m.localPath, filepath.FromSlash(key)))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNoOverride
			}
			return nil, fmt.Errorf("read override from local storage: %w", err)
		}
		return data, nil
	}

	r, err := m.client.Bucket(m.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNoOverride
		}
		return nil, fmt.Errorf("open override reader: %w", err)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			m.logger.Warn("Failed to close override reader", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read override from storage: %w", err)
	}
	return data, nil
}

// List returns the keys of all stored overrides.
func (m *MediaStore) List(ctx context.Context) ([]string, error) {
	if m.localPath != "" {
		dir := filepath.Join(m.localPath, "override")
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("read override directory: %w", err)
		}
		var keys []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "day-") {
				continue
			}
			keys = append(keys, overridePrefix+entry.Name())
		}
		return keys, nil
	}

	var keys []string
	it := m.client.Bucket(m.bucket).Objects(ctx, &storage.Query{Prefix: overridePrefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate overrides: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}
