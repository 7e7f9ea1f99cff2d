package storage

import (
	"context"
	"errors"
	"testing"
)

func newLocalMediaStore(t *testing.T) *MediaStore {
	t.Helper()
	return NewMediaStore(nil, "", t.TempDir(), testLogger())
}

func TestMediaPutAndOpen(t *testing.T) {
	store := newLocalMediaStore(t)
	ctx := context.Background()

	payload := []byte("fake jpeg bytes")
	if err := store.Put(ctx, 7, "jpg", payload); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := store.Open(ctx, 7, "jpg")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Open() = %q, want %q", got, payload)
	}
}

func TestMediaOpenMissing(t *testing.T) {
	store := newLocalMediaStore(t)

	_, err := store.Open(context.Background(), 3, "jpg")
	if !errors.Is(err, ErrNoOverride) {
		t.Errorf("Open(missing) error = %v, want ErrNoOverride", err)
	}
}

func TestMediaPutReplaces(t *testing.T) {
	store := newLocalMediaStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, 2, "mp4", []byte("first")); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := store.Put(ctx, 2, "mp4", []byte("second")); err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	got, err := store.Open(ctx, 2, "mp4")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Open() after replace = %q, want second", got)
	}
}

func TestMediaInvalidKey(t *testing.T) {
	store := newLocalMediaStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, 1, "exe", []byte("x")); err == nil {
		t.Error("Put() with bad extension succeeded")
	}
	if err := store.Put(ctx, 0, "jpg", []byte("x")); err == nil {
		t.Error("Put() with day 0 succeeded")
	}
	if _, err := store.Open(ctx, -1, "jpg"); err == nil {
		t.Error("Open() with negative day succeeded")
	}
}

func TestMediaList(t *testing.T) {
	store := newLocalMediaStore(t)
	ctx := context.Background()

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() on empty store: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() = %v, want empty", keys)
	}

	if err := store.Put(ctx, 1, "jpg", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, 9, "mp4", []byte("b")); err != nil {
		t.Fatal(err)
	}

	keys, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("List() = %v, want 2 keys", keys)
	}
	for _, key := range keys {
		if key != "override/day-1.jpg" && key != "override/day-9.mp4" {
			t.Errorf("unexpected key %q", key)
		}
	}
}
