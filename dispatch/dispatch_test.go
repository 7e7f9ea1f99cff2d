package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"countdown-notifier/pkg/countdown"
)

var errPermanent = errors.New("recipient gone")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() countdown.Config {
	return countdown.Config{
		StartDate:           time.Date(2026, time.January, 22, 0, 0, 0, 0, time.UTC),
		BirthdayDate:        time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC),
		LeadingNumberedDays: 4,
		LetterRangeLength:   26,
		TotalDays:           30,
	}
}

type fakeStore struct {
	listErr  error
	subs     []*countdown.Subscriber
	removed  []string
	notified []string
}

func (f *fakeStore) List(_ context.Context) ([]*countdown.Subscriber, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subs, nil
}

func (f *fakeStore) Remove(_ context.Context, chatID string) error {
	f.removed = append(f.removed, chatID)
	return nil
}

func (f *fakeStore) UpdateLastNotified(_ context.Context, chatID string, _ time.Time) error {
	f.notified = append(f.notified, chatID)
	return nil
}

type fakeSender struct {
	failures map[string]error
	sent     []string
	texts    []string
}

func (f *fakeSender) Send(_ context.Context, chatID, text, _, _ string) error {
	if err, ok := f.failures[chatID]; ok {
		return err
	}
	f.sent = append(f.sent, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func subscribers(ids ...string) []*countdown.Subscriber {
	subs := make([]*countdown.Subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, &countdown.Subscriber{ChatID: id})
	}
	return subs
}

func newTestDispatcher(store *fakeStore, sender *fakeSender) *Dispatcher {
	return New(&Config{
		Store:       store,
		Sender:      sender,
		Logger:      testLogger(),
		IsPermanent: func(err error) bool { return errors.Is(err, errPermanent) },
		BaseURL:     "https://example.com",
		Countdown:   testConfig(),
	})
}

func TestRunSendsToAllSubscribers(t *testing.T) {
	store := &fakeStore{subs: subscribers("1", "2", "3")}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender)

	now := time.Date(2026, time.January, 26, 9, 0, 0, 0, time.UTC) // day 5
	if err := d.Run(context.Background(), now); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(sender.sent) != 3 {
		t.Errorf("sent to %v, want 3 recipients", sender.sent)
	}
	if len(store.notified) != 3 {
		t.Errorf("recorded %v notifications, want 3", store.notified)
	}
	if len(store.removed) != 0 {
		t.Errorf("removed %v, want none", store.removed)
	}

	// Day 5 is letter A.
	if !strings.Contains(sender.texts[0], "Day 5 Unlocked") || !strings.Contains(sender.texts[0], "Adore") {
		t.Errorf("message = %q", sender.texts[0])
	}
}

func TestRunRemovesPermanentlyUnreachable(t *testing.T) {
	store := &fakeStore{subs: subscribers("1", "2", "3")}
	sender := &fakeSender{failures: map[string]error{"2": errPermanent}}
	d := newTestDispatcher(store, sender)

	now := time.Date(2026, time.January, 23, 9, 0, 0, 0, time.UTC)
	if err := d.Run(context.Background(), now); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Errorf("sent to %v, want recipients 1 and 3", sender.sent)
	}
	if len(store.removed) != 1 || store.removed[0] != "2" {
		t.Errorf("removed %v, want [2]", store.removed)
	}
}

func TestRunKeepsTransientFailures(t *testing.T) {
	store := &fakeStore{subs: subscribers("1", "2")}
	sender := &fakeSender{failures: map[string]error{"1": errors.New("timeout")}}
	d := newTestDispatcher(store, sender)

	now := time.Date(2026, time.January, 23, 9, 0, 0, 0, time.UTC)
	if err := d.Run(context.Background(), now); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(store.removed) != 0 {
		t.Errorf("transient failure removed subscribers: %v", store.removed)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "2" {
		t.Errorf("sent = %v, want [2]", sender.sent)
	}
	if len(store.notified) != 1 {
		t.Errorf("notified = %v, want only the successful send", store.notified)
	}
}

func TestRunListFailureAborts(t *testing.T) {
	store := &fakeStore{listErr: fmt.Errorf("bucket unavailable")}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender)

	err := d.Run(context.Background(), time.Now())
	if err == nil {
		t.Fatal("Run() succeeded despite list failure")
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %v despite list failure", sender.sent)
	}
}

func TestRunEmptyList(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender)

	if err := d.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("Run() on empty list failed: %v", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	store := &fakeStore{subs: subscribers("1", "2")}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx, time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() with cancelled context = %v, want context.Canceled", err)
	}
}

func TestFormatMessage(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name string
		rec  countdown.DayRecord
		want []string
	}{
		{
			name: "numbered day",
			rec:  countdown.DayRecord{Index: 2, Label: "2", Title: "Missing You"},
			want: []string{"Day 2 Unlocked", "Missing You"},
		},
		{
			name: "letter day",
			rec:  countdown.DayRecord{Index: 5, Label: "A", Word: "Adore", IsLetter: true},
			want: []string{"Day 5 Unlocked", "*A* is for *Adore*"},
		},
		{
			name: "birthday",
			rec:  countdown.DayRecord{Index: 31},
			want: []string{"Happy Birthday"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMessage(tt.rec, cfg)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("formatMessage() = %q, missing %q", got, want)
				}
			}
		})
	}
}
