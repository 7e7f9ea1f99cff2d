// Package countdown contains the core domain types for the birthday countdown service.
package countdown

import "time"

// StartMode selects how the countdown epoch is determined.
type StartMode string

const (
	// StartFixed counts days from Config.StartDate.
	StartFixed StartMode = "fixed"
	// StartFirstVisit counts days from the date the visitor first opened the page.
	StartFirstVisit StartMode = "first-visit"
)

// DayRecord identifies one unlockable day.
type DayRecord struct {
	Index    int    // 1-based day index
	Label    string // "1".."4" for numbered days, "A".."Z" for letter days
	Word     string // short display word, empty for numbered days
	Title    string
	Message  string
	IsLetter bool
}

// Subscriber is one notification recipient.
type Subscriber struct {
	SubscribedAt   time.Time  `json:"subscribed_at"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	ChatID         string     `json:"chat_id"`
	DisplayName    string     `json:"display_name,omitempty"`
}

// Config is the canonical countdown configuration. Earlier revisions of the
// countdown carried slightly different day counts and label schemes; this
// struct collapses them into one explicit shape.
type Config struct {
	StartDate           time.Time
	BirthdayDate        time.Time
	StartMode           StartMode
	LeadingNumberedDays int // days 1..N use numeric labels
	LetterRangeLength   int // days N+1.. use letters A, B, C, ...
	TotalDays           int
}

// DefaultConfig returns the production configuration: a fixed 30-day
// countdown from January 22 to the birthday on February 20, with four
// numbered days followed by the 26 letter days.
func DefaultConfig() Config {
	return Config{
		StartDate:           time.Date(2026, time.January, 22, 0, 0, 0, 0, time.Local),
		BirthdayDate:        time.Date(2026, time.February, 20, 0, 0, 0, 0, time.Local),
		StartMode:           StartFixed,
		LeadingNumberedDays: 4,
		LetterRangeLength:   26,
		TotalDays:           30,
	}
}
