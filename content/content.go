// Package content maps a day index to its display record: label, word,
// title, message, colors, and media paths. Resolution is a pure lookup over
// static tables and never fails; out-of-range indices get a generic record.
package content

import (
	"fmt"
	"strconv"
	"strings"

	"countdown-notifier/pkg/countdown"
)

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var words = []string{
	"Adore", "Beautiful", "Cherish", "Dream", "Eternal",
	"Forever", "Grace", "Heart", "Infinity", "Joy",
	"Kiss", "Love", "Magic", "Never-ending", "Only",
	"Passion", "Quiet", "Romance", "Sweet", "Together",
	"Unique", "Valentine", "Wonderful", "XOXO", "You", "Zest",
}

var numberedTitles = []string{
	"The Beginning",
	"Missing You",
	"Special Day 3",
	"Special Day 4",
}

var numberedMessages = []string{
	"One month to go. I wanted more than a single day to celebrate you, so here is a whole countdown — one small message every morning until your birthday.",
	"Day two, and I already miss you. The little things most of all. Consider this your daily reminder that someone is counting days for you.",
	"Day three of our countdown. Today is for all the reasons I'm glad you exist — too many to list, so the short version: every single one of them.",
	"Day four. Just a thank you today, for all of it. Tomorrow the alphabet takes over.",
}

// letterMessages holds hand-written messages for specific letter offsets.
// Days without an entry get a message synthesized from the word.
var letterMessages = map[int]string{
	0:  "A is for Adore, which is the only reasonable response to you. Twenty-six letters from here to your birthday — one each morning.",
	11: "L is for Love. The whole countdown says it, but today it gets its own day.",
	25: "Z is the last letter, which means tomorrow is the day itself. Happy almost-birthday.",
}

var primaryColors = []string{
	"#FF6B8B", "#FF8E6B", "#FFB86B", "#FFD76B", "#FFF06B",
	"#E1FF6B", "#B8FF6B", "#8EFF6B", "#6BFF8E", "#6BFFB8",
	"#6BFFD7", "#6BFFF0", "#6BE1FF", "#6BB8FF", "#6B8EFF",
	"#8E6BFF", "#B86BFF", "#D76BFF", "#F06BFF", "#FF6BE1",
	"#FF6BFF", "#D76BFF", "#B86BFF", "#8E6BFF", "#6B8EFF",
	"#6BB8FF", "#6BE1FF", "#6BFFF0", "#6BFFD7", "#6BFFB8",
}

var secondaryColors = []string{
	"#FF8EC6", "#FFB18C", "#FFD18C", "#FFE98C", "#FFF98C",
	"#EBFF8C", "#D1FF8C", "#A8FF8C", "#8CFFA8", "#8CFFD1",
	"#8CFFE9", "#8CFFF9", "#8CEBFF", "#8CD1FF", "#8CA8FF",
	"#A88CFF", "#D18CFF", "#E98CFF", "#F98CFF", "#FF8CEB",
	"#FF8CFF", "#E98CFF", "#D18CFF", "#A88CFF", "#8CA8FF",
	"#8CD1FF", "#8CEBFF", "#8CFFF9", "#8CFFE9", "#8CFFD1",
}

// Media path construction. Day media is looked up as base + index +
// extension; callers substitute the placeholder when the file is missing.
const (
	ImageBase       = "images/day-"
	VideoBase       = "videos/day-"
	ImageExt        = ".jpg"
	VideoExt        = ".mp4"
	FallbackImage   = "images/placeholder.jpg"
	FallbackVideo   = "videos/placeholder.mp4"
	fallbackPrimary = "#ff69b4"
	fallbackSecond  = "#ffb6c1"
)

// Resolve returns the full content record for a day index. Indices outside
// every configured range produce a generic record, never an error.
func Resolve(cfg countdown.Config, day int) countdown.DayRecord {
	if day >= 1 && day <= cfg.LeadingNumberedDays {
		rec := countdown.DayRecord{
			Index: day,
			Label: strconv.Itoa(day),
			Title: fmt.Sprintf("Day %d", day),
		}
		if day <= len(numberedTitles) {
			rec.Title = numberedTitles[day-1]
		}
		if day <= len(numberedMessages) {
			rec.Message = numberedMessages[day-1]
		} else {
			rec.Message = genericMessage(day)
		}
		return rec
	}

	offset := day - cfg.LeadingNumberedDays - 1
	if offset >= 0 && offset < cfg.LetterRangeLength && offset < len(letters) {
		label := string(letters[offset])
		word := fmt.Sprintf("Day %d", day)
		if offset < len(words) {
			word = words[offset]
		}
		message, ok := letterMessages[offset]
		if !ok {
			message = wordMessage(label, word)
		}
		return countdown.DayRecord{
			Index:    day,
			Label:    label,
			Word:     word,
			Title:    "Letter " + label,
			Message:  message,
			IsLetter: true,
		}
	}

	// Beyond every enumerated table, including day < 1 and past TotalDays.
	return countdown.DayRecord{
		Index:   day,
		Label:   strconv.Itoa(day),
		Title:   fmt.Sprintf("Day %d", day),
		Message: genericMessage(day),
	}
}

// wordMessage synthesizes the default message for a letter day.
func wordMessage(label, word string) string {
	return fmt.Sprintf("%s is for %s — you are %s to me in every way. Today and always.", label, word, strings.ToLower(word))
}

func genericMessage(day int) string {
	return fmt.Sprintf("Day %d brings us closer to your birthday. Each day of this countdown is a reminder of how much you mean to me.", day)
}

// Colors returns the deterministic color pair for a day. The tables cycle,
// so any index maps to a valid pair.
func Colors(day int) (primary, secondary string) {
	if len(primaryColors) == 0 || len(secondaryColors) == 0 {
		return fallbackPrimary, fallbackSecond
	}
	i := day - 1
	// Normalize so negative indices still cycle.
	i = ((i % len(primaryColors)) + len(primaryColors)) % len(primaryColors)
	return primaryColors[i], secondaryColors[i%len(secondaryColors)]
}

// ImagePath returns the primary image path for a day.
func ImagePath(day int) string {
	return fmt.Sprintf("%s%d%s", ImageBase, day, ImageExt)
}

// VideoPath returns the primary video path for a day.
func VideoPath(day int) string {
	return fmt.Sprintf("%s%d%s", VideoBase, day, VideoExt)
}

// Preview returns the short teaser shown on a locked or unlocked day card.
func Preview(cfg countdown.Config, day int) string {
	rec := Resolve(cfg, day)
	if rec.IsLetter {
		return fmt.Sprintf("%s is for %s", rec.Label, rec.Word)
	}
	if day >= 1 && day <= cfg.LeadingNumberedDays {
		return "A special message waiting for you..."
	}
	return "A surprise waiting for you..."
}

// NextPreview describes what unlocks after the given day.
func NextPreview(cfg countdown.Config, day int) string {
	if day >= cfg.TotalDays {
		return "Birthday!"
	}
	next := Resolve(cfg, day+1)
	if next.IsLetter {
		return fmt.Sprintf("Letter %s - %s", next.Label, next.Word)
	}
	return next.Title
}

// Progress returns the countdown completion percentage for a day.
func Progress(cfg countdown.Config, day int) int {
	if cfg.TotalDays <= 0 {
		return 0
	}
	if day < 0 {
		day = 0
	}
	if day > cfg.TotalDays {
		day = cfg.TotalDays
	}
	return day * 100 / cfg.TotalDays
}
