package content

import (
	"strings"
	"testing"

	"countdown-notifier/pkg/countdown"
)

func defaultConfig() countdown.Config {
	return countdown.Config{
		LeadingNumberedDays: 4,
		LetterRangeLength:   26,
		TotalDays:           30,
	}
}

func TestResolveNumberedDays(t *testing.T) {
	cfg := defaultConfig()

	tests := []struct {
		name      string
		day       int
		wantLabel string
		wantTitle string
	}{
		{"first day", 1, "1", "The Beginning"},
		{"second day", 2, "2", "Missing You"},
		{"last numbered day", 4, "4", "Special Day 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Resolve(cfg, tt.day)
			if rec.IsLetter {
				t.Errorf("Resolve(%d).IsLetter = true, want false", tt.day)
			}
			if rec.Label != tt.wantLabel {
				t.Errorf("Resolve(%d).Label = %q, want %q", tt.day, rec.Label, tt.wantLabel)
			}
			if rec.Title != tt.wantTitle {
				t.Errorf("Resolve(%d).Title = %q, want %q", tt.day, rec.Title, tt.wantTitle)
			}
			if rec.Message == "" {
				t.Errorf("Resolve(%d).Message is empty", tt.day)
			}
		})
	}
}

func TestResolveLetterDays(t *testing.T) {
	cfg := defaultConfig()

	tests := []struct {
		name      string
		day       int
		wantLabel string
		wantWord  string
	}{
		{"first letter day", 5, "A", "Adore"},
		{"letter L", 16, "L", "Love"},
		{"last letter day", 30, "Z", "Zest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Resolve(cfg, tt.day)
			if !rec.IsLetter {
				t.Fatalf("Resolve(%d).IsLetter = false, want true", tt.day)
			}
			if rec.Label != tt.wantLabel {
				t.Errorf("Resolve(%d).Label = %q, want %q", tt.day, rec.Label, tt.wantLabel)
			}
			if rec.Word != tt.wantWord {
				t.Errorf("Resolve(%d).Word = %q, want %q", tt.day, rec.Word, tt.wantWord)
			}
			if rec.Message == "" {
				t.Errorf("Resolve(%d).Message is empty", tt.day)
			}
		})
	}
}

func TestResolveLettersOnlyConfig(t *testing.T) {
	// No numbered days: day 1 maps straight to the first letter.
	cfg := countdown.Config{
		LeadingNumberedDays: 0,
		LetterRangeLength:   20,
		TotalDays:           20,
	}

	rec := Resolve(cfg, 5)
	if !rec.IsLetter || rec.Label != "E" {
		t.Errorf("Resolve(5) = %+v, want letter E", rec)
	}
	if rec.Word != "Eternal" {
		t.Errorf("Resolve(5).Word = %q, want Eternal", rec.Word)
	}

	// Day 25 is past the 20-letter range, so it gets the generic record.
	rec = Resolve(cfg, 25)
	if rec.IsLetter {
		t.Errorf("Resolve(25).IsLetter = true, want generic record")
	}
	if rec.Label != "25" {
		t.Errorf("Resolve(25).Label = %q, want 25", rec.Label)
	}
}

func TestResolveOutOfRange(t *testing.T) {
	cfg := defaultConfig()

	for _, day := range []int{-3, 0, 31, 999} {
		rec := Resolve(cfg, day)
		if rec.Message == "" {
			t.Errorf("Resolve(%d).Message is empty", day)
		}
		if rec.Index != day {
			t.Errorf("Resolve(%d).Index = %d", day, rec.Index)
		}
	}
}

func TestSynthesizedLetterMessage(t *testing.T) {
	cfg := defaultConfig()

	// Day 6 is "B is for Beautiful" with no hand-written message.
	rec := Resolve(cfg, 6)
	if !strings.Contains(rec.Message, "Beautiful") {
		t.Errorf("synthesized message %q does not mention the word", rec.Message)
	}
}

func TestColors(t *testing.T) {
	p1, s1 := Colors(1)
	if p1 == "" || s1 == "" {
		t.Fatal("Colors(1) returned empty color")
	}

	// Tables cycle after 30 entries.
	p31, s31 := Colors(31)
	if p31 != p1 || s31 != s1 {
		t.Errorf("Colors(31) = %s/%s, want cycle back to %s/%s", p31, s31, p1, s1)
	}

	// Negative and zero indices still map to valid entries.
	for _, day := range []int{-5, 0} {
		p, s := Colors(day)
		if !strings.HasPrefix(p, "#") || !strings.HasPrefix(s, "#") {
			t.Errorf("Colors(%d) = %q/%q, want hex colors", day, p, s)
		}
	}
}

func TestMediaPaths(t *testing.T) {
	if got := ImagePath(7); got != "images/day-7.jpg" {
		t.Errorf("ImagePath(7) = %q", got)
	}
	if got := VideoPath(12); got != "videos/day-12.mp4" {
		t.Errorf("VideoPath(12) = %q", got)
	}
}

func TestPreview(t *testing.T) {
	cfg := defaultConfig()

	if got := Preview(cfg, 5); got != "A is for Adore" {
		t.Errorf("Preview(5) = %q", got)
	}
	if got := Preview(cfg, 1); !strings.Contains(got, "message") {
		t.Errorf("Preview(1) = %q, want a teaser", got)
	}
}

func TestNextPreview(t *testing.T) {
	cfg := defaultConfig()

	if got := NextPreview(cfg, 4); got != "Letter A - Adore" {
		t.Errorf("NextPreview(4) = %q", got)
	}
	if got := NextPreview(cfg, 30); got != "Birthday!" {
		t.Errorf("NextPreview(30) = %q", got)
	}
}

func TestProgress(t *testing.T) {
	cfg := defaultConfig()

	tests := []struct {
		day  int
		want int
	}{
		{0, 0},
		{15, 50},
		{30, 100},
		{45, 100},
		{-2, 0},
	}

	for _, tt := range tests {
		if got := Progress(cfg, tt.day); got != tt.want {
			t.Errorf("Progress(%d) = %d, want %d", tt.day, got, tt.want)
		}
	}
}

func TestWordTableMatchesAlphabet(t *testing.T) {
	if len(words) != len(letters) {
		t.Fatalf("words table has %d entries, alphabet has %d", len(words), len(letters))
	}
	for i, w := range words {
		if !strings.EqualFold(w[:1], string(letters[i])) {
			t.Errorf("word %q does not start with letter %q", w, string(letters[i]))
		}
	}
}
